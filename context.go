package guard

import "context"

type contextKey int

const ctxKeyUser contextKey = iota

// WithUser returns a context carrying the acting user. HTTP middleware and
// request pipelines stash the authenticated principal here so that
// ContextUserLoader can resolve it.
func WithUser(ctx context.Context, user any) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// UserFromContext returns the user stored by WithUser, if any.
func UserFromContext(ctx context.Context) (any, bool) {
	user := ctx.Value(ctxKeyUser)
	return user, user != nil
}

// ContextUserLoader resolves the current user from the context. It is the
// loader most integrations install:
//
//	enf := guard.New(guard.WithUserLoader(guard.ContextUserLoader))
func ContextUserLoader(ctx context.Context) (any, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, ErrNoUserInContext
	}
	return user, nil
}
