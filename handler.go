package guard

import (
	"context"
	"fmt"
)

// FailureHandler is the canonical hook invoked exactly once per denied
// check. Its return value is the check's return value: a non-nil error
// aborts the caller (and any wrapped callable), nil silences the denial.
type FailureHandler func(ctx context.Context, d *Denial) error

// normalizeHandler converts any supported failure-handler shape into the
// canonical FailureHandler. The shapes mirror the 0–3 argument prefixes of
// (predicate, user, target); a handler sees only the leading arguments its
// shape declares. An unsupported shape is a programmer error and panics.
func normalizeHandler(h any) FailureHandler {
	switch fn := h.(type) {
	case FailureHandler:
		return fn
	case func(ctx context.Context, d *Denial) error:
		return fn
	case func() error:
		return func(context.Context, *Denial) error {
			return fn()
		}
	case func(Predicate) error:
		return func(_ context.Context, d *Denial) error {
			return fn(d.Predicate)
		}
	case func(Predicate, any) error:
		return func(_ context.Context, d *Denial) error {
			return fn(d.Predicate, d.User)
		}
	case func(Predicate, any, any) error:
		return func(_ context.Context, d *Denial) error {
			return fn(d.Predicate, d.User, d.Target)
		}
	case nil:
		panic("guard: nil failure handler")
	default:
		panic(fmt.Sprintf("guard: unsupported failure handler shape %T", h))
	}
}

// defaultFailureHandler denies with a DeniedError carrying the full check
// context. Framework bindings replace this hook with their own denial
// convention.
func defaultFailureHandler(_ context.Context, d *Denial) error {
	return &DeniedError{Predicate: d.Predicate, User: d.User, Target: d.Target}
}

// defaultUserLoader fails: checks without an explicit user require a real
// loader to have been registered.
func defaultUserLoader(_ context.Context) (any, error) {
	return nil, ErrUserLoaderNotRegistered
}
