package guard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruleshq/guard/checklog"
	"github.com/ruleshq/guard/hook"
	"github.com/ruleshq/guard/id"
)

// UserLoader resolves the acting user when a check does not supply one
// explicitly.
type UserLoader func(ctx context.Context) (any, error)

// Enforcer decides whether access is allowed and dispatches denials to the
// failure handler. Hooks are mutable for the lifetime of the instance but
// are not guarded against concurrent reconfiguration: set them once at
// startup, read many thereafter.
type Enforcer struct {
	userLoader     UserLoader
	failureHandler FailureHandler
	hooks          *hook.Registry
	pendingHooks   []hook.Hook
	recorder       checklog.Store
	logger         *slog.Logger
}

// New creates an Enforcer. Without options it carries the default hooks:
// a user loader that fails with ErrUserLoaderNotRegistered and a failure
// handler that denies with a DeniedError.
func New(opts ...Option) *Enforcer {
	e := &Enforcer{
		userLoader:     defaultUserLoader,
		failureHandler: defaultFailureHandler,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.pendingHooks) > 0 {
		e.hooks = hook.NewRegistry(e.logger)
		for _, h := range e.pendingHooks {
			e.hooks.Register(h)
		}
		e.pendingHooks = nil
	}
	return e
}

// SetUserLoader replaces the user-resolution hook and returns the installed
// loader. The loader's behavior is not validated at registration time.
func (e *Enforcer) SetUserLoader(fn UserLoader) UserLoader {
	if fn == nil {
		panic("guard: nil user loader")
	}
	e.userLoader = fn
	return fn
}

// SetFailureHandler replaces the failure hook and returns the installed
// handler in canonical form. Accepted shapes are the 0–3 argument prefixes
// of (predicate, user, target) plus the canonical FailureHandler:
//
//	func() error
//	func(guard.Predicate) error
//	func(guard.Predicate, any) error
//	func(guard.Predicate, any, any) error
//	func(ctx context.Context, d *guard.Denial) error
//
// Any other shape panics.
func (e *Enforcer) SetFailureHandler(h any) FailureHandler {
	fh := normalizeHandler(h)
	e.failureHandler = fh
	return fh
}

// Ensure checks that the user satisfies the predicate. On success it
// returns nil with no side effect. On denial it dispatches exactly once to
// the per-call OnFailure handler if supplied, else the configured failure
// handler, and returns that handler's error (nil silences the denial).
//
// The user resolves from AsUser when given; otherwise the user loader is
// invoked exactly once, and its error is returned before the predicate is
// evaluated.
func (e *Enforcer) Ensure(ctx context.Context, p Predicate, opts ...CheckOption) error {
	co := applyCheckOptions(opts)
	user, err := e.resolveUser(ctx, co)
	if err != nil {
		return err
	}
	target := co.resolveTarget(ctx)

	allowed, info := e.evaluate(ctx, p, user, target)
	if allowed {
		return nil
	}

	if e.hooks != nil {
		e.hooks.EmitDenial(ctx, info)
	}
	handler := e.failureHandler
	if co.onFailure != nil {
		handler = co.onFailure
	}
	return handler(ctx, &Denial{Predicate: p, User: user, Target: target})
}

// Test reports the raw predicate result under the same user-resolution rule
// as Ensure. It never touches the failure handler; use it for conditional
// branching rather than enforcement.
func (e *Enforcer) Test(ctx context.Context, p Predicate, opts ...CheckOption) (bool, error) {
	co := applyCheckOptions(opts)
	user, err := e.resolveUser(ctx, co)
	if err != nil {
		return false, err
	}
	allowed, _ := e.evaluate(ctx, p, user, co.resolveTarget(ctx))
	return allowed, nil
}

// Func is the canonical callable shape wrapped by Requires.
type Func func(ctx context.Context) error

// Requires returns a wrapper that runs the check before the wrapped
// callable and blocks it on denial:
//
//	viewSecret := enf.Requires(canRead, guard.WithTargetLoader(loadSecret))(viewSecret)
//
// The user resolves through the configured loader on every invocation; the
// target comes from WithTargetLoader if supplied, else nil. The wrapped
// callable runs only when Ensure returns nil, and its error is returned
// unchanged. OnFailure applies here exactly as on the direct path.
func (e *Enforcer) Requires(p Predicate, opts ...CheckOption) func(Func) Func {
	return func(fn Func) Func {
		return func(ctx context.Context) error {
			if err := e.Ensure(ctx, p, opts...); err != nil {
				return err
			}
			return fn(ctx)
		}
	}
}

// Wrap is the value-returning variant of Requires. On allow it returns the
// wrapped callable's result unchanged; on denial it returns the zero value
// and the failure handler's error.
func Wrap[T any](e *Enforcer, p Predicate, fn func(ctx context.Context) (T, error), opts ...CheckOption) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		if err := e.Ensure(ctx, p, opts...); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	}
}

func (e *Enforcer) resolveUser(ctx context.Context, co *checkOptions) (any, error) {
	if co.hasUser {
		return co.user, nil
	}
	user, err := e.userLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("guard: load user: %w", err)
	}
	return user, nil
}

// evaluate runs the predicate exactly once, firing observation hooks around
// it and recording the outcome to the audit store.
func (e *Enforcer) evaluate(ctx context.Context, p Predicate, user, target any) (bool, *CheckInfo) {
	start := time.Now()
	info := &CheckInfo{Predicate: predicateName(p), User: user, Target: target}
	if e.hooks != nil {
		e.hooks.EmitBeforeCheck(ctx, info)
	}

	info.Allowed = p.Test(ctx, user, target)
	info.EvalTime = time.Since(start)

	if e.hooks != nil {
		e.hooks.EmitAfterCheck(ctx, info)
	}
	e.record(ctx, info)
	return info.Allowed, info
}

// record writes an audit entry. Recorder failures are logged, never
// propagated: auditing must not block enforcement.
func (e *Enforcer) record(ctx context.Context, info *CheckInfo) {
	if e.recorder == nil {
		return
	}
	decision := checklog.DecisionDeny
	if info.Allowed {
		decision = checklog.DecisionAllow
	}
	entry := &checklog.Entry{
		ID:         id.NewEntryID(),
		Predicate:  info.Predicate,
		User:       fmt.Sprint(info.User),
		Target:     targetString(info.Target),
		Decision:   decision,
		EvalTimeNs: info.EvalTime.Nanoseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.recorder.CreateEntry(ctx, entry); err != nil {
		e.logger.Warn("guard: record check",
			slog.String("predicate", info.Predicate),
			slog.String("error", err.Error()),
		)
	}
}

func targetString(target any) string {
	if target == nil {
		return ""
	}
	return fmt.Sprint(target)
}
