// Package hook defines observation hooks for guard enforcers. Hooks are
// notified of check lifecycle events (evaluation started, completed, denial
// observed) and can react — logging, metrics, tracing, etc.
//
// Each lifecycle event is a separate interface so hooks opt in only to the
// events they care about.
package hook

import "context"

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// BeforeCheck is called before a predicate is evaluated. The info parameter
// is *guard.CheckInfo (passed as any to avoid an import cycle); Allowed and
// EvalTime are not yet populated.
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, info any) error
}

// AfterCheck is called after a predicate evaluation completes, on both the
// allow and deny paths. The info parameter is *guard.CheckInfo.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, info any) error
}

// DenialObserved is called when an enforcement check (Ensure or a wrapped
// callable, never Test) is about to dispatch to the failure handler. It
// fires regardless of whether that handler later silences the denial.
type DenialObserved interface {
	OnDenial(ctx context.Context, info any) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
