package guard

import (
	"context"
	"log/slog"

	"github.com/ruleshq/guard/checklog"
	"github.com/ruleshq/guard/hook"
)

// Option is a functional option for the Enforcer.
type Option func(*Enforcer)

// WithUserLoader sets the user-resolution hook. A nil loader panics, same
// as SetUserLoader.
func WithUserLoader(fn UserLoader) Option {
	return func(e *Enforcer) {
		if fn == nil {
			panic("guard: nil user loader")
		}
		e.userLoader = fn
	}
}

// WithFailureHandler sets the failure hook. Any shape accepted by
// SetFailureHandler is allowed.
func WithFailureHandler(h any) Option {
	return func(e *Enforcer) { e.failureHandler = normalizeHandler(h) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Enforcer) { e.logger = l } }

// WithCheckLog sets the audit store; every evaluation is recorded to it.
func WithCheckLog(s checklog.Store) Option { return func(e *Enforcer) { e.recorder = s } }

// WithHook registers an observation hook with the enforcer. Hooks are
// collected while options apply and wired into a registry afterwards, so
// the registry sees the final logger regardless of option order.
func WithHook(h hook.Hook) Option {
	return func(e *Enforcer) { e.pendingHooks = append(e.pendingHooks, h) }
}

// CheckOption is a per-call option for Ensure, Test, Requires, and Wrap.
type CheckOption func(*checkOptions)

type checkOptions struct {
	user         any
	hasUser      bool
	target       any
	hasTarget    bool
	targetLoader func(ctx context.Context) any
	onFailure    FailureHandler
}

// AsUser supplies the acting user explicitly, bypassing the user loader.
func AsUser(user any) CheckOption {
	return func(o *checkOptions) {
		o.user = user
		o.hasUser = true
	}
}

// WithTarget supplies the target object for object-level checks.
func WithTarget(target any) CheckOption {
	return func(o *checkOptions) {
		o.target = target
		o.hasTarget = true
	}
}

// WithTargetLoader supplies a callback that resolves the target at check
// time. An explicit WithTarget wins over the loader.
func WithTargetLoader(fn func(ctx context.Context) any) CheckOption {
	return func(o *checkOptions) { o.targetLoader = fn }
}

// OnFailure overrides the enforcer's failure handler for this call only.
// Any shape accepted by SetFailureHandler is allowed.
func OnFailure(h any) CheckOption {
	return func(o *checkOptions) { o.onFailure = normalizeHandler(h) }
}

func applyCheckOptions(opts []CheckOption) *checkOptions {
	o := &checkOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *checkOptions) resolveTarget(ctx context.Context) any {
	if o.hasTarget {
		return o.target
	}
	if o.targetLoader != nil {
		return o.targetLoader(ctx)
	}
	return nil
}
