// Package middleware provides the HTTP binding for guard enforcers.
//
// The binding specializes an Enforcer in exactly one way: the default
// failure handler is replaced by one that takes no arguments and signals a
// bare forbidden error, discarding the predicate/user detail. Everything
// else behaves like a plain Enforcer, so a binding enforcer is
// substitutable anywhere one is expected.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ruleshq/guard"
)

// ErrForbidden is the denial signal raised by a binding enforcer's default
// failure handler. It carries no predicate or user context.
var ErrForbidden = errors.New("middleware: forbidden")

// NewEnforcer creates a guard.Enforcer whose default failure handler
// signals ErrForbidden. Options are applied afterwards, so callers may
// still install their own handler on top.
func NewEnforcer(opts ...guard.Option) *guard.Enforcer {
	base := []guard.Option{
		guard.WithFailureHandler(func() error { return ErrForbidden }),
	}
	return guard.New(append(base, opts...)...)
}

// Option configures the middleware wrappers.
type Option func(*config)

type config struct {
	target func(r *http.Request) any
	deny   http.Handler
}

// WithTargetFunc resolves the check target from the request, e.g. by
// loading the record named in a route parameter.
func WithTargetFunc(fn func(r *http.Request) any) Option {
	return func(c *config) { c.target = fn }
}

// WithDenyHandler replaces the default JSON 403 response.
func WithDenyHandler(h http.Handler) Option {
	return func(c *config) { c.deny = h }
}

func newConfig(opts []Option) *config {
	c := &config{deny: http.HandlerFunc(denyResponse)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Require enforces the predicate before the inner handler runs. The user
// resolves through the enforcer's configured loader against the request
// context (guard.ContextUserLoader pairs with guard.WithUser upstream).
// On denial the deny handler answers and the inner handler never runs.
func Require(e *guard.Enforcer, p guard.Predicate, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := e.Ensure(r.Context(), p, cfg.checkOptions(r)...); err != nil {
				cfg.deny.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny allows the request if ANY of the predicates passes.
func RequireAny(e *guard.Enforcer, preds []guard.Predicate, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range preds {
				ok, err := e.Test(r.Context(), p, cfg.checkOptions(r)...)
				if err == nil && ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			cfg.deny.ServeHTTP(w, r)
		})
	}
}

// RequireAll allows the request only if ALL predicates pass.
func RequireAll(e *guard.Enforcer, preds []guard.Predicate, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range preds {
				if err := e.Ensure(r.Context(), p, cfg.checkOptions(r)...); err != nil {
					cfg.deny.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (c *config) checkOptions(r *http.Request) []guard.CheckOption {
	if c.target == nil {
		return nil
	}
	return []guard.CheckOption{guard.WithTarget(c.target(r))}
}

func denyResponse(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "access denied"})
}
