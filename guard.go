// Package guard provides framework-agnostic authorization enforcement for Go.
//
// Guard evaluates a caller-supplied permission predicate against an acting
// user and an optional target object. The Enforcer owns two pluggable hooks,
// a user loader and a failure handler, and exposes an imperative check
// (Ensure), a boolean query (Test), and callable wrappers (Requires, Wrap).
// Predicate composition, persistence, and role modeling live entirely in
// predicate implementations; guard only decides and dispatches.
//
//	enf := guard.New(
//	    guard.WithUserLoader(guard.ContextUserLoader),
//	)
//	err := enf.Ensure(ctx, isOwner,
//	    guard.AsUser(alice),
//	    guard.WithTarget(doc),
//	)
package guard

import (
	"context"
	"fmt"
	"time"
)

// Predicate decides whether a user may act on a target. Implementations are
// treated as immutable capabilities; guard never inspects them beyond Test
// and the optional Name method.
type Predicate interface {
	Test(ctx context.Context, user, target any) bool
}

// Namer is the optional interface a predicate implements to label itself in
// denial messages, audit entries, and metrics.
type Namer interface {
	Name() string
}

// PredicateFunc adapts a plain function to the Predicate interface.
type PredicateFunc func(ctx context.Context, user, target any) bool

// Test implements Predicate.
func (f PredicateFunc) Test(ctx context.Context, user, target any) bool {
	return f(ctx, user, target)
}

// Named returns a predicate with an explicit name.
func Named(name string, fn func(ctx context.Context, user, target any) bool) Predicate {
	return &namedPredicate{name: name, fn: fn}
}

type namedPredicate struct {
	name string
	fn   func(ctx context.Context, user, target any) bool
}

func (p *namedPredicate) Test(ctx context.Context, user, target any) bool {
	return p.fn(ctx, user, target)
}

func (p *namedPredicate) Name() string { return p.name }

// predicateName returns the predicate's declared name, falling back to its
// dynamic type.
func predicateName(p Predicate) string {
	if n, ok := p.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}

// Denial describes a failed check. It is handed to the failure handler,
// which is the sole arbiter of the application-visible consequence.
type Denial struct {
	Predicate Predicate
	User      any
	Target    any
}

// CheckInfo describes a single predicate evaluation. It is passed (as any)
// to observation hooks and drives audit recording.
type CheckInfo struct {
	Predicate string
	User      any
	Target    any
	Allowed   bool
	EvalTime  time.Duration
}
