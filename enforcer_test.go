package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

var (
	allowAll = Named("allow-all", func(context.Context, any, any) bool { return true })
	denyAll  = Named("deny-all", func(context.Context, any, any) bool { return false })
)

// countingPredicate records how often it was evaluated.
type countingPredicate struct {
	result bool
	calls  int
}

func (p *countingPredicate) Test(context.Context, any, any) bool {
	p.calls++
	return p.result
}

func staticLoader(user any) (UserLoader, *int) {
	calls := new(int)
	return func(context.Context) (any, error) {
		*calls++
		return user, nil
	}, calls
}

func TestEnsureAllowed(t *testing.T) {
	enf := New()
	if err := enf.Ensure(context.Background(), allowAll, AsUser("alice")); err != nil {
		t.Fatal(err)
	}
}

func TestEnsureDeniedDefaultHandler(t *testing.T) {
	enf := New()
	err := enf.Ensure(context.Background(), denyAll, AsUser("alice"), WithTarget("doc-1"))
	if err == nil {
		t.Fatal("expected denial")
	}
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected DeniedError, got %T", err)
	}
	if denied.User != "alice" || denied.Target != "doc-1" {
		t.Fatalf("denial payload mismatch: %+v", denied)
	}
	if !strings.Contains(err.Error(), "alice") {
		t.Fatalf("message should embed the user: %q", err.Error())
	}
}

func TestEnsureEvaluatesPredicateAtMostOnce(t *testing.T) {
	for _, result := range []bool{true, false} {
		p := &countingPredicate{result: result}
		enf := New(WithFailureHandler(func() error { return nil }))
		_ = enf.Ensure(context.Background(), p, AsUser("u"))
		if p.calls != 1 {
			t.Fatalf("result=%v: predicate evaluated %d times", result, p.calls)
		}
	}
}

func TestEnsureDispatchesHandlerExactlyOnce(t *testing.T) {
	calls := 0
	enf := New(WithFailureHandler(func() error {
		calls++
		return nil
	}))

	if err := enf.Ensure(context.Background(), denyAll, AsUser("u")); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 handler call, got %d", calls)
	}

	// Allowed checks never touch the handler.
	_ = enf.Ensure(context.Background(), allowAll, AsUser("u"))
	if calls != 1 {
		t.Fatalf("handler invoked on allow: %d calls", calls)
	}
}

func TestTestMatchesPredicateWithoutHandler(t *testing.T) {
	handlerCalls := 0
	enf := New(WithFailureHandler(func() error {
		handlerCalls++
		return nil
	}))

	ok, err := enf.Test(context.Background(), allowAll, AsUser("u"))
	if err != nil || !ok {
		t.Fatalf("expected true, got %v %v", ok, err)
	}
	ok, err = enf.Test(context.Background(), denyAll, AsUser("u"))
	if err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}
	if handlerCalls != 0 {
		t.Fatalf("Test must never invoke the failure handler, got %d calls", handlerCalls)
	}
}

func TestExplicitUserSkipsLoader(t *testing.T) {
	loader, calls := staticLoader("loaded")
	enf := New(WithUserLoader(loader))

	if err := enf.Ensure(context.Background(), allowAll, AsUser("explicit")); err != nil {
		t.Fatal(err)
	}
	if *calls != 0 {
		t.Fatalf("loader invoked %d times despite explicit user", *calls)
	}
}

func TestOmittedUserInvokesLoaderOnce(t *testing.T) {
	loader, calls := staticLoader("alice")
	seen := ""
	enf := New(
		WithUserLoader(loader),
		WithFailureHandler(func(_ Predicate, user any) error {
			seen = user.(string)
			return nil
		}),
	)

	if err := enf.Ensure(context.Background(), denyAll); err != nil {
		t.Fatal(err)
	}
	if *calls != 1 {
		t.Fatalf("loader invoked %d times, expected 1", *calls)
	}
	if seen != "alice" {
		t.Fatalf("handler saw user %q", seen)
	}
}

func TestDefaultLoaderFailsBeforePredicate(t *testing.T) {
	p := &countingPredicate{result: true}
	enf := New()

	err := enf.Ensure(context.Background(), p)
	if !errors.Is(err, ErrUserLoaderNotRegistered) {
		t.Fatalf("expected ErrUserLoaderNotRegistered, got %v", err)
	}
	if p.calls != 0 {
		t.Fatal("predicate evaluated despite missing user loader")
	}

	if _, err := enf.Test(context.Background(), p); !errors.Is(err, ErrUserLoaderNotRegistered) {
		t.Fatalf("expected ErrUserLoaderNotRegistered from Test, got %v", err)
	}
}

func TestOnFailureOverridesPerCall(t *testing.T) {
	configured := 0
	enf := New(WithFailureHandler(func() error {
		configured++
		return nil
	}))

	override := errors.New("custom denial")
	err := enf.Ensure(context.Background(), denyAll, AsUser("u"), OnFailure(func() error { return override }))
	if !errors.Is(err, override) {
		t.Fatalf("expected override error, got %v", err)
	}
	if configured != 0 {
		t.Fatal("configured handler ran despite per-call override")
	}

	// The override is per-call: the configured handler is back afterwards.
	if err := enf.Ensure(context.Background(), denyAll, AsUser("u")); err != nil {
		t.Fatal(err)
	}
	if configured != 1 {
		t.Fatalf("configured handler not restored, %d calls", configured)
	}
}

func TestSilencingHandler(t *testing.T) {
	enf := New(WithFailureHandler(func() error { return nil }))
	if err := enf.Ensure(context.Background(), denyAll, AsUser("u")); err != nil {
		t.Fatalf("silenced denial should return nil, got %v", err)
	}
}

func TestSetters(t *testing.T) {
	enf := New()

	installed := enf.SetUserLoader(func(context.Context) (any, error) { return "bob", nil })
	if installed == nil {
		t.Fatal("SetUserLoader should return the installed loader")
	}
	ok, err := enf.Test(context.Background(), Named("is-bob", func(_ context.Context, u, _ any) bool {
		return u == "bob"
	}))
	if err != nil || !ok {
		t.Fatalf("loader not installed: %v %v", ok, err)
	}

	marker := errors.New("marker")
	fh := enf.SetFailureHandler(func() error { return marker })
	if fh == nil {
		t.Fatal("SetFailureHandler should return the canonical handler")
	}
	if err := enf.Ensure(context.Background(), denyAll); !errors.Is(err, marker) {
		t.Fatalf("handler not installed, got %v", err)
	}
}

func TestNilUserLoaderPanics(t *testing.T) {
	t.Run("setter", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("SetUserLoader(nil) should panic")
			}
		}()
		New().SetUserLoader(nil)
	})

	t.Run("option", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("WithUserLoader(nil) should panic")
			}
		}()
		New(WithUserLoader(nil))
	})
}

func TestRequiresWrapsCallable(t *testing.T) {
	loader, _ := staticLoader("alice")
	enf := New(WithUserLoader(loader))

	ran := 0
	fn := func(context.Context) error {
		ran++
		return nil
	}

	allowed := enf.Requires(allowAll)(fn)
	if err := allowed(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ran != 1 {
		t.Fatalf("wrapped callable ran %d times, expected 1", ran)
	}

	handlerCalls := 0
	blocked := enf.Requires(denyAll, OnFailure(func() error {
		handlerCalls++
		return ErrAccessDenied
	}))(fn)
	if err := blocked(context.Background()); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected denial, got %v", err)
	}
	if ran != 1 {
		t.Fatal("wrapped callable ran despite denial")
	}
	if handlerCalls != 1 {
		t.Fatalf("expected 1 handler call, got %d", handlerCalls)
	}
}

func TestRequiresResolvesTargetPerInvocation(t *testing.T) {
	loader, _ := staticLoader("alice")
	enf := New(WithUserLoader(loader))

	next := 0
	targets := []any{}
	ownsEven := Named("owns-even", func(_ context.Context, _, target any) bool {
		targets = append(targets, target)
		return target.(int)%2 == 0
	})

	wrapped := enf.Requires(ownsEven, WithTargetLoader(func(context.Context) any {
		next++
		return next
	}), OnFailure(func() error { return ErrAccessDenied }))(func(context.Context) error { return nil })

	if err := wrapped(context.Background()); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("target 1 should deny, got %v", err)
	}
	if err := wrapped(context.Background()); err != nil {
		t.Fatalf("target 2 should allow, got %v", err)
	}
	if fmt.Sprint(targets) != "[1 2]" {
		t.Fatalf("unexpected targets: %v", targets)
	}
}

func TestRequiresSilencedDenialRunsCallable(t *testing.T) {
	loader, _ := staticLoader("alice")
	enf := New(WithUserLoader(loader), WithFailureHandler(func() error { return nil }))

	ran := false
	wrapped := enf.Requires(denyAll)(func(context.Context) error {
		ran = true
		return nil
	})
	if err := wrapped(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("silenced denial should let the callable run")
	}
}

func TestWrapReturnsResultUnchanged(t *testing.T) {
	loader, _ := staticLoader("alice")
	enf := New(WithUserLoader(loader))

	fetch := Wrap(enf, allowAll, func(context.Context) (string, error) {
		return "secret", nil
	})
	got, err := fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "secret" {
		t.Fatalf("expected secret, got %q", got)
	}

	blocked := Wrap(enf, denyAll, func(context.Context) (string, error) {
		t.Fatal("callable must not run on denial")
		return "", nil
	})
	got, err = blocked(context.Background())
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected denial, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected zero value, got %q", got)
	}
}
