package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ruleshq/guard"
)

// withRequestUser stashes a fixed user in every request context, standing in
// for an authentication layer.
func withRequestUser(user any) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(guard.WithUser(r.Context(), user)))
		})
	}
}

func isAlice(_ context.Context, user, _ any) bool { return user == "alice" }

func newRouter(e *guard.Enforcer, mw func(http.Handler) http.Handler, user any) *chi.Mux {
	r := chi.NewRouter()
	r.Use(withRequestUser(user))
	r.With(mw).Get("/secret", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func TestRequireAllows(t *testing.T) {
	e := NewEnforcer(guard.WithUserLoader(guard.ContextUserLoader))
	router := newRouter(e, Require(e, guard.Named("is-alice", isAlice)), "alice")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("inner handler did not run: %q", rec.Body.String())
	}
}

func TestRequireDenies(t *testing.T) {
	e := NewEnforcer(guard.WithUserLoader(guard.ContextUserLoader))
	inner := false
	router := chi.NewRouter()
	router.Use(withRequestUser("bob"))
	router.With(Require(e, guard.Named("is-alice", isAlice))).Get("/secret", func(http.ResponseWriter, *http.Request) {
		inner = true
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if inner {
		t.Fatal("inner handler ran despite denial")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON deny response, got %q", ct)
	}
}

func TestRequireTargetFunc(t *testing.T) {
	e := NewEnforcer(guard.WithUserLoader(guard.ContextUserLoader))
	ownsDoc := guard.Named("owns-doc", func(_ context.Context, _, target any) bool {
		return target == "doc-1"
	})

	mw := Require(e, ownsDoc, WithTargetFunc(func(r *http.Request) any {
		return chi.URLParam(r, "id")
	}))

	router := chi.NewRouter()
	router.Use(withRequestUser("alice"))
	router.With(mw).Get("/docs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/doc-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owned doc, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/doc-2", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign doc, got %d", rec.Code)
	}
}

func TestRequireAnyAndAll(t *testing.T) {
	e := NewEnforcer(guard.WithUserLoader(guard.ContextUserLoader))
	never := guard.Named("never", func(context.Context, any, any) bool { return false })
	alice := guard.Named("is-alice", isAlice)

	anyRouter := newRouter(e, RequireAny(e, []guard.Predicate{never, alice}), "alice")
	rec := httptest.NewRecorder()
	anyRouter.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("RequireAny: expected 200, got %d", rec.Code)
	}

	allRouter := newRouter(e, RequireAll(e, []guard.Predicate{never, alice}), "alice")
	rec = httptest.NewRecorder()
	allRouter.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("RequireAll: expected 403, got %d", rec.Code)
	}
}

func TestBindingEnforcerSignalsForbidden(t *testing.T) {
	e := NewEnforcer()
	deny := guard.Named("deny-all", func(context.Context, any, any) bool { return false })

	err := e.Ensure(context.Background(), deny, guard.AsUser("alice"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// The binding carries no denial context.
	var denied *guard.DeniedError
	if errors.As(err, &denied) {
		t.Fatal("binding error should not carry DeniedError payload")
	}
}
