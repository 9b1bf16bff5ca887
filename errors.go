package guard

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied is the generic denial signal. The default failure
	// handler wraps it in a DeniedError; errors.Is matches either.
	ErrAccessDenied = errors.New("guard: access denied")

	// ErrUserLoaderNotRegistered is returned when a check needs the current
	// user but no loader was ever configured. Reaching it is a
	// programming-time contract violation, not a runtime condition.
	ErrUserLoaderNotRegistered = errors.New("guard: user loader not registered")

	// ErrNoUserInContext is returned by ContextUserLoader when the context
	// carries no user.
	ErrNoUserInContext = errors.New("guard: no user in context")
)

// DeniedError is the framework-independent denial produced by the default
// failure handler. It carries the failing predicate, the user, and the
// target so call sites and bindings can translate or inspect the denial.
type DeniedError struct {
	Predicate Predicate
	User      any
	Target    any
}

// Error implements the error interface.
func (e *DeniedError) Error() string {
	return fmt.Sprintf("guard: access denied for user %q (predicate %s)",
		fmt.Sprint(e.User), predicateName(e.Predicate))
}

// Unwrap makes errors.Is(err, ErrAccessDenied) hold for every DeniedError.
func (e *DeniedError) Unwrap() error { return ErrAccessDenied }
