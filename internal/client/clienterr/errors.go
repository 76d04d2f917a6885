// Package clienterr is the error taxonomy surfaced by the client core.
// Every failure the session gateway or a page reports is one of
// *ValidationError, ErrInvalidCredentials, *ProviderError or ErrNotFound.
package clienterr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when the email/password pair is rejected
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotFound covers both absent resources and resources the viewer may not see
	ErrNotFound = errors.New("not found")
)

// Causes carried inside a *ProviderError
var (
	ErrTimeout           = errors.New("provider did not respond in time")
	ErrUnauthorized      = errors.New("not signed in")
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	ErrStopped           = errors.New("session gateway is not running")
)

// ValidationError reports bad input for a single field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// ProviderError wraps a network or service failure
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Provider wraps err as a *ProviderError for op. Errors that already belong
// to the taxonomy are returned unchanged and deadline expiry becomes ErrTimeout.
func Provider(op string, err error) error {
	if err == nil || IsTaxonomy(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &ProviderError{Op: op, Err: err}
}

// IsTaxonomy reports whether err is already one of the client error kinds
func IsTaxonomy(err error) bool {
	var verr *ValidationError
	var perr *ProviderError
	return errors.As(err, &verr) ||
		errors.As(err, &perr) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrNotFound)
}

// Message renders err for display next to a form or in place of a page
func Message(err error) string {
	var verr *ValidationError
	var perr *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrTimeout):
		return "The server took too long to respond, try again"
	case errors.Is(err, ErrUnauthorized):
		return "You need to sign in first"
	case errors.Is(err, ErrEmailNotConfirmed):
		return "Confirm your email before signing in"
	case errors.As(err, &perr):
		return "Something went wrong: " + perr.Err.Error()
	default:
		return err.Error()
	}
}
