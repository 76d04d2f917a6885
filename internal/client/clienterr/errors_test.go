package clienterr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := Provider("sign_in", cause)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "sign_in", perr.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "sign_in: connection refused", err.Error())
}

func TestProviderLeavesTaxonomyAlone(t *testing.T) {
	verr := &ValidationError{Field: "email", Message: "is required"}
	wrapped := fmt.Errorf("context: %w", ErrNotFound)
	perr := &ProviderError{Op: "get", Err: errors.New("boom")}

	assert.Same(t, verr, Provider("sign_up", verr))
	assert.Equal(t, wrapped, Provider("get", wrapped))
	assert.Equal(t, ErrInvalidCredentials, Provider("sign_in", ErrInvalidCredentials))
	assert.Same(t, perr, Provider("other", perr))
	assert.NoError(t, Provider("noop", nil))
}

func TestProviderMarksTimeouts(t *testing.T) {
	err := Provider("sign_in", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var perr *ProviderError
	assert.ErrorAs(t, err, &perr)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ValidationError{Field: "email", Message: "is required"}, "email is required"},
		{&ValidationError{Message: "passwords do not match"}, "passwords do not match"},
		{ErrInvalidCredentials, "Invalid email or password"},
		{fmt.Errorf("post 1: %w", ErrNotFound), "Not found"},
		{Provider("get", context.DeadlineExceeded), "The server took too long to respond, try again"},
		{&ProviderError{Op: "save", Err: ErrUnauthorized}, "You need to sign in first"},
		{&ProviderError{Op: "list", Err: errors.New("HTTP 502")}, "Something went wrong: HTTP 502"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.err))
	}
}
