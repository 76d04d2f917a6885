package gateway

import (
	"context"

	"github.com/mcoot/quill/internal/model"
)

// Change is a provider-driven session change, such as a sign-out on
// another device, an expired session or an edited profile.
type Change struct {
	// Identity is nil when the session ended
	Identity *model.Identity
}

// SignUpResult is the outcome of a sign-up
type SignUpResult struct {
	Identity *model.Identity
	// ConfirmationRequired means no session was opened
	ConfirmationRequired bool
}

// Provider is the external identity provider. Implementations return
// clienterr values for failures they can classify.
type Provider interface {
	// GetSession reports the persisted session, or nil when there is none
	GetSession(ctx context.Context) (*model.Identity, error)
	// OnSessionChange registers a callback for provider-driven changes
	OnSessionChange(fn func(Change)) (unsubscribe func())
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*model.Identity, error)
	// SignOut ends the current session. Signing out with no session succeeds.
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.Identity, error)
}
