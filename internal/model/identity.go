package model

import "time"

// IdentityID uniquely identifies an authenticated user across the system
type IdentityID string

// Identity is the public-facing user record created on sign-up
type Identity struct {
	ID          IdentityID
	Email       string // only ever shown to the identity itself
	DisplayName string
	AvatarURL   string
	Bio         string
	Website     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Public returns a copy of the identity with owner-only fields cleared
func (i *Identity) Public() *Identity {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Email = ""
	return &cp
}

// Equal reports whether two identities carry the same values
func (i *Identity) Equal(other *Identity) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.ID == other.ID &&
		i.Email == other.Email &&
		i.DisplayName == other.DisplayName &&
		i.AvatarURL == other.AvatarURL &&
		i.Bio == other.Bio &&
		i.Website == other.Website &&
		i.UpdatedAt.Equal(other.UpdatedAt)
}

// Credential holds the login data for an identity
// Stored separately so password hashes never travel with the identity
type Credential struct {
	IdentityID       IdentityID
	Email            string // login email, lower-cased (immutable)
	PasswordHash     string // bcrypt hash
	ConfirmationCode string // empty once confirmed
	Confirmed        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProfileUpdate carries the mutable identity fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName *string `validate:"omitnil,min=1,max=50"`
	AvatarURL   *string `validate:"omitnil,optional_url"`
	Bio         *string `validate:"omitnil,max=500"`
	Website     *string `validate:"omitnil,optional_url"`
}
