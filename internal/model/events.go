package model

import "time"

// EventType identifies the type of session event
type EventType string

const (
	EventSignedIn        EventType = "signed_in"
	EventSignedOut       EventType = "signed_out"
	EventSessionExpired  EventType = "session_expired"
	EventIdentityUpdated EventType = "identity_updated"
)

// SessionEvent is pushed to every connected client of an identity when
// the provider changes session state outside the client's own calls
type SessionEvent struct {
	Type       EventType
	Timestamp  time.Time
	IdentityID IdentityID
	// SessionID is empty when the event applies to all sessions of the identity
	SessionID SessionID
	Identity  *Identity // set for identity_updated
}

// AppliesTo reports whether the event targets the given session
func (e SessionEvent) AppliesTo(id SessionID) bool {
	return e.SessionID == "" || e.SessionID == id
}
