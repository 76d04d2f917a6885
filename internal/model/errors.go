package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrIdentityNotFound = errors.New("identity not found")
	ErrEmailTaken       = errors.New("email already registered")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Post errors
	// ErrPostNotFound is also returned when a post exists but the viewer may not see or change it
	ErrPostNotFound = errors.New("post not found")
	ErrPostExists   = errors.New("post already exists")
	ErrInvalidPost  = errors.New("invalid post")
)
