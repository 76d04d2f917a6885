package storage

import (
	"context"
	"time"

	"github.com/mcoot/quill/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Identity operations
	SaveIdentity(ctx context.Context, identity *model.Identity) error
	GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error)

	// Credential operations
	// SaveCredential returns model.ErrEmailTaken if the email belongs to another identity
	SaveCredential(ctx context.Context, cred *model.Credential) error
	GetCredential(ctx context.Context, identityID model.IdentityID) (*model.Credential, error)
	GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error)

	// Session operations
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)
	DeleteSession(ctx context.Context, id model.SessionID) error
	GetSessionsForIdentity(ctx context.Context, identityID model.IdentityID) ([]*model.Session, error)
	// DeleteExpiredSessions removes every session expired at now and returns them
	DeleteExpiredSessions(ctx context.Context, now time.Time) ([]*model.Session, error)

	// Post operations
	// CreatePost returns model.ErrPostExists if the id is already in use
	CreatePost(ctx context.Context, post *model.Post) error
	SavePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id model.PostID) (*model.Post, error)
	DeletePost(ctx context.Context, id model.PostID) error
	QueryPosts(ctx context.Context, filter model.PostFilter) ([]*model.Post, error)

	Close() error
}
