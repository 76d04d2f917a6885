package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	identities  map[model.IdentityID]*model.Identity
	credentials map[model.IdentityID]*model.Credential
	emailIndex  map[string]model.IdentityID
	sessions    map[model.SessionID]*model.Session
	posts       map[model.PostID]*model.Post
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		identities:  make(map[model.IdentityID]*model.Identity),
		credentials: make(map[model.IdentityID]*model.Credential),
		emailIndex:  make(map[string]model.IdentityID),
		sessions:    make(map[model.SessionID]*model.Session),
		posts:       make(map[model.PostID]*model.Post),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Close() error {
	return nil
}

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *identity
	s.identities[identity.ID] = &cp
	return nil
}

func (s *Storage) GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	cp := *identity
	return &cp, nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.emailIndex[cred.Email]; ok && owner != cred.IdentityID {
		return model.ErrEmailTaken
	}
	cp := *cred
	s.credentials[cred.IdentityID] = &cp
	s.emailIndex[cred.Email] = cred.IdentityID
	return nil
}

func (s *Storage) GetCredential(ctx context.Context, identityID model.IdentityID) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[identityID]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	cp := *cred
	return &cp, nil
}

func (s *Storage) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identityID, ok := s.emailIndex[email]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	cred, ok := s.credentials[identityID]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	cp := *cred
	return &cp, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Storage) GetSessionsForIdentity(ctx context.Context, identityID model.IdentityID) ([]*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []*model.Session
	for _, session := range s.sessions {
		if session.IdentityID == identityID {
			cp := *session
			sessions = append(sessions, &cp)
		}
	}
	return sessions, nil
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*model.Session
	for id, session := range s.sessions {
		if session.Expired(now) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	return expired, nil
}

// Post operations

func (s *Storage) CreatePost(ctx context.Context, post *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; ok {
		return model.ErrPostExists
	}
	s.posts[post.ID] = post.Clone()
	return nil
}

func (s *Storage) SavePost(ctx context.Context, post *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = post.Clone()
	return nil
}

func (s *Storage) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	return post.Clone(), nil
}

func (s *Storage) DeletePost(ctx context.Context, id model.PostID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
	return nil
}

func (s *Storage) QueryPosts(ctx context.Context, filter model.PostFilter) ([]*model.Post, error) {
	s.mu.RLock()
	all := make([]*model.Post, 0, len(s.posts))
	for _, post := range s.posts {
		all = append(all, post.Clone())
	}
	s.mu.RUnlock()
	return storage.ApplyFilter(all, filter), nil
}
