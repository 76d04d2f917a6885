package response

import (
	"time"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/services/auth"
)

// Identity represents an identity in API responses
type Identity struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Website     string    `json:"website,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IdentityFromModel converts a model.Identity to a response Identity
func IdentityFromModel(i *model.Identity) Identity {
	return Identity{
		ID:          string(i.ID),
		Email:       i.Email,
		DisplayName: i.DisplayName,
		AvatarURL:   i.AvatarURL,
		Bio:         i.Bio,
		Website:     i.Website,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// ToModel converts the response back into a model.Identity
func (i Identity) ToModel() *model.Identity {
	return &model.Identity{
		ID:          model.IdentityID(i.ID),
		Email:       i.Email,
		DisplayName: i.DisplayName,
		AvatarURL:   i.AvatarURL,
		Bio:         i.Bio,
		Website:     i.Website,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// AuthResponse is the response for endpoints that open a session
type AuthResponse struct {
	Identity     Identity  `json:"identity"`
	SessionToken string    `json:"session_token"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Identity:     IdentityFromModel(&s.Identity),
		SessionToken: s.Token,
		SessionID:    string(s.ID),
		ExpiresAt:    s.ExpiresAt,
	}
}

// SignUpResponse is the response for sign-up. Session is absent when
// the account must be confirmed first.
type SignUpResponse struct {
	Identity             Identity      `json:"identity"`
	ConfirmationRequired bool          `json:"confirmation_required"`
	Session              *AuthResponse `json:"session,omitempty"`
}

// SignUpResponseFromResult converts an auth.SignUpResult
func SignUpResponseFromResult(r *auth.SignUpResult) SignUpResponse {
	resp := SignUpResponse{
		Identity:             IdentityFromModel(&r.Identity),
		ConfirmationRequired: r.ConfirmationRequired,
	}
	if r.Session != nil {
		session := AuthResponseFromSession(r.Session)
		resp.Session = &session
	}
	return resp
}

// SessionResponse describes the caller's current session
type SessionResponse struct {
	Identity  Identity  `json:"identity"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponseFromSession converts an auth.Session
func SessionResponseFromSession(s *auth.Session) SessionResponse {
	return SessionResponse{
		Identity:  IdentityFromModel(&s.Identity),
		SessionID: string(s.ID),
		ExpiresAt: s.ExpiresAt,
	}
}

// Post represents a post in API responses
type Post struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt"`
	CoverImage  string     `json:"cover_image,omitempty"`
	Visibility  string     `json:"visibility"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// PostFromModel converts a model.Post to a response Post
func PostFromModel(p *model.Post) Post {
	return Post{
		ID:          string(p.ID),
		AuthorID:    string(p.AuthorID),
		Title:       p.Title,
		Slug:        p.Slug,
		Content:     p.Content,
		Excerpt:     p.Excerpt,
		CoverImage:  p.CoverImage,
		Visibility:  string(p.Visibility()),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		PublishedAt: p.PublishedAt,
	}
}

// ToModel converts the response back into a model.Post
func (p Post) ToModel() *model.Post {
	return &model.Post{
		ID:          model.PostID(p.ID),
		AuthorID:    model.IdentityID(p.AuthorID),
		Title:       p.Title,
		Slug:        p.Slug,
		Content:     p.Content,
		Excerpt:     p.Excerpt,
		CoverImage:  p.CoverImage,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		PublishedAt: p.PublishedAt,
	}
}

// PostList is the response for post listings
type PostList struct {
	Posts []Post `json:"posts"`
}

// PostListFromModel converts a slice of posts, never producing a null list
func PostListFromModel(posts []*model.Post) PostList {
	out := PostList{Posts: make([]Post, 0, len(posts))}
	for _, p := range posts {
		out.Posts = append(out.Posts, PostFromModel(p))
	}
	return out
}

// SessionEvent is the payload of a session event pushed over SSE
type SessionEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Identity  *Identity `json:"identity,omitempty"`
}

// SessionEventFromModel converts a model.SessionEvent
func SessionEventFromModel(e model.SessionEvent) SessionEvent {
	out := SessionEvent{
		Type:      string(e.Type),
		Timestamp: e.Timestamp,
		SessionID: string(e.SessionID),
	}
	if e.Identity != nil {
		identity := IdentityFromModel(e.Identity)
		out.Identity = &identity
	}
	return out
}

// HealthResponse is the response for the health check
type HealthResponse struct {
	Status string `json:"status"`
}
