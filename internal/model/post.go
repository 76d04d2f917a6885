package model

import "time"

// PostID uniquely identifies a post
type PostID string

// Visibility is the publication state of a post
type Visibility string

const (
	VisibilityDraft     Visibility = "draft"
	VisibilityPublished Visibility = "published"
)

// Post is a user-authored blog entry
type Post struct {
	ID         PostID
	AuthorID   IdentityID // immutable after creation
	Title      string
	Slug       string
	Content    string // opaque editor payload
	Excerpt    string
	CoverImage string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// PublishedAt is nil while the post is a draft
	PublishedAt *time.Time
}

// Visibility derives the publication state from PublishedAt
func (p *Post) Visibility() Visibility {
	if p.PublishedAt == nil {
		return VisibilityDraft
	}
	return VisibilityPublished
}

// IsPublished reports whether the post is visible to everyone
func (p *Post) IsPublished() bool {
	return p.PublishedAt != nil
}

// Clone returns a deep copy of the post
func (p *Post) Clone() *Post {
	cp := *p
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}

// PostOrder selects how post queries are sorted
type PostOrder string

const (
	OrderCreatedDesc   PostOrder = "created_desc"
	OrderPublishedDesc PostOrder = "published_desc"
)

// PostFilter narrows a post query
type PostFilter struct {
	AuthorID      IdentityID // empty matches all authors
	PublishedOnly bool
	Order         PostOrder
	Limit         int // zero means no limit
}

// Matches reports whether a post satisfies the filter's predicates
func (f PostFilter) Matches(p *Post) bool {
	if f.AuthorID != "" && p.AuthorID != f.AuthorID {
		return false
	}
	if f.PublishedOnly && !p.IsPublished() {
		return false
	}
	return true
}

// PostQuery is a caller-facing listing request. Unlike PostFilter it can ask
// for drafts, which only their author ever receives.
type PostQuery struct {
	AuthorID IdentityID
	Status   Visibility // empty means any status the viewer may see
	Limit    int
}

// PostInput is the writable content of a post
type PostInput struct {
	Title      string `validate:"required,max=200"`
	Content    string
	CoverImage string `validate:"optional_url"`
	// Publish publishes the post as part of the save. It never unpublishes.
	Publish bool
}

// PostPatch is a partial post update. Nil fields are left unchanged.
type PostPatch struct {
	Title      *string `validate:"omitnil,min=1,max=200"`
	Content    *string
	CoverImage *string `validate:"omitnil,optional_url"`
}
