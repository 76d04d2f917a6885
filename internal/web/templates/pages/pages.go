// Package pages holds the web page components.
package pages

import (
	"github.com/a-h/templ"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/web/templates/layout"
)

const dateFormat = "2 Jan 2006"

// HomeData is the data for the home page
type HomeData struct {
	layout.PageData
	Posts []*model.Post
}

// PostData is the data for a single post page
type PostData struct {
	layout.PageData
	Post   *model.Post
	Author *model.Identity // nil if the author could not be loaded
	// Body is the post content after sanitization
	Body    string
	CanEdit bool
}

// EditorData is the data for the write and edit pages
type EditorData struct {
	layout.PageData
	// Post is nil on the write page
	Post        *model.Post
	Title       string
	Content     string
	CoverImage  string
	Error       string
	FieldErrors map[string]string
}

// ProfileData is the data for the viewer's own profile page
type ProfileData struct {
	layout.PageData
	Posts       []*model.Post
	FieldErrors map[string]string
}

// AuthData is the data for the sign-in / sign-up page
type AuthData struct {
	layout.PageData
	Email       string
	Error       string
	FieldErrors map[string]string
	// ConfirmEmail switches the page to the confirmation code form
	ConfirmEmail string
}

// ErrorData is the data for error pages
type ErrorData struct {
	layout.PageData
	Message string
}

// imageURL neutralises unsafe schemes in user supplied image sources
func imageURL(s string) string {
	return string(templ.URL(s))
}

func postURL(id model.PostID) templ.SafeURL {
	return templ.URL("/post/" + string(id))
}

func editURL(id model.PostID) templ.SafeURL {
	return templ.URL("/edit/" + string(id))
}

func editorAction(p *model.Post) templ.SafeURL {
	if p == nil {
		return "/write"
	}
	return editURL(p.ID)
}

func postAction(id model.PostID, action string) templ.SafeURL {
	return templ.URL("/edit/" + string(id) + "/" + action)
}
