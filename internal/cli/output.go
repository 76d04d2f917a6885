package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcoot/quill/internal/api/response"
	"github.com/mcoot/quill/internal/client/pages"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(toJSON(data))
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

// HealthResult is the server health
type HealthResult struct {
	Status string `json:"status"`
	Server string `json:"server"`
	// SignedIn reports whether a session token is stored locally
	SignedIn bool `json:"signed_in"`
}

// Transition is a session change observed by watch
type Transition struct {
	Time     time.Time          `json:"time"`
	State    string             `json:"state"`
	Identity *response.Identity `json:"identity,omitempty"`
}

// NewTransition describes a session snapshot
func NewTransition(at time.Time, snap session.Snapshot) Transition {
	t := Transition{Time: at, State: snap.State.String()}
	if snap.Identity != nil {
		identity := response.IdentityFromModel(snap.Identity)
		t.Identity = &identity
	}
	return t
}

// postJSON is a post with the viewer's permissions
type postJSON struct {
	response.Post
	CanEdit bool `json:"can_edit"`
}

type profileJSON struct {
	Identity response.Identity `json:"identity"`
	Posts    []postJSON        `json:"posts"`
}

// toJSON converts domain values into their wire representation
func toJSON(data any) any {
	switch v := data.(type) {
	case *model.Identity:
		return response.IdentityFromModel(v)
	case *model.Post:
		return response.PostFromModel(v)
	case pages.PostView:
		return postJSON{Post: response.PostFromModel(v.Post), CanEdit: v.CanEdit}
	case []pages.PostView:
		out := make([]postJSON, 0, len(v))
		for _, p := range v {
			out = append(out, postJSON{Post: response.PostFromModel(p.Post), CanEdit: p.CanEdit})
		}
		return out
	case pages.ProfileData:
		return profileJSON{Identity: response.IdentityFromModel(v.Identity), Posts: toJSON(v.Posts).([]postJSON)}
	default:
		return data
	}
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case *model.Identity:
		o.printIdentity(v)
	case *model.Post:
		o.printPost(v, false)
	case pages.PostView:
		o.printPost(v.Post, v.CanEdit)
	case []pages.PostView:
		o.printPostList(v)
	case pages.ProfileData:
		o.printIdentity(v.Identity)
		_, _ = fmt.Fprintln(o.w)
		_, _ = fmt.Fprintln(o.w, "My posts:")
		if len(v.Posts) == 0 {
			_, _ = fmt.Fprintln(o.w, "  You haven't written any posts yet.")
			return
		}
		o.printPostList(v.Posts)
	case Transition:
		line := fmt.Sprintf("[%s] %s", v.Time.Format(time.TimeOnly), v.State)
		if v.Identity != nil {
			line += fmt.Sprintf(" as %s (%s)", v.Identity.DisplayName, v.Identity.ID)
		}
		_, _ = fmt.Fprintln(o.w, line)
	case HealthResult:
		_, _ = fmt.Fprintf(o.w, "Status: %s\nServer: %s\n", v.Status, v.Server)
		if v.SignedIn {
			_, _ = fmt.Fprintln(o.w, "Session token: stored")
		}
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printIdentity(i *model.Identity) {
	_, _ = fmt.Fprintf(o.w, "Name: %s (%s)\n", i.DisplayName, i.ID)
	if i.Email != "" {
		_, _ = fmt.Fprintf(o.w, "Email: %s\n", i.Email)
	}
	if i.Bio != "" {
		_, _ = fmt.Fprintf(o.w, "Bio: %s\n", i.Bio)
	}
	if i.Website != "" {
		_, _ = fmt.Fprintf(o.w, "Website: %s\n", i.Website)
	}
	if i.AvatarURL != "" {
		_, _ = fmt.Fprintf(o.w, "Avatar: %s\n", i.AvatarURL)
	}
}

func (o *Output) printPost(p *model.Post, canEdit bool) {
	_, _ = fmt.Fprintf(o.w, "%s\n", p.Title)
	_, _ = fmt.Fprintf(o.w, "%s\n", strings.Repeat("=", len([]rune(p.Title))))
	_, _ = fmt.Fprintf(o.w, "ID: %s\n", p.ID)
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", statusLabel(p))
	if p.PublishedAt != nil {
		_, _ = fmt.Fprintf(o.w, "Published: %s\n", p.PublishedAt.Format(time.DateOnly))
	}
	if p.CoverImage != "" {
		_, _ = fmt.Fprintf(o.w, "Cover: %s\n", p.CoverImage)
	}
	if canEdit {
		_, _ = fmt.Fprintf(o.w, "Edit: quill posts edit %s\n", p.ID)
	}
	_, _ = fmt.Fprintln(o.w)
	_, _ = fmt.Fprintln(o.w, p.Content)
}

func (o *Output) printPostList(posts []pages.PostView) {
	if len(posts) == 0 {
		_, _ = fmt.Fprintln(o.w, "Nothing has been published yet.")
		return
	}
	for _, v := range posts {
		mark := ""
		if v.CanEdit {
			mark = " *"
		}
		_, _ = fmt.Fprintf(o.w, "  %s  [%s] %s%s\n", v.Post.ID, statusLabel(v.Post), v.Post.Title, mark)
		if v.Post.Excerpt != "" {
			_, _ = fmt.Fprintf(o.w, "      %s\n", v.Post.Excerpt)
		}
	}
}

func statusLabel(p *model.Post) string {
	if p.IsPublished() {
		return "Published"
	}
	return "Draft"
}
