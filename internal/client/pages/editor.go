package pages

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/quill/internal/client/clienterr"
	"github.com/mcoot/quill/internal/client/session"
	"github.com/mcoot/quill/internal/client/view"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/ownership"
)

// DefaultAutosaveDelay is how long the editor waits after the last edit before saving
const DefaultAutosaveDelay = 2 * time.Second

// Draft is the editor's working copy
type Draft struct {
	ID         model.PostID
	Title      string
	Content    string
	CoverImage string
	Published  bool
	// Persisted is set once the store holds the post
	Persisted bool
}

// EditorOption configures an Editor
type EditorOption func(*editorConfig)

type editorConfig struct {
	delay   time.Duration
	logger  *slog.Logger
	onError func(error)
}

// WithAutosaveDelay overrides DefaultAutosaveDelay
func WithAutosaveDelay(d time.Duration) EditorOption {
	return func(c *editorConfig) { c.delay = d }
}

// WithEditorLogger sets the editor logger
func WithEditorLogger(logger *slog.Logger) EditorOption {
	return func(c *editorConfig) { c.logger = logger }
}

// WithAutosaveErrors receives autosave failures
func WithAutosaveErrors(fn func(error)) EditorOption {
	return func(c *editorConfig) { c.onError = fn }
}

// Editor edits one post owned by the signed-in identity
type Editor struct {
	store     ResourceStore
	autosaver *view.Autosaver
	logger    *slog.Logger

	mu    sync.Mutex
	draft Draft

	// persistMu serialises writes to the store
	persistMu sync.Mutex
}

func newEditor(ctx context.Context, store ResourceStore, draft Draft, opts []EditorOption) *Editor {
	cfg := editorConfig{delay: DefaultAutosaveDelay, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With(slog.String("component", "editor"), slog.String("post_id", string(draft.ID)))

	var onError func(string, error)
	if cfg.onError != nil {
		onError = func(_ string, err error) { cfg.onError(err) }
	}
	return &Editor{
		store:     store,
		autosaver: view.NewAutosaver(ctx, cfg.delay, onError, logger),
		logger:    logger,
		draft:     draft,
	}
}

// NewEditor starts a new draft. Its id is assigned here, before anything
// is persisted, so every save of the draft targets the same post.
func NewEditor(ctx context.Context, store ResourceStore, sessions *session.Store, opts ...EditorOption) (*Editor, error) {
	if sessions.CurrentIdentity() == nil {
		return nil, clienterr.Provider("new_post", clienterr.ErrUnauthorized)
	}
	draft := Draft{ID: model.PostID(uuid.NewString())}
	return newEditor(ctx, store, draft, opts), nil
}

// OpenEditor loads an existing post for editing. Posts the viewer does not
// own are reported as clienterr.ErrNotFound.
func OpenEditor(ctx context.Context, store ResourceStore, sessions *session.Store, id model.PostID, opts ...EditorOption) (*Editor, error) {
	viewer := sessions.CurrentIdentity()
	if viewer == nil {
		return nil, clienterr.Provider("edit_post", clienterr.ErrUnauthorized)
	}
	post, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !ownership.CanEdit(post, viewer) {
		return nil, clienterr.ErrNotFound
	}
	draft := Draft{
		ID:         post.ID,
		Title:      post.Title,
		Content:    post.Content,
		CoverImage: post.CoverImage,
		Published:  post.IsPublished(),
		Persisted:  true,
	}
	return newEditor(ctx, store, draft, opts), nil
}

// Draft returns the working copy
func (e *Editor) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// ID returns the post id
func (e *Editor) ID() model.PostID {
	return e.Draft().ID
}

// SetTitle edits the title and schedules an autosave
func (e *Editor) SetTitle(title string) {
	e.edit(func(d *Draft) { d.Title = title })
}

// SetContent replaces the content payload and schedules an autosave
func (e *Editor) SetContent(content string) {
	e.edit(func(d *Draft) { d.Content = content })
}

// SetCoverImage edits the cover image and schedules an autosave
func (e *Editor) SetCoverImage(url string) {
	e.edit(func(d *Draft) { d.CoverImage = url })
}

func (e *Editor) edit(fn func(*Draft)) {
	e.mu.Lock()
	fn(&e.draft)
	id := e.draft.ID
	untitled := strings.TrimSpace(e.draft.Title) == ""
	e.mu.Unlock()

	if untitled {
		// Nothing worth saving yet
		e.autosaver.Cancel(string(id))
		return
	}
	e.autosaver.Schedule(string(id), func(ctx context.Context) error {
		_, err := e.persist(ctx)
		return err
	})
}

// AutosavePending reports whether an autosave is scheduled or running
func (e *Editor) AutosavePending() bool {
	return e.autosaver.Pending(string(e.ID()))
}

// Save persists the draft now, replacing any pending autosave
func (e *Editor) Save(ctx context.Context) (*model.Post, error) {
	e.autosaver.Cancel(string(e.ID()))
	return e.persist(ctx)
}

// Publish saves the draft and makes it public
func (e *Editor) Publish(ctx context.Context) (*model.Post, error) {
	if _, err := e.Save(ctx); err != nil {
		return nil, err
	}
	post, err := e.store.Publish(ctx, e.ID())
	if err != nil {
		return nil, notFound(err)
	}
	e.markPublished(post.IsPublished())
	return post, nil
}

// Unpublish moves the post back to drafts
func (e *Editor) Unpublish(ctx context.Context) (*model.Post, error) {
	if !e.Draft().Persisted {
		return nil, clienterr.ErrNotFound
	}
	post, err := e.store.Unpublish(ctx, e.ID())
	if err != nil {
		return nil, notFound(err)
	}
	e.markPublished(post.IsPublished())
	return post, nil
}

// Delete removes the post. Deleting a draft that was never saved only
// drops the pending autosave.
func (e *Editor) Delete(ctx context.Context) error {
	id := e.ID()
	e.autosaver.Cancel(string(id))

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if !e.Draft().Persisted {
		return nil
	}
	if err := e.store.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	e.mu.Lock()
	e.draft.Persisted = false
	e.draft.Published = false
	e.mu.Unlock()
	return nil
}

// Close stops autosaving and waits for a save in progress to finish
func (e *Editor) Close() {
	e.autosaver.Stop()
}

// persist writes the current draft: the first write inserts under the
// draft id, later writes patch it
func (e *Editor) persist(ctx context.Context) (*model.Post, error) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	draft := e.Draft()
	if strings.TrimSpace(draft.Title) == "" {
		return nil, &clienterr.ValidationError{Field: "title", Message: "is required"}
	}

	var post *model.Post
	var err error
	if draft.Persisted {
		post, err = e.store.Update(ctx, draft.ID, model.PostPatch{
			Title:      &draft.Title,
			Content:    &draft.Content,
			CoverImage: &draft.CoverImage,
		})
	} else {
		post, err = e.store.Insert(ctx, draft.ID, model.PostInput{
			Title:      draft.Title,
			Content:    draft.Content,
			CoverImage: draft.CoverImage,
		})
	}
	if err != nil {
		return nil, notFound(err)
	}

	e.mu.Lock()
	e.draft.Persisted = true
	e.draft.Published = post.IsPublished()
	e.mu.Unlock()

	e.logger.Debug("draft saved", slog.Bool("published", post.IsPublished()))
	return post, nil
}

func (e *Editor) markPublished(published bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Published = published
}
