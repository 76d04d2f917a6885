// Package posts is the post store exposed to clients. Every operation runs
// the row-level ownership policy before touching storage.
package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mcoot/quill/internal/dependencies/clock"
	"github.com/mcoot/quill/internal/metrics"
	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/ownership"
	"github.com/mcoot/quill/internal/sanitize"
	"github.com/mcoot/quill/internal/storage"
	"github.com/mcoot/quill/internal/validation"
)

// ErrUnauthenticated is returned when an anonymous viewer attempts a write
var ErrUnauthenticated = errors.New("authentication required")

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	whitespace = regexp.MustCompile(`[\s_-]+`)
)

// Service manages posts on behalf of a viewer
type Service struct {
	storage   storage.Storage
	clock     clock.Clock
	sanitizer *sanitize.Sanitizer
	validate  *validation.Validator
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// New creates a new posts Service
func New(
	storage storage.Storage,
	clock clock.Clock,
	sanitizer *sanitize.Sanitizer,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		storage:   storage,
		clock:     clock,
		sanitizer: sanitizer,
		validate:  validation.New(),
		metrics:   recorder,
		logger:    logger.With(slog.String("component", "posts")),
	}
}

// List returns the posts matching q that the viewer may see
func (s *Service) List(ctx context.Context, viewer *model.Identity, q model.PostQuery) ([]*model.Post, error) {
	own := viewer != nil && q.AuthorID == viewer.ID
	if q.Status == model.VisibilityDraft && !own {
		return []*model.Post{}, nil
	}

	filter := model.PostFilter{
		AuthorID:      q.AuthorID,
		PublishedOnly: q.Status == model.VisibilityPublished || !own,
		Order:         model.OrderCreatedDesc,
		Limit:         q.Limit,
	}
	if filter.PublishedOnly {
		filter.Order = model.OrderPublishedDesc
	}
	if q.Status == model.VisibilityDraft {
		// Drafts are filtered after the query, so the limit can't be pushed down
		filter.Limit = 0
	}

	posts, err := s.storage.QueryPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	posts = ownership.Visible(posts, viewer)

	if q.Status == model.VisibilityDraft {
		drafts := posts[:0]
		for _, p := range posts {
			if !p.IsPublished() {
				drafts = append(drafts, p)
			}
		}
		posts = drafts
		if q.Limit > 0 && len(posts) > q.Limit {
			posts = posts[:q.Limit]
		}
	}
	return posts, nil
}

// Get returns a single post. Drafts belonging to someone else are reported
// as model.ErrPostNotFound.
func (s *Service) Get(ctx context.Context, viewer *model.Identity, id model.PostID) (*model.Post, error) {
	post, err := s.storage.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return ownership.VisibleFields(post, viewer)
}

// Create stores a new post owned by the viewer under a fresh id
func (s *Service) Create(ctx context.Context, viewer *model.Identity, input model.PostInput) (*model.Post, error) {
	post, err := s.create(ctx, viewer, model.PostID(uuid.NewString()), input)
	s.metrics.RecordPostOp("create", metrics.Result(err))
	return post, err
}

// Save upserts a post under a client-assigned id. An absent id is created
// for the viewer; an existing post is updated only if the viewer owns it.
func (s *Service) Save(ctx context.Context, viewer *model.Identity, id model.PostID, input model.PostInput) (*model.Post, error) {
	post, err := s.save(ctx, viewer, id, input)
	s.metrics.RecordPostOp("save", metrics.Result(err))
	return post, err
}

func (s *Service) save(ctx context.Context, viewer *model.Identity, id model.PostID, input model.PostInput) (*model.Post, error) {
	if viewer == nil {
		return nil, ErrUnauthenticated
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidPost, validation.Field("id", "must be a UUID"))
	}

	existing, err := s.storage.GetPost(ctx, id)
	if errors.Is(err, model.ErrPostNotFound) {
		post, err := s.create(ctx, viewer, id, input)
		if !errors.Is(err, model.ErrPostExists) {
			return post, err
		}
		// Lost a race with a concurrent first save; fall through to update
		existing, err = s.storage.GetPost(ctx, id)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if !ownership.CanEdit(existing, viewer) {
		return nil, model.ErrPostNotFound
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	post := existing.Clone()
	s.applyInput(post, input)
	if err := s.storage.SavePost(ctx, post); err != nil {
		return nil, err
	}
	s.logger.Debug("post saved", slog.String("post_id", string(post.ID)))
	return post, nil
}

func (s *Service) create(ctx context.Context, viewer *model.Identity, id model.PostID, input model.PostInput) (*model.Post, error) {
	if viewer == nil {
		return nil, ErrUnauthenticated
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	post := &model.Post{
		ID:        id,
		AuthorID:  viewer.ID,
		CreatedAt: now,
	}
	s.applyInput(post, input)

	if err := s.storage.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	s.logger.Info("post created",
		slog.String("post_id", string(post.ID)),
		slog.String("author_id", string(post.AuthorID)),
		slog.Bool("published", post.IsPublished()))
	return post, nil
}

// Update applies a partial change to a post the viewer owns
func (s *Service) Update(ctx context.Context, viewer *model.Identity, id model.PostID, patch model.PostPatch) (*model.Post, error) {
	post, err := s.mutate(ctx, viewer, id, func(post *model.Post) error {
		if err := s.validate.Struct(patch); err != nil {
			return fmt.Errorf("%w: %w", model.ErrInvalidPost, err)
		}
		input := model.PostInput{Title: post.Title, Content: post.Content, CoverImage: post.CoverImage}
		if patch.Title != nil {
			input.Title = *patch.Title
		}
		if patch.Content != nil {
			input.Content = *patch.Content
		}
		if patch.CoverImage != nil {
			input.CoverImage = *patch.CoverImage
		}
		if err := s.validateInput(input); err != nil {
			return err
		}
		s.applyInput(post, input)
		return nil
	})
	s.metrics.RecordPostOp("update", metrics.Result(err))
	return post, err
}

// Publish makes a post visible to everyone. Publishing twice keeps the
// original publication time.
func (s *Service) Publish(ctx context.Context, viewer *model.Identity, id model.PostID) (*model.Post, error) {
	post, err := s.mutate(ctx, viewer, id, func(post *model.Post) error {
		if post.PublishedAt == nil {
			now := s.clock.Now()
			post.PublishedAt = &now
			post.UpdatedAt = now
		}
		return nil
	})
	s.metrics.RecordPostOp("publish", metrics.Result(err))
	return post, err
}

// Unpublish returns a post to draft
func (s *Service) Unpublish(ctx context.Context, viewer *model.Identity, id model.PostID) (*model.Post, error) {
	post, err := s.mutate(ctx, viewer, id, func(post *model.Post) error {
		if post.PublishedAt != nil {
			post.PublishedAt = nil
			post.UpdatedAt = s.clock.Now()
		}
		return nil
	})
	s.metrics.RecordPostOp("unpublish", metrics.Result(err))
	return post, err
}

// Delete removes a post the viewer owns
func (s *Service) Delete(ctx context.Context, viewer *model.Identity, id model.PostID) error {
	err := s.delete(ctx, viewer, id)
	s.metrics.RecordPostOp("delete", metrics.Result(err))
	return err
}

func (s *Service) delete(ctx context.Context, viewer *model.Identity, id model.PostID) error {
	if viewer == nil {
		return ErrUnauthenticated
	}
	post, err := s.storage.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if !ownership.CanEdit(post, viewer) {
		return model.ErrPostNotFound
	}
	if err := s.storage.DeletePost(ctx, id); err != nil {
		return err
	}
	s.logger.Info("post deleted", slog.String("post_id", string(id)))
	return nil
}

// mutate loads a post, checks ownership, applies fn and persists the result
func (s *Service) mutate(ctx context.Context, viewer *model.Identity, id model.PostID, fn func(*model.Post) error) (*model.Post, error) {
	if viewer == nil {
		return nil, ErrUnauthenticated
	}
	existing, err := s.storage.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownership.CanEdit(existing, viewer) {
		return nil, model.ErrPostNotFound
	}

	post := existing.Clone()
	if err := fn(post); err != nil {
		return nil, err
	}
	if err := s.storage.SavePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) validateInput(input model.PostInput) error {
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidPost, err)
	}
	return nil
}

// applyInput copies writable fields onto the post and derives slug and excerpt
func (s *Service) applyInput(post *model.Post, input model.PostInput) {
	now := s.clock.Now()
	post.Title = strings.TrimSpace(input.Title)
	post.Slug = Slugify(post.Title)
	post.Content = input.Content
	post.Excerpt = s.sanitizer.Excerpt(input.Content)
	post.CoverImage = strings.TrimSpace(input.CoverImage)
	post.UpdatedAt = now
	if input.Publish && post.PublishedAt == nil {
		post.PublishedAt = &now
	}
}

// Slugify lower-cases the title, drops punctuation and joins words with '-'
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = nonWord.ReplaceAllString(slug, "")
	slug = whitespace.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
