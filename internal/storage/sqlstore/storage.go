// Package sqlstore persists blog data in PostgreSQL or SQLite through database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config selects the database to open
type Config struct {
	// Driver is "postgres" or "sqlite"
	Driver string
	// DSN is a postgres connection URL or a sqlite file path
	DSN string
}

// Storage is a SQL-backed implementation of the storage interface
type Storage struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Open connects to the database and applies the embedded migrations
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if cfg.Driver == DriverSQLite {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", cfg.Driver, err)
	}

	if err := migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Storage{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(d.placeholder),
	}, nil
}

func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(d.gooseDialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close releases the database handle
func (s *Storage) Close() error {
	return s.db.Close()
}

// toMillis normalizes timestamps into millisecond precision for storage
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	query := s.sb.Insert("identities").
		Columns("id", "email", "display_name", "avatar_url", "bio", "website", "created_at", "updated_at").
		Values(string(identity.ID), identity.Email, identity.DisplayName, identity.AvatarURL,
			identity.Bio, identity.Website, toMillis(identity.CreatedAt), toMillis(identity.UpdatedAt)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			bio = excluded.bio,
			website = excluded.website,
			updated_at = excluded.updated_at`)
	_, err := query.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Storage) GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error) {
	row := s.sb.Select("id", "email", "display_name", "avatar_url", "bio", "website", "created_at", "updated_at").
		From("identities").
		Where(sq.Eq{"id": string(id)}).
		RunWith(s.db).QueryRowContext(ctx)

	var identity model.Identity
	var createdAt, updatedAt int64
	err := row.Scan(&identity.ID, &identity.Email, &identity.DisplayName, &identity.AvatarURL,
		&identity.Bio, &identity.Website, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, err
	}
	identity.CreatedAt = fromMillis(createdAt)
	identity.UpdatedAt = fromMillis(updatedAt)
	return &identity, nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	query := s.sb.Insert("credentials").
		Columns("identity_id", "email", "password_hash", "confirmation_code", "confirmed", "created_at", "updated_at").
		Values(string(cred.IdentityID), cred.Email, cred.PasswordHash, cred.ConfirmationCode,
			cred.Confirmed, toMillis(cred.CreatedAt), toMillis(cred.UpdatedAt)).
		Suffix(`ON CONFLICT (identity_id) DO UPDATE SET
			email = excluded.email,
			password_hash = excluded.password_hash,
			confirmation_code = excluded.confirmation_code,
			confirmed = excluded.confirmed,
			updated_at = excluded.updated_at`)
	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *Storage) GetCredential(ctx context.Context, identityID model.IdentityID) (*model.Credential, error) {
	return s.getCredential(ctx, sq.Eq{"identity_id": string(identityID)})
}

func (s *Storage) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	return s.getCredential(ctx, sq.Eq{"email": email})
}

func (s *Storage) getCredential(ctx context.Context, where sq.Eq) (*model.Credential, error) {
	row := s.sb.Select("identity_id", "email", "password_hash", "confirmation_code", "confirmed", "created_at", "updated_at").
		From("credentials").
		Where(where).
		RunWith(s.db).QueryRowContext(ctx)

	var cred model.Credential
	var createdAt, updatedAt int64
	err := row.Scan(&cred.IdentityID, &cred.Email, &cred.PasswordHash, &cred.ConfirmationCode,
		&cred.Confirmed, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, err
	}
	cred.CreatedAt = fromMillis(createdAt)
	cred.UpdatedAt = fromMillis(updatedAt)
	return &cred, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	query := s.sb.Insert("sessions").
		Columns("id", "identity_id", "created_at", "expires_at").
		Values(string(session.ID), string(session.IdentityID), toMillis(session.CreatedAt), toMillis(session.ExpiresAt)).
		Suffix("ON CONFLICT (id) DO UPDATE SET expires_at = excluded.expires_at")
	_, err := query.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	row := s.sb.Select("id", "identity_id", "created_at", "expires_at").
		From("sessions").
		Where(sq.Eq{"id": string(id)}).
		RunWith(s.db).QueryRowContext(ctx)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	_, err := s.sb.Delete("sessions").
		Where(sq.Eq{"id": string(id)}).
		RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Storage) GetSessionsForIdentity(ctx context.Context, identityID model.IdentityID) ([]*model.Session, error) {
	rows, err := s.sb.Select("id", "identity_id", "created_at", "expires_at").
		From("sessions").
		Where(sq.Eq{"identity_id": string(identityID)}).
		OrderBy("created_at").
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) ([]*model.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := sq.LtOrEq{"expires_at": toMillis(now)}
	rows, err := s.sb.Select("id", "identity_id", "created_at", "expires_at").
		From("sessions").
		Where(cutoff).
		RunWith(tx).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	var expired []*model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		expired = append(expired, session)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.sb.Delete("sessions").Where(cutoff).RunWith(tx).ExecContext(ctx); err != nil {
		return nil, err
	}
	return expired, tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.Session, error) {
	var session model.Session
	var createdAt, expiresAt int64
	if err := row.Scan(&session.ID, &session.IdentityID, &createdAt, &expiresAt); err != nil {
		return nil, err
	}
	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	return &session, nil
}

// Post operations

var postColumns = []string{
	"id", "author_id", "title", "slug", "content", "excerpt", "cover_image",
	"created_at", "updated_at", "published_at",
}

func postValues(post *model.Post) []any {
	var publishedAt sql.NullInt64
	if post.PublishedAt != nil {
		publishedAt = sql.NullInt64{Int64: toMillis(*post.PublishedAt), Valid: true}
	}
	return []any{
		string(post.ID), string(post.AuthorID), post.Title, post.Slug, post.Content, post.Excerpt,
		post.CoverImage, toMillis(post.CreatedAt), toMillis(post.UpdatedAt), publishedAt,
	}
}

func (s *Storage) CreatePost(ctx context.Context, post *model.Post) error {
	_, err := s.sb.Insert("posts").
		Columns(postColumns...).
		Values(postValues(post)...).
		RunWith(s.db).ExecContext(ctx)
	if isUniqueViolation(err) {
		return model.ErrPostExists
	}
	return err
}

// SavePost upserts a post. The author is never rewritten on conflict.
func (s *Storage) SavePost(ctx context.Context, post *model.Post) error {
	_, err := s.sb.Insert("posts").
		Columns(postColumns...).
		Values(postValues(post)...).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			slug = excluded.slug,
			content = excluded.content,
			excerpt = excluded.excerpt,
			cover_image = excluded.cover_image,
			updated_at = excluded.updated_at,
			published_at = excluded.published_at`).
		RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Storage) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	row := s.sb.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"id": string(id)}).
		RunWith(s.db).QueryRowContext(ctx)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *Storage) DeletePost(ctx context.Context, id model.PostID) error {
	_, err := s.sb.Delete("posts").
		Where(sq.Eq{"id": string(id)}).
		RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *Storage) QueryPosts(ctx context.Context, filter model.PostFilter) ([]*model.Post, error) {
	query := s.sb.Select(postColumns...).From("posts")
	if filter.AuthorID != "" {
		query = query.Where(sq.Eq{"author_id": string(filter.AuthorID)})
	}
	if filter.PublishedOnly {
		query = query.Where(sq.NotEq{"published_at": nil})
	}
	if filter.Order == model.OrderPublishedDesc {
		query = query.OrderBy("COALESCE(published_at, created_at) DESC", "id DESC")
	} else {
		query = query.OrderBy("created_at DESC", "id DESC")
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func scanPost(row scanner) (*model.Post, error) {
	var post model.Post
	var createdAt, updatedAt int64
	var publishedAt sql.NullInt64
	err := row.Scan(&post.ID, &post.AuthorID, &post.Title, &post.Slug, &post.Content, &post.Excerpt,
		&post.CoverImage, &createdAt, &updatedAt, &publishedAt)
	if err != nil {
		return nil, err
	}
	post.CreatedAt = fromMillis(createdAt)
	post.UpdatedAt = fromMillis(updatedAt)
	if publishedAt.Valid {
		t := fromMillis(publishedAt.Int64)
		post.PublishedAt = &t
	}
	return &post, nil
}
