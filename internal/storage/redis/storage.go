package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	now    func() time.Time
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, identityKey(identity.ID), data, 0).Err()
}

func (s *Storage) GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error) {
	var identity model.Identity
	if err := s.getJSON(ctx, identityKey(id), &identity, model.ErrIdentityNotFound); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}

	// Claim the email first so two sign-ups cannot share it
	idxKey := emailIndexKey(cred.Email)
	claimed, err := s.client.SetNX(ctx, idxKey, string(cred.IdentityID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		owner, err := s.client.Get(ctx, idxKey).Result()
		if err != nil {
			return err
		}
		if owner != string(cred.IdentityID) {
			return model.ErrEmailTaken
		}
	}

	return s.client.Set(ctx, credentialKey(cred.IdentityID), data, 0).Err()
}

func (s *Storage) GetCredential(ctx context.Context, identityID model.IdentityID) (*model.Credential, error) {
	var cred model.Credential
	if err := s.getJSON(ctx, credentialKey(identityID), &cred, model.ErrIdentityNotFound); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *Storage) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	// Look up identity ID from email index
	identityID, err := s.client.Get(ctx, emailIndexKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, err
	}

	return s.GetCredential(ctx, model.IdentityID(identityID))
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if ttl < 0 {
		ttl = 0
	}
	ttl += s.cfg.SessionGrace
	if ttl <= 0 {
		// zero would mean no expiry at all
		ttl = time.Second
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.Pipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, ttl)
	pipe.SAdd(ctx, sessionsForIdentityIndexKey(session.IdentityID), string(session.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	var session model.Session
	if err := s.getJSON(ctx, sessionKey(id), &session, model.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	session, err := s.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, sessionsForIdentityIndexKey(session.IdentityID), string(id))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSessionsForIdentity(ctx context.Context, identityID model.IdentityID) ([]*model.Session, error) {
	idxKey := sessionsForIdentityIndexKey(identityID)
	members, err := s.client.SMembers(ctx, idxKey).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = sessionKey(model.SessionID(m))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var sessions []*model.Session
	var stale []interface{}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Key expired, drop it from the index
			stale = append(stale, members[i])
			continue
		}
		var session model.Session
		if err := json.Unmarshal([]byte(str), &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, idxKey, stale...).Err(); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) ([]*model.Session, error) {
	var expired []*model.Session
	iter := s.client.Scan(ctx, 0, sessionKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		var session model.Session
		err := s.getJSON(ctx, iter.Val(), &session, model.ErrSessionNotFound)
		if errors.Is(err, model.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !session.Expired(now) {
			continue
		}
		if err := s.DeleteSession(ctx, session.ID); err != nil {
			return nil, err
		}
		expired = append(expired, &session)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return expired, nil
}

// Post operations

func (s *Storage) CreatePost(ctx context.Context, post *model.Post) error {
	data, err := json.Marshal(post)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, postKey(post.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrPostExists
	}
	return s.indexPost(ctx, post)
}

func (s *Storage) SavePost(ctx context.Context, post *model.Post) error {
	data, err := json.Marshal(post)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, postKey(post.ID), data, 0).Err(); err != nil {
		return err
	}
	return s.indexPost(ctx, post)
}

func (s *Storage) indexPost(ctx context.Context, post *model.Post) error {
	member := redis.Z{Score: float64(post.CreatedAt.UnixMilli()), Member: string(post.ID)}
	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, postsIndexKey(), member)
	pipe.ZAdd(ctx, postsByAuthorIndexKey(post.AuthorID), member)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	var post model.Post
	if err := s.getJSON(ctx, postKey(id), &post, model.ErrPostNotFound); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Storage) DeletePost(ctx context.Context, id model.PostID) error {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, postKey(id))
	pipe.ZRem(ctx, postsIndexKey(), string(id))
	pipe.ZRem(ctx, postsByAuthorIndexKey(post.AuthorID), string(id))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) QueryPosts(ctx context.Context, filter model.PostFilter) ([]*model.Post, error) {
	idxKey := postsIndexKey()
	if filter.AuthorID != "" {
		idxKey = postsByAuthorIndexKey(filter.AuthorID)
	}

	// The index is already ordered by creation time, so an unfiltered
	// creation-ordered query can push the limit down to Redis
	stop := int64(-1)
	if filter.Limit > 0 && !filter.PublishedOnly && filter.Order != model.OrderPublishedDesc {
		stop = int64(filter.Limit - 1)
	}
	members, err := s.client.ZRevRange(ctx, idxKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []*model.Post{}, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = postKey(model.PostID(m))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	posts := make([]*model.Post, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var post model.Post
		if err := json.Unmarshal([]byte(str), &post); err != nil {
			return nil, err
		}
		posts = append(posts, &post)
	}
	return storage.ApplyFilter(posts, filter), nil
}

// getJSON loads and decodes a JSON value, mapping a missing key to notFound
func (s *Storage) getJSON(ctx context.Context, key string, dst any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, dst)
}
