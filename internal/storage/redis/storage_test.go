package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/quill/internal/model"
	"github.com/mcoot/quill/internal/storage"
	"github.com/mcoot/quill/internal/storage/storagetest"
)

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func() storage.Storage {
			mini := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
			return NewWithClient(client, DefaultConfig())
		},
	})
}

type RedisSpecificSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestRedisSpecificSuite(t *testing.T) {
	suite.Run(t, new(RedisSpecificSuite))
}

func (s *RedisSpecificSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.SessionGrace = 10 * time.Minute

	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.storage = NewWithClient(client, cfg)
	s.storage.now = func() time.Time { return s.now }
	s.ctx = context.Background()
}

func (s *RedisSpecificSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *RedisSpecificSuite) TestSessionTTLIncludesGrace() {
	session := &model.Session{
		ID:         "sess-1",
		IdentityID: "id-1",
		CreatedAt:  s.now,
		ExpiresAt:  s.now.Add(time.Hour),
	}
	s.Require().NoError(s.storage.SaveSession(s.ctx, session))

	s.Equal(70*time.Minute, s.mini.TTL(sessionKey("sess-1")))
}

func (s *RedisSpecificSuite) TestExpiredSessionKeptForGrace() {
	session := &model.Session{
		ID:         "sess-1",
		IdentityID: "id-1",
		CreatedAt:  s.now.Add(-2 * time.Hour),
		ExpiresAt:  s.now.Add(-time.Hour),
	}
	s.Require().NoError(s.storage.SaveSession(s.ctx, session))

	s.Equal(10*time.Minute, s.mini.TTL(sessionKey("sess-1")))
}

func (s *RedisSpecificSuite) TestSessionsIndexPrunedAfterKeyExpiry() {
	s.Require().NoError(s.storage.SaveSession(s.ctx, &model.Session{
		ID: "sess-1", IdentityID: "id-1", CreatedAt: s.now, ExpiresAt: s.now.Add(time.Minute),
	}))
	s.Require().NoError(s.storage.SaveSession(s.ctx, &model.Session{
		ID: "sess-2", IdentityID: "id-1", CreatedAt: s.now, ExpiresAt: s.now.Add(time.Hour),
	}))

	s.mini.FastForward(30 * time.Minute)

	sessions, err := s.storage.GetSessionsForIdentity(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(model.SessionID("sess-2"), sessions[0].ID)

	members, err := s.mini.Members(sessionsForIdentityIndexKey("id-1"))
	s.Require().NoError(err)
	s.Equal([]string{"sess-2"}, members)
}

func (s *RedisSpecificSuite) TestPostIndexedByAuthor() {
	post := &model.Post{ID: "p1", AuthorID: "id-1", Title: "Hello", CreatedAt: s.now}
	s.Require().NoError(s.storage.CreatePost(s.ctx, post))

	members, err := s.mini.ZMembers(postsByAuthorIndexKey("id-1"))
	s.Require().NoError(err)
	s.Equal([]string{"p1"}, members)

	s.Require().NoError(s.storage.DeletePost(s.ctx, "p1"))
	s.False(s.mini.Exists(postKey("p1")))
	members, _ = s.mini.ZMembers(postsIndexKey())
	s.Empty(members)
}
