package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quill/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("test-secret-that-is-long-enough-for-hs256", "quill", func() time.Time { return now })

	token, err := issuer.Issue(&model.Session{
		ID:         "sess-1",
		IdentityID: "id-1",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	})
	require.NoError(t, err)

	sessionID, identityID, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, model.SessionID("sess-1"), sessionID)
	assert.Equal(t, model.IdentityID("id-1"), identityID)
}

func TestTokenRejectsExpiredAndForeignIssuer(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	issuer := NewTokenIssuer("test-secret-that-is-long-enough-for-hs256", "quill", func() time.Time { return clock })
	foreign := NewTokenIssuer("test-secret-that-is-long-enough-for-hs256", "someone-else", func() time.Time { return clock })

	session := &model.Session{ID: "sess-1", IdentityID: "id-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	foreignToken, err := foreign.Issue(session)
	require.NoError(t, err)
	_, _, err = issuer.Parse(foreignToken)
	assert.Error(t, err)

	token, err := issuer.Issue(session)
	require.NoError(t, err)
	clock = now.Add(2 * time.Hour)
	_, _, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestTokenRejectsEmpty(t *testing.T) {
	issuer := NewTokenIssuer("secret", "quill", time.Now)
	_, _, err := issuer.Parse("")
	assert.Error(t, err)
}
