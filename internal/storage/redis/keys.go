package redis

import (
	"fmt"

	"github.com/mcoot/quill/internal/model"
)

// Key prefix for all blog data
const keyPrefix = "quill"

// identityKey returns the Redis key for an Identity
func identityKey(id model.IdentityID) string {
	return fmt.Sprintf("%s:identity:%s", keyPrefix, id)
}

// credentialKey returns the Redis key for a Credential
func credentialKey(identityID model.IdentityID) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, identityID)
}

// emailIndexKey returns the Redis key for the email -> identity_id index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

// sessionKey returns the Redis key for a Session
func sessionKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// sessionsForIdentityIndexKey returns the Redis key for the SET of session ids of an identity
func sessionsForIdentityIndexKey(identityID model.IdentityID) string {
	return fmt.Sprintf("%s:idx:sessions_for_identity:%s", keyPrefix, identityID)
}

// postKey returns the Redis key for a Post
func postKey(id model.PostID) string {
	return fmt.Sprintf("%s:post:%s", keyPrefix, id)
}

// postsIndexKey returns the Redis key for the ZSET of all post ids scored by creation time
func postsIndexKey() string {
	return fmt.Sprintf("%s:idx:posts", keyPrefix)
}

// postsByAuthorIndexKey returns the Redis key for the ZSET of an author's post ids
func postsByAuthorIndexKey(authorID model.IdentityID) string {
	return fmt.Sprintf("%s:idx:posts_by_author:%s", keyPrefix, authorID)
}
