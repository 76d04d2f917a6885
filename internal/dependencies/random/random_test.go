package random

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_UsesOnlyAlphabet(t *testing.T) {
	r := New()
	code := r.String(64, "AB2")

	assert.Len(t, code, 64)
	assert.Empty(t, strings.Trim(code, "AB2"))
	assert.Empty(t, r.String(0, "AB2"))
	assert.Empty(t, r.String(6, ""))
}

func TestSecret_IsFreshEachCall(t *testing.T) {
	r := New()
	a, b := r.Secret(), r.Secret()

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, SecretBytes)
}
