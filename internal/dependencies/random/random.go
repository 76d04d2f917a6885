package random

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

// SecretBytes is the entropy of a generated signing secret
const SecretBytes = 32

// Random produces the unpredictable values the services hand out:
// confirmation codes and signing secrets
type Random interface {
	// String returns length characters drawn uniformly from alphabet
	String(length int, alphabet string) string

	// Secret returns a URL-safe encoding of SecretBytes random bytes
	Secret() string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// String draws each character with rand.Int, which avoids modulo bias
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	limit := big.NewInt(int64(len(alphabet)))
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		result[i] = alphabet[n.Int64()]
	}
	return string(result)
}

// Secret returns a fresh signing secret
func (r *CryptoRandom) Secret() string {
	b := make([]byte, SecretBytes)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
