package mocks

import (
	"sync"

	"github.com/mcoot/quill/internal/dependencies/random"
)

// MockRandom hands out queued values so codes and secrets are predictable in tests
type MockRandom struct {
	mu sync.Mutex

	// StringResults is a queue of results to return from String
	StringResults []string
	stringIndex   int

	// SecretValue is returned from every Secret call
	SecretValue string
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{SecretValue: "mock-secret"}
}

// String returns the next queued result. Once the queue is empty it
// returns the first length characters of alphabet so generated codes stay valid.
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stringIndex >= len(r.StringResults) {
		return fallback(length, alphabet)
	}
	result := r.StringResults[r.stringIndex]
	r.stringIndex++
	return result
}

// Secret returns SecretValue
func (r *MockRandom) Secret() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.SecretValue
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StringResults = append(r.StringResults, values...)
}

func fallback(length int, alphabet string) string {
	if alphabet == "" {
		return ""
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[i%len(alphabet)]
	}
	return string(out)
}
