package testutil

import (
	"fmt"
	"sync"
)

// SequentialTokenGenerator returns "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same generator produces byte-identical traces.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialTokenGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialTokenGenerator creates a generator. An empty prefix
// defaults to "token".
func NewSequentialTokenGenerator(prefix string) *SequentialTokenGenerator {
	if prefix == "" {
		prefix = "token"
	}
	return &SequentialTokenGenerator{prefix: prefix}
}

// Generate returns the next token.
//
// Implements dispatch.TokenGenerator interface.
func (g *SequentialTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset restarts the sequence so the next token ends in 1.
func (g *SequentialTokenGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedTokenGenerator returns the same token every time. Only useful for
// buses with a single registration, since Unregister removes the first
// match.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a fixed generator. If token is empty,
// Generate returns "test-token".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-token"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
