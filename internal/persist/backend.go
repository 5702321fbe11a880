package persist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Backend.Load when no value is stored.
var ErrNotFound = errors.New("key not found")

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Backend stores raw encoded values by key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error

	// Keys returns stored keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Path        string
	RedisAddr   string
	RedisPrefix string
}

// Open constructs the backend named by opts.Backend.
// An empty name selects the memory backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendNone:
		return Null{}, nil
	case BackendSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite backend: path is required")
		}
		return OpenSQLite(opts.Path)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", opts.Backend)
	}
}

// Memory is an in-process Backend.
//
// Thread-safety: Memory is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = buf
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }

// Null stores nothing.
type Null struct{}

var _ Backend = Null{}

func (Null) Load(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (Null) Save(context.Context, string, []byte) error { return nil }
func (Null) Delete(context.Context, string) error { return nil }
func (Null) Keys(context.Context, string) ([]string, error) { return nil, nil }
func (Null) Close() error { return nil }
