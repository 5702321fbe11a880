package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// defaultTimeout bounds each backend call made through a KV.
const defaultTimeout = 5 * time.Second

// KV is the persistence facade used by state cells.
//
// Get and Set never fail: errors from the backend or from JSON encoding are
// logged and the call degrades to "nothing stored".
type KV struct {
	backend Backend
	logger  *slog.Logger
	timeout time.Duration
}

// KVOption configures a KV.
type KVOption func(*KV)

// WithLogger sets the logger used for degraded calls.
func WithLogger(l *slog.Logger) KVOption {
	return func(kv *KV) {
		kv.logger = l
	}
}

// WithTimeout sets the per-call backend timeout.
func WithTimeout(d time.Duration) KVOption {
	return func(kv *KV) {
		kv.timeout = d
	}
}

// NewKV wraps backend. A nil backend behaves like Null.
func NewKV(backend Backend, opts ...KVOption) *KV {
	if backend == nil {
		backend = Null{}
	}
	kv := &KV{
		backend: backend,
		logger:  slog.Default(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(kv)
	}
	return kv
}

// Backend returns the wrapped backend.
func (kv *KV) Backend() Backend {
	return kv.backend
}

// Get returns the decoded value stored under key, or def.
func (kv *KV) Get(key string, def any) any {
	ctx, cancel := context.WithTimeout(context.Background(), kv.timeout)
	defer cancel()

	data, err := kv.backend.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def
	}
	if err != nil {
		kv.logger.Warn("persistence unavailable, using default", "key", key, "error", err)
		return def
	}

	v, err := Decode(data)
	if err != nil {
		kv.logger.Warn("discarding undecodable persisted value", "key", key, "error", err)
		return def
	}
	return v
}

// Set encodes value and stores it under key.
func (kv *KV) Set(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		kv.logger.Warn("value not persisted", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), kv.timeout)
	defer cancel()

	if err := kv.backend.Save(ctx, key, data); err != nil {
		kv.logger.Warn("value not persisted", "key", key, "error", err)
	}
}

// Delete removes key. Errors are returned; used by tooling, not cells.
func (kv *KV) Delete(ctx context.Context, key string) error {
	return kv.backend.Delete(ctx, key)
}

// Keys lists stored keys starting with prefix.
func (kv *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	return kv.backend.Keys(ctx, prefix)
}

// Close closes the backend.
func (kv *KV) Close() error {
	return kv.backend.Close()
}

// Decode parses JSON, mapping integral numbers to int64 and the rest to
// float64.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalize(v), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}
