package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// KV is the durable key-value layer sessions are mirrored to.
type KV interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetMany writes all values in a single atomic write: a subsequent Get
	// observes either all of them or none.
	SetMany(ctx context.Context, values map[string]string) error
	Close() error
}

var ErrUnknownBackend = errors.New("unknown store backend")

// Open returns the KV backend named by backend ("memory", "file" or
// "sqlite"), rooted at path.
func Open(backend string, path string) (KV, error) {
	switch backend {
	case "memory", "":
		return NewMemoryKV(), nil
	case "file":
		return NewFileKV(path)
	case "sqlite":
		return NewSQLiteKV(path)
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", backend)
	}
}

type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) SetMany(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryKV) Close() error {
	return nil
}

var _ KV = (*MemoryKV)(nil)
