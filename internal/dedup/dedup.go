// Package dedup keeps at most one in-flight unit of work per key.
package dedup

import (
	"context"
	"sync"
)

// Release gives the lease back. It is safe to call more than once.
type Release func()

// Locker hands out exclusive, non-blocking leases keyed by string.
type Locker interface {
	// Acquire returns ok=false without waiting when key is already held.
	Acquire(ctx context.Context, key string) (release Release, ok bool, err error)
}

// MemoryLocker is a process-local lease table. It gives no guarantee across
// process instances.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (m *MemoryLocker) Acquire(_ context.Context, key string) (Release, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.held[key]; busy {
		return nil, false, nil
	}
	m.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
	}, true, nil
}
