// Package lock provides per-recipient mutual exclusion so a single shard,
// which may hold many recipients, still serializes dispatch for any one
// conversation.
package lock

import "sync"

// Manager holds a map of recipient to mutex, guarded by its own lock for
// insertion. Grounded on the teacher's sync.RWMutex-guarded-map idiom used
// throughout (internal/webhooks/registry.go, internal/multitenancy/tenant_manager.go).
type Manager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{locks: make(map[string]*sync.Mutex)}
}

func (m *Manager) mutexFor(recipient string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	mu, ok := m.locks[recipient]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[recipient] = mu
	}
	return mu
}

// Lock acquires the mutex for recipient and returns an unlock function the
// caller must invoke exactly once, on every exit path.
func (m *Manager) Lock(recipient string) (unlock func()) {
	mu := m.mutexFor(recipient)
	mu.Lock()
	return mu.Unlock
}

// WithLock runs fn while holding recipient's lock, releasing it on return
// (including on panic).
func (m *Manager) WithLock(recipient string, fn func() error) error {
	unlock := m.Lock(recipient)
	defer unlock()
	return fn()
}

// Evict removes the tracked mutex for recipient, bounding memory for
// long-running processes. Safe to call even if the recipient is currently
// locked elsewhere — the mutex value itself is only dropped from the map,
// not invalidated for holders already referencing it.
func (m *Manager) Evict(recipient string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, recipient)
}

// Len reports how many recipients currently have a tracked mutex.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
