// internal/session/memory.go
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"scheme-matcher/internal/models"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// sessionMutex is dropped from the store once its last holder or waiter
// releases it.
type sessionMutex struct {
	sync.Mutex
	refs int
}

// MemoryStore keeps state in process. Each session has its own mutex so an
// Update holds only its session. Values are stored encoded so callers never
// share slices with the store. Expired entries are swept at most once per TTL.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	locks     map[string]*sessionMutex
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]*sessionMutex),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) lock(id string) *sessionMutex {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionMutex{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return l
}

func (m *MemoryStore) unlock(id string, l *sessionMutex) {
	l.Unlock()

	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, id)
	}
	m.mu.Unlock()
}

func (m *MemoryStore) get(id string) (models.PaginationState, bool, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok && !m.now().Before(e.expires) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return models.PaginationState{}, false, nil
	}
	var state models.PaginationState
	if err := json.Unmarshal(e.data, &state); err != nil {
		return models.PaginationState{}, false, err
	}
	return state, true, nil
}

func (m *MemoryStore) put(id string, state models.PaginationState) (models.PaginationState, error) {
	now := m.now()
	state.UpdatedAt = now.UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return models.PaginationState{}, err
	}
	m.mu.Lock()
	m.entries[id] = memoryEntry{data: data, expires: now.Add(m.ttl)}
	m.sweepLocked(now)
	m.mu.Unlock()
	return state, nil
}

// sweepLocked drops expired entries that were never read again. m.mu must
// be held.
func (m *MemoryStore) sweepLocked(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
		}
	}
	m.nextSweep = now.Add(m.ttl)
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (models.PaginationState, error) {
	if err := validID(sessionID); err != nil {
		return models.PaginationState{}, err
	}
	state, found, err := m.get(sessionID)
	if err != nil {
		return models.PaginationState{}, err
	}
	if !found {
		return models.PaginationState{}, ErrNotFound
	}
	return state, nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, state models.PaginationState) error {
	if err := validID(sessionID); err != nil {
		return err
	}
	l := m.lock(sessionID)
	defer m.unlock(sessionID, l)
	_, err := m.put(sessionID, state)
	return err
}

func (m *MemoryStore) Update(ctx context.Context, sessionID string, fn UpdateFunc) (models.PaginationState, error) {
	if err := validID(sessionID); err != nil {
		return models.PaginationState{}, err
	}
	l := m.lock(sessionID)
	defer m.unlock(sessionID, l)

	if err := ctx.Err(); err != nil {
		return models.PaginationState{}, err
	}
	current, found, err := m.get(sessionID)
	if err != nil {
		return models.PaginationState{}, err
	}
	next, err := fn(current, found)
	if err != nil {
		return models.PaginationState{}, err
	}
	return m.put(sessionID, next)
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if err := validID(sessionID); err != nil {
		return err
	}
	l := m.lock(sessionID)
	defer m.unlock(sessionID, l)

	m.mu.Lock()
	delete(m.entries, sessionID)
	m.mu.Unlock()
	return nil
}
