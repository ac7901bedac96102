// Package store holds core.SessionStore implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Proctor/internal/domain"
	"github.com/rs/zerolog/log"
)

type entry struct {
	mu      sync.Mutex
	session *domain.Session
	deleted bool
}

// MemoryStore is a threadsafe in-memory SessionStore. The map lock guards
// membership only; each session has its own lock for mutation.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[domain.SessionID]*entry
	order []domain.SessionID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[domain.SessionID]*entry)}
}

func (m *MemoryStore) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[s.ID]; ok {
		return fmt.Errorf("create %s: duplicate id", s.ID)
	}
	m.byID[s.ID] = &entry{session: s.Clone()}
	m.order = append(m.order, s.ID)
	log.Debug().Str("module", "store.memory").Str("sid", string(s.ID)).Msg("session created")
	return nil
}

func (m *MemoryStore) lookup(id domain.SessionID) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	return e, ok
}

func (m *MemoryStore) Get(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	e, ok := m.lookup(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, domain.ErrNotFound
	}
	return e.session.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*domain.Session, error) {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.order))
	for _, id := range m.order {
		entries = append(entries, m.byID[id])
	}
	m.mu.RUnlock()

	out := make([]*domain.Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted {
			out = append(out, e.session.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id domain.SessionID) (bool, error) {
	m.mu.Lock()
	e, ok := m.byID[id]
	if ok {
		delete(m.byID, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	// An Update holding e.mu finishes against the detached entry.
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	log.Debug().Str("module", "store.memory").Str("sid", string(id)).Msg("session deleted")
	return true, nil
}

func (m *MemoryStore) Update(_ context.Context, id domain.SessionID, fn func(*domain.Session) error) (*domain.Session, error) {
	e, ok := m.lookup(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, domain.ErrNotFound
	}
	next := e.session.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := checkUpdate(e.session, next); err != nil {
		return nil, err
	}
	e.session = next
	return next.Clone(), nil
}

// checkUpdate enforces what no mutation may break regardless of store.
func checkUpdate(prev, next *domain.Session) error {
	if next.ID != prev.ID {
		return fmt.Errorf("update %s: id changed", prev.ID)
	}
	if !prev.Status.CanAdvanceTo(next.Status) {
		return fmt.Errorf("update %s: %w: %s -> %s", prev.ID, domain.ErrStatusRegression, prev.Status, next.Status)
	}
	if len(next.Events) < len(prev.Events) {
		return fmt.Errorf("update %s: events truncated", prev.ID)
	}
	return nil
}
