package core

import (
	"context"

	"github.com/dkeye/Proctor/internal/domain"
)

// SessionStore is the capability the core needs from session persistence.
// Every returned *domain.Session is a private copy.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	// Get returns domain.ErrNotFound for an unknown id.
	Get(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	// List returns sessions in insertion order.
	List(ctx context.Context) ([]*domain.Session, error)
	// Delete reports whether a session existed and was removed.
	Delete(ctx context.Context, id domain.SessionID) (bool, error)
	// Update applies fn to a copy of the session and commits the copy only if
	// fn returns nil. Concurrent updates of one id never interleave.
	Update(ctx context.Context, id domain.SessionID, fn func(*domain.Session) error) (*domain.Session, error)
}
