package app

import (
	"context"
	"time"

	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/dkeye/Proctor/internal/metrics"
	"github.com/rs/zerolog/log"
)

// SessionController drives the session state machine over a SessionStore.
// SCHEDULED -> LIVE (start or join) -> COMPLETED (end). COMPLETED is terminal.
type SessionController struct {
	store core.SessionStore
	nowF  func() time.Time

	// OnDelete runs after a session was removed; the orchestrator hooks the
	// orphan policy here.
	OnDelete func(id domain.SessionID)
}

func NewSessionController(store core.SessionStore) *SessionController {
	return &SessionController{
		store: store,
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock; tests only.
func (c *SessionController) WithClock(now func() time.Time) *SessionController {
	c.nowF = now
	return c
}

func (c *SessionController) Create(ctx context.Context, in domain.NewSession) (*domain.Session, error) {
	s, err := in.Build(c.nowF())
	if err != nil {
		return nil, err
	}
	if err := c.store.Create(ctx, s); err != nil {
		metrics.StoreErrors.WithLabelValues("create").Inc()
		return nil, err
	}
	log.Info().Str("module", "app.sessions").Str("sid", string(s.ID)).Str("host", s.HostID).Msg("session created")
	return s, nil
}

func (c *SessionController) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return c.store.Get(ctx, id)
}

func (c *SessionController) List(ctx context.Context) ([]*domain.Session, error) {
	return c.store.List(ctx)
}

func (c *SessionController) Delete(ctx context.Context, id domain.SessionID) (bool, error) {
	ok, err := c.store.Delete(ctx, id)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("delete").Inc()
		return false, err
	}
	if ok {
		log.Info().Str("module", "app.sessions").Str("sid", string(id)).Msg("session deleted")
		if c.OnDelete != nil {
			c.OnDelete(id)
		}
	}
	return ok, nil
}

func (c *SessionController) Join(ctx context.Context, id domain.SessionID, candidateName, candidateEmail string) (*domain.Session, error) {
	return c.transition(ctx, "join", id, func(s *domain.Session) error {
		return s.Join(candidateName, candidateEmail, c.nowF())
	})
}

func (c *SessionController) Start(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return c.transition(ctx, "start", id, func(s *domain.Session) error {
		return s.Start(c.nowF())
	})
}

func (c *SessionController) End(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return c.transition(ctx, "end", id, func(s *domain.Session) error {
		s.End(c.nowF())
		return nil
	})
}

func (c *SessionController) transition(ctx context.Context, op string, id domain.SessionID, fn func(*domain.Session) error) (*domain.Session, error) {
	s, err := c.store.Update(ctx, id, fn)
	if err != nil {
		log.Debug().Err(err).Str("module", "app.sessions").Str("sid", string(id)).Str("op", op).Msg("transition refused")
		return nil, err
	}
	log.Info().Str("module", "app.sessions").Str("sid", string(id)).Str("op", op).Str("status", string(s.Status)).Msg("session transition")
	return s, nil
}

// LogEvent appends to the session's log; status is never touched.
func (c *SessionController) LogEvent(ctx context.Context, id domain.SessionID, in domain.EventInput) (*domain.SessionEvent, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var ev domain.SessionEvent
	_, err := c.store.Update(ctx, id, func(s *domain.Session) error {
		ev = s.Append(in, c.nowF())
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.EventsLogged.WithLabelValues(metrics.SeverityLabel(in.Severity)).Inc()
	return &ev, nil
}

func (c *SessionController) Events(ctx context.Context, id domain.SessionID) ([]domain.SessionEvent, error) {
	s, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Events, nil
}
