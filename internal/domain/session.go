// Package domain contains interview entities and the rules of their state
// transitions. No transport or storage here.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxTitleLen = 200
	MaxNameLen  = 120
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrSessionCompleted = errors.New("session completed")
	ErrStatusRegression = errors.New("status regression")
	ErrTitleEmpty       = errors.New("title empty")
	ErrTitleTooLong     = errors.New("title too long")
	ErrNameEmpty        = errors.New("candidate name empty")
	ErrNameTooLong      = errors.New("candidate name too long")
	ErrHostEmpty        = errors.New("host id empty")
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusLive      Status = "LIVE"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) rank() int {
	switch s {
	case StatusScheduled:
		return 0
	case StatusLive:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

// Session is one interview instance.
type Session struct {
	ID             SessionID      `json:"id"`
	Title          string         `json:"title"`
	HostID         string         `json:"hostId"`
	CandidateName  string         `json:"candidateName"`
	CandidateEmail string         `json:"candidateEmail,omitempty"`
	Status         Status         `json:"status"`
	StartTime      *time.Time     `json:"startTime,omitempty"`
	EndTime        *time.Time     `json:"endTime,omitempty"`
	MeetLink       string         `json:"meetLink,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	Events         []SessionEvent `json:"events"`
}

// NewSession holds the caller-supplied fields of a session to be created.
type NewSession struct {
	Title         string
	CandidateName string
	HostID        string
	MeetLink      string
}

func (n NewSession) Validate() error {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		return ErrTitleEmpty
	}
	if len(title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	if err := validateName(n.CandidateName); err != nil {
		return err
	}
	if strings.TrimSpace(n.HostID) == "" {
		return ErrHostEmpty
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

// Build returns a fresh SCHEDULED session with a new id.
func (n NewSession) Build(now time.Time) (*Session, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		ID:            SessionID(uuid.NewString()),
		Title:         strings.TrimSpace(n.Title),
		HostID:        strings.TrimSpace(n.HostID),
		CandidateName: strings.TrimSpace(n.CandidateName),
		MeetLink:      n.MeetLink,
		Status:        StatusScheduled,
		CreatedAt:     now,
		Events:        []SessionEvent{},
	}, nil
}

// Start moves the session to LIVE. StartTime is only ever set once.
func (s *Session) Start(now time.Time) error {
	if s.Status == StatusCompleted {
		return ErrSessionCompleted
	}
	s.Status = StatusLive
	if s.StartTime == nil {
		t := now
		s.StartTime = &t
	}
	return nil
}

// Join records the candidate and forces the session LIVE.
func (s *Session) Join(candidateName, candidateEmail string, now time.Time) error {
	if s.Status == StatusCompleted {
		return ErrSessionCompleted
	}
	if err := validateName(candidateName); err != nil {
		return err
	}
	s.CandidateName = strings.TrimSpace(candidateName)
	s.CandidateEmail = strings.TrimSpace(candidateEmail)
	return s.Start(now)
}

// End completes the session. Ending a completed session changes nothing.
func (s *Session) End(now time.Time) {
	if s.Status == StatusCompleted {
		return
	}
	s.Status = StatusCompleted
	t := now
	s.EndTime = &t
}

// Append stamps in and adds it to the log. The stamp never goes backwards
// relative to the last appended event.
func (s *Session) Append(in EventInput, now time.Time) SessionEvent {
	ts := now
	if n := len(s.Events); n > 0 && ts.Before(s.Events[n-1].Timestamp) {
		ts = s.Events[n-1].Timestamp
	}
	ev := SessionEvent{
		Timestamp: ts,
		Type:      in.Type,
		Severity:  in.Severity,
		Meta:      cloneRaw(in.Meta),
	}
	s.Events = append(s.Events, ev)
	return ev
}

// CanAdvanceTo reports whether moving from s to next keeps status monotonic.
func (s Status) CanAdvanceTo(next Status) bool {
	return s.rank() >= 0 && next.rank() >= s.rank()
}

// Clone returns a deep copy safe to hand out of a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	out.Events = make([]SessionEvent, len(s.Events))
	for i, ev := range s.Events {
		ev.Meta = cloneRaw(ev.Meta)
		out.Events[i] = ev
	}
	return &out
}
