package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	MaxEventTypeLen = 64
	MaxSeverityLen  = 32
)

var (
	ErrEventTypeEmpty   = errors.New("event type empty")
	ErrEventTypeTooLong = errors.New("event type too long")
	ErrSeverityTooLong  = errors.New("severity too long")
)

// SessionEvent is one logged occurrence. Immutable once appended.
type SessionEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Severity  string          `json:"severity,omitempty"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}

// EventInput is what a caller supplies; the timestamp is always the store's.
type EventInput struct {
	Type     string          `json:"type"`
	Severity string          `json:"severity,omitempty"`
	Meta     json.RawMessage `json:"meta,omitempty"`
}

func (in EventInput) Validate() error {
	t := strings.TrimSpace(in.Type)
	if t == "" {
		return ErrEventTypeEmpty
	}
	if len(t) > MaxEventTypeLen {
		return ErrEventTypeTooLong
	}
	if len(in.Severity) > MaxSeverityLen {
		return ErrSeverityTooLong
	}
	return nil
}

// HumanizeEventType turns TAB_SWITCH into "TAB SWITCH".
func HumanizeEventType(t string) string {
	return strings.ReplaceAll(t, "_", " ")
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	out := make(json.RawMessage, len(r))
	copy(out, r)
	return out
}
