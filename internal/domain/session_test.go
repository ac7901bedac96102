package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession{Title: "S1", CandidateName: "Alice", HostID: "host1"}.Build(time.Unix(100, 0))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

func TestNewSession_Build(t *testing.T) {
	s := newTestSession(t)
	if s.ID == "" {
		t.Error("ID should be generated")
	}
	if s.Status != StatusScheduled {
		t.Errorf("Status = %s, want SCHEDULED", s.Status)
	}
	if s.StartTime != nil || s.EndTime != nil {
		t.Error("times should be unset")
	}
	if s.Events == nil || len(s.Events) != 0 {
		t.Errorf("Events = %v, want empty non-nil", s.Events)
	}
	other := newTestSession(t)
	if other.ID == s.ID {
		t.Error("ids should be unique")
	}
}

func TestNewSession_Validate(t *testing.T) {
	long := make([]byte, MaxTitleLen+1)
	for i := range long {
		long[i] = 'a'
	}
	tests := []struct {
		name string
		in   NewSession
		want error
	}{
		{"ok", NewSession{Title: "t", CandidateName: "c", HostID: "h"}, nil},
		{"empty title", NewSession{Title: "  ", CandidateName: "c", HostID: "h"}, ErrTitleEmpty},
		{"long title", NewSession{Title: string(long), CandidateName: "c", HostID: "h"}, ErrTitleTooLong},
		{"empty name", NewSession{Title: "t", HostID: "h"}, ErrNameEmpty},
		{"empty host", NewSession{Title: "t", CandidateName: "c"}, ErrHostEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.in.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSession_StartSetsStartTimeOnce(t *testing.T) {
	s := newTestSession(t)
	t1 := time.Unix(200, 0)
	if err := s.Start(t1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Status != StatusLive || !s.StartTime.Equal(t1) {
		t.Fatalf("after Start: %s %v", s.Status, s.StartTime)
	}
	if err := s.Start(time.Unix(300, 0)); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if err := s.Join("Bob", "", time.Unix(400, 0)); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !s.StartTime.Equal(t1) {
		t.Errorf("StartTime = %v, want unchanged %v", s.StartTime, t1)
	}
}

func TestSession_JoinSetsCandidate(t *testing.T) {
	s := newTestSession(t)
	if err := s.Join("Bob", "bob@example.com", time.Unix(200, 0)); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if s.CandidateName != "Bob" || s.CandidateEmail != "bob@example.com" {
		t.Errorf("candidate = %q %q", s.CandidateName, s.CandidateEmail)
	}
	if s.Status != StatusLive || s.StartTime == nil {
		t.Errorf("status = %s, startTime = %v", s.Status, s.StartTime)
	}
}

func TestSession_CompletedIsTerminal(t *testing.T) {
	s := newTestSession(t)
	_ = s.Start(time.Unix(200, 0))
	end := time.Unix(300, 0)
	s.End(end)
	if s.Status != StatusCompleted || !s.EndTime.Equal(end) {
		t.Fatalf("after End: %s %v", s.Status, s.EndTime)
	}

	if err := s.Join("Eve", "", time.Unix(400, 0)); !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("Join err = %v, want ErrSessionCompleted", err)
	}
	if err := s.Start(time.Unix(400, 0)); !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("Start err = %v, want ErrSessionCompleted", err)
	}
	s.End(time.Unix(500, 0))
	if s.Status != StatusCompleted || !s.EndTime.Equal(end) || s.CandidateName != "Alice" {
		t.Errorf("completed session changed: %+v", s)
	}
}

func TestSession_StatusNeverRegresses(t *testing.T) {
	ops := []func(s *Session, now time.Time){
		func(s *Session, now time.Time) { _ = s.Start(now) },
		func(s *Session, now time.Time) { _ = s.Join("Bob", "", now) },
		func(s *Session, now time.Time) { s.End(now) },
	}
	// every sequence of length 4 over the three operations
	for seq := 0; seq < 81; seq++ {
		s := newTestSession(t)
		prev := s.Status
		n := seq
		for i := 0; i < 4; i++ {
			ops[n%3](s, time.Unix(int64(1000+i), 0))
			n /= 3
			if !prev.CanAdvanceTo(s.Status) {
				t.Fatalf("seq %d: %s -> %s", seq, prev, s.Status)
			}
			prev = s.Status
		}
	}
}

func TestSession_AppendKeepsOrderAndMonotonicStamps(t *testing.T) {
	s := newTestSession(t)
	stamps := []time.Time{time.Unix(10, 0), time.Unix(5, 0), time.Unix(20, 0)}
	for i, ts := range stamps {
		ev := s.Append(EventInput{Type: []string{"A", "B", "C"}[i]}, ts)
		if ev.Timestamp.IsZero() {
			t.Fatal("event not stamped")
		}
	}
	if len(s.Events) != 3 {
		t.Fatalf("len = %d, want 3", len(s.Events))
	}
	for i, want := range []string{"A", "B", "C"} {
		if s.Events[i].Type != want {
			t.Errorf("Events[%d].Type = %s, want %s", i, s.Events[i].Type, want)
		}
	}
	if !s.Events[1].Timestamp.Equal(time.Unix(10, 0)) {
		t.Errorf("clock going backwards must be clamped, got %v", s.Events[1].Timestamp)
	}
	if s.Status != StatusScheduled {
		t.Errorf("Append changed status to %s", s.Status)
	}
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := newTestSession(t)
	_ = s.Start(time.Unix(200, 0))
	s.Append(EventInput{Type: "X", Meta: json.RawMessage(`{"a":1}`)}, time.Unix(201, 0))

	c := s.Clone()
	*c.StartTime = time.Unix(999, 0)
	c.Events[0].Meta[2] = 'b'
	c.Events = append(c.Events, SessionEvent{Type: "Y"})

	if !s.StartTime.Equal(time.Unix(200, 0)) {
		t.Error("StartTime shared with clone")
	}
	if string(s.Events[0].Meta) != `{"a":1}` {
		t.Errorf("Meta shared with clone: %s", s.Events[0].Meta)
	}
	if len(s.Events) != 1 {
		t.Error("Events shared with clone")
	}
}

func TestHumanizeEventType(t *testing.T) {
	if got := HumanizeEventType("TAB_SWITCH"); got != "TAB SWITCH" {
		t.Errorf("got %q", got)
	}
	if got := HumanizeEventType("COPY__PASTE_"); got != "COPY  PASTE " {
		t.Errorf("got %q", got)
	}
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{"host": RoleHost, "HOST": RoleHost, " Candidate ": RoleCandidate}
	for in, want := range tests {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, in := range []string{"", "observer", "hosts"} {
		if _, err := ParseRole(in); !errors.Is(err, ErrInvalidRole) {
			t.Errorf("ParseRole(%q) err = %v, want ErrInvalidRole", in, err)
		}
	}
}

func TestParseSessionID(t *testing.T) {
	if sid, err := ParseSessionID(" abc-123 "); err != nil || sid != "abc-123" {
		t.Errorf("ParseSessionID = %q, %v", sid, err)
	}
	long := make([]byte, MaxSessionIDLen+1)
	for i := range long {
		long[i] = 'x'
	}
	for _, in := range []string{"", "   ", "a b", "a/b", string(long)} {
		if _, err := ParseSessionID(in); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("ParseSessionID(%q) err = %v, want ErrInvalidSessionID", in, err)
		}
	}
}

func TestEventInput_Validate(t *testing.T) {
	long := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'a'
		}
		return string(b)
	}
	tests := []struct {
		name string
		in   EventInput
		want error
	}{
		{"ok", EventInput{Type: "TAB_SWITCH", Severity: "high"}, nil},
		{"empty type", EventInput{Type: "  "}, ErrEventTypeEmpty},
		{"long type", EventInput{Type: long(MaxEventTypeLen + 1)}, ErrEventTypeTooLong},
		{"long severity", EventInput{Type: "X", Severity: long(MaxSeverityLen + 1)}, ErrSeverityTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.in.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate = %v, want %v", err, tt.want)
			}
		})
	}
}
