package orch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/dkeye/Proctor/internal/metrics"
	"github.com/rs/zerolog/log"
)

type fanout int

const (
	fanoutNone fanout = iota
	fanoutPeers
)

// relayCall carries one inbound message through its route.
type relayCall struct {
	from   domain.ConnID
	room   domain.SessionID
	data   json.RawMessage
	at     time.Time
	input  domain.EventInput
	event  *domain.SessionEvent
	action json.RawMessage
}

// route is one row of the relay table. decode rejects a malformed payload
// before anything is sent. persist appends to the session log before fan-out;
// confirm, when set, goes to every member.
type route struct {
	emit    string
	fanout  fanout
	decode  func(rc *relayCall) error
	persist bool
	shape   func(rc *relayCall) any

	confirmEmit string
	confirm     func(rc *relayCall) any
}

func signalingRoute(event string) route {
	return route{emit: event, fanout: fanoutPeers, shape: withSender}
}

var routes = map[string]route{
	TypeOffer:        signalingRoute(TypeOffer),
	TypeAnswer:       signalingRoute(TypeAnswer),
	TypeICECandidate: signalingRoute(TypeICECandidate),
	TypeViolation: {
		emit:        EventLiveAlert,
		fanout:      fanoutPeers,
		decode:      decodeViolation,
		persist:     true,
		shape:       liveAlert,
		confirmEmit: EventViolationLogged,
		confirm:     violationLogged,
	},
	TypeCandidateAction: {
		emit:   EventCandidateUpdate,
		fanout: fanoutPeers,
		decode: decodeCandidateAction,
		shape:  candidateUpdate,
	},
	TypeTelemetry: {fanout: fanoutNone},
}

// Routable reports whether msgType is handled by Relay.
func Routable(msgType string) bool {
	_, ok := routes[msgType]
	return ok
}

// Relay routes one inbound message from conn according to the relay table.
// A room with no other members is not an error. A violation whose session is
// gone is still alerted.
func (o *Orchestrator) Relay(ctx context.Context, from domain.ConnID, msg Envelope) (core.PublishResult, error) {
	r, ok := routes[msg.Type]
	if !ok {
		return core.PublishResult{}, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	started := time.Now()
	defer func() { metrics.RelayDuration.WithLabelValues(msg.Type).Observe(time.Since(started).Seconds()) }()

	if r.fanout == fanoutNone && !r.persist {
		return core.PublishResult{}, nil
	}

	room, ok := o.resolveRoom(from, msg.Data)
	if !ok {
		return core.PublishResult{}, ErrNoRoom
	}
	rc := &relayCall{from: from, room: room, data: msg.Data, at: o.now()}

	if r.decode != nil {
		if err := r.decode(rc); err != nil {
			return core.PublishResult{}, err
		}
	}
	if r.persist {
		o.persist(ctx, rc)
	}

	res := o.deliver(room, from, r.emit, r.shape(rc))
	if r.confirm != nil {
		o.deliver(room, "", r.confirmEmit, r.confirm(rc))
	}
	return res, nil
}

func (o *Orchestrator) persist(ctx context.Context, rc *relayCall) {
	if o.Sessions == nil {
		return
	}
	ev, err := o.Sessions.LogEvent(ctx, rc.room, rc.input)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("log_event").Inc()
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(rc.room)).Str("type", rc.input.Type).Msg("event not persisted, relaying anyway")
		return
	}
	rc.event = ev
}

type roomAddress struct {
	SessionID   string `json:"sessionId"`
	InterviewID string `json:"interviewId"`
	RoomID      string `json:"roomId"`
}

// resolveRoom prefers an explicit address in the payload and falls back to
// the sender's current room.
func (o *Orchestrator) resolveRoom(from domain.ConnID, data json.RawMessage) (domain.SessionID, bool) {
	var addr roomAddress
	if len(data) > 0 && json.Unmarshal(data, &addr) == nil {
		for _, s := range []string{addr.SessionID, addr.InterviewID, addr.RoomID} {
			if s == "" {
				continue
			}
			if sid, err := domain.ParseSessionID(s); err == nil {
				return sid, true
			}
		}
	}
	room, _, ok := o.Registry.RoomOf(from)
	return room, ok
}

// withSender passes the payload through untouched apart from senderId.
func withSender(rc *relayCall) any {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(rc.data, &obj); err != nil || obj == nil {
		return map[string]any{"payload": rc.data, "senderId": rc.from}
	}
	sender, _ := json.Marshal(rc.from)
	obj["senderId"] = sender
	return obj
}

type violationIn struct {
	Type     string          `json:"type"`
	Severity string          `json:"severity"`
	Meta     json.RawMessage `json:"meta"`
}

func decodeViolation(rc *relayCall) error {
	var v violationIn
	if err := json.Unmarshal(rc.data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	in := domain.EventInput{Type: strings.TrimSpace(v.Type), Severity: v.Severity, Meta: v.Meta}
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	rc.input = in
	return nil
}

// timestamp is the stored stamp when the event was persisted.
func (rc *relayCall) timestamp() time.Time {
	if rc.event != nil {
		return rc.event.Timestamp
	}
	return rc.at
}

type liveAlertData struct {
	Type      string          `json:"type"`
	Severity  string          `json:"severity,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	Message   string          `json:"message"`
}

func liveAlert(rc *relayCall) any {
	return liveAlertData{
		Type:      rc.input.Type,
		Severity:  rc.input.Severity,
		Timestamp: rc.timestamp(),
		Meta:      rc.input.Meta,
		Message:   "Candidate triggered: " + domain.HumanizeEventType(rc.input.Type),
	}
}

type violationLoggedData struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func violationLogged(rc *relayCall) any {
	return violationLoggedData{Type: rc.input.Type, Timestamp: rc.timestamp()}
}

type candidateUpdateData struct {
	Action    json.RawMessage `json:"action"`
	Timestamp time.Time       `json:"timestamp"`
}

func decodeCandidateAction(rc *relayCall) error {
	var in struct {
		Action json.RawMessage `json:"action"`
	}
	if err := json.Unmarshal(rc.data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(in.Action) == 0 || string(in.Action) == "null" {
		return fmt.Errorf("%w: candidate action missing", ErrBadPayload)
	}
	rc.action = in.Action
	return nil
}

func candidateUpdate(rc *relayCall) any {
	return candidateUpdateData{Action: rc.action, Timestamp: rc.at}
}
