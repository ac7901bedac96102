package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
)

// Inbound message types.
const (
	TypeJoinRoom        = "join-room"
	TypeLeaveRoom       = "leave-room"
	TypeOffer           = "offer"
	TypeAnswer          = "answer"
	TypeICECandidate    = "ice-candidate"
	TypeViolation       = "violation"
	TypeCandidateAction = "candidate-action"
	TypeTelemetry       = "telemetry"
	TypePing            = "ping"
	TypeWhoAmI          = "whoami"
)

// Events emitted to room members.
const (
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventLiveAlert       = "live-alert"
	EventViolationLogged = "violation-logged"
	EventCandidateUpdate = "candidate-update"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrBadPayload     = errors.New("bad payload")
	ErrNoRoom         = errors.New("no room for message")
)

// Envelope is the wire shape of every real-time frame.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func Encode(event string, data any) (core.Frame, error) {
	b, err := json.Marshal(outbound{Type: event, Data: data})
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}

// PeerNotice is carried by user-joined and user-left.
type PeerNotice struct {
	Role         domain.Role   `json:"role"`
	ConnectionID domain.ConnID `json:"connectionId"`
}
