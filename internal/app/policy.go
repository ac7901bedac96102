package app

import (
	"fmt"

	"github.com/dkeye/Proctor/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a peer whose outbound buffer is full.
type Policy interface {
	OnBackPressure(room domain.SessionID, member *domain.Member) BackpressureAction
}

// DropPolicy loses the frame and keeps the peer. Relay is best-effort.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.SessionID, *domain.Member) BackpressureAction {
	return DropFrame
}

// KickPolicy disconnects a peer that cannot keep up.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.SessionID, *domain.Member) BackpressureAction {
	return KickMember
}

func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", name)
}
