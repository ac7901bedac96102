package domain

import (
	"errors"
	"strings"
)

const MaxSessionIDLen = 64

var ErrInvalidSessionID = errors.New("invalid session id")

// SessionID names both a stored session and its transient room.
type SessionID string

func ParseSessionID(s string) (SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > MaxSessionIDLen || strings.ContainsAny(s, " \t\r\n/") {
		return "", ErrInvalidSessionID
	}
	return SessionID(s), nil
}

// RoomInfo is a read-only view of a derived room.
type RoomInfo struct {
	SessionID   SessionID `json:"sessionId"`
	MemberCount int       `json:"memberCount"`
}
