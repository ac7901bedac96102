package domain

import (
	"errors"
	"strings"
)

var ErrInvalidRole = errors.New("invalid role")

type Role string

const (
	RoleHost      Role = "HOST"
	RoleCandidate Role = "CANDIDATE"
)

// ParseRole accepts "host"/"candidate" in any case.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleHost:
		return RoleHost, nil
	case RoleCandidate:
		return RoleCandidate, nil
	}
	return "", ErrInvalidRole
}

type ConnID string

// Member represents a connection's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	ConnID      ConnID `json:"connectionId"`
	Role        Role   `json:"role,omitempty"`
	ClientToken string `json:"-"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(id ConnID, clientToken string) *Member {
	return &Member{ConnID: id, ClientToken: clientToken}
}
