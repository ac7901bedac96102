package core

import "github.com/dkeye/Proctor/internal/domain"

// MemberSession binds domain.Member and its transport endpoint.
// This is what the registry stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
	WithRole(domain.Role) MemberSession
}
