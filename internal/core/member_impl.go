package core

import "github.com/dkeye/Proctor/internal/domain"

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	meta   *domain.Member
	signal SignalConnection
}

func NewMemberSession(meta *domain.Member, signal SignalConnection) MemberSession {
	return &memberSession{meta: meta, signal: signal}
}

func (m *memberSession) Meta() *domain.Member     { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.signal }

// WithRole returns a copy carrying role; the original is left untouched so
// snapshots taken before a re-join stay consistent.
func (m *memberSession) WithRole(role domain.Role) MemberSession {
	meta := *m.meta
	meta.Role = role
	return &memberSession{meta: &meta, signal: m.signal}
}
