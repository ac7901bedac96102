package orch

import (
	"context"

	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/dkeye/Proctor/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Handshake is the room metadata a connection may carry when it opens.
type Handshake struct {
	SessionID string
	Role      string
}

// Connect registers a new connection and joins it to the handshake's room
// when the handshake is usable. Otherwise the connection stays inert until an
// explicit join.
func (o *Orchestrator) Connect(conn domain.ConnID, sess core.MemberSession, cancel context.CancelFunc, hs Handshake) bool {
	o.Registry.Bind(conn, sess, cancel)
	metrics.ConnectionsActive.Inc()

	if hs.SessionID == "" {
		return false
	}
	sid, err := domain.ParseSessionID(hs.SessionID)
	if err != nil {
		log.Info().Str("module", "orch").Str("conn", string(conn)).Msg("handshake without usable session id, connection inert")
		return false
	}
	role, err := domain.ParseRole(hs.Role)
	if err != nil {
		log.Info().Str("module", "orch").Str("conn", string(conn)).Str("role", hs.Role).Msg("handshake without usable role, connection inert")
		return false
	}
	return o.Join(conn, sid, role)
}

// Join binds conn to sid and tells the other members. Repeating a join with
// the same room and role changes nothing and notifies no one.
func (o *Orchestrator) Join(conn domain.ConnID, sid domain.SessionID, role domain.Role) bool {
	if room, sess, ok := o.Registry.RoomOf(conn); ok {
		if room == sid && sess.Meta().Role == role {
			return false
		}
		o.Leave(conn)
	}
	if !o.Registry.Join(sid, conn, role) {
		return false
	}
	metrics.RoomJoins.Inc()
	o.deliver(sid, conn, EventUserJoined, PeerNotice{Role: role, ConnectionID: conn})
	return true
}

// Leave drops conn from its room, if any, and notifies who remains.
func (o *Orchestrator) Leave(conn domain.ConnID) bool {
	room, sess, ok := o.Registry.Leave(conn)
	if !ok {
		return false
	}
	o.deliver(room, conn, EventUserLeft, PeerNotice{Role: sess.Meta().Role, ConnectionID: conn})
	return true
}

// Disconnect is final: membership goes immediately, there is no grace period.
func (o *Orchestrator) Disconnect(conn domain.ConnID) {
	if _, ok := o.Registry.GetSession(conn); !ok {
		return
	}
	o.Leave(conn)
	o.Registry.Unbind(conn)
	metrics.ConnectionsActive.Dec()
}

// EvictRoom cancels every connection in sid; each adapter then disconnects.
func (o *Orchestrator) EvictRoom(sid domain.SessionID) int {
	peers := o.Registry.AllPeers(sid)
	for _, p := range peers {
		o.Registry.Cancel(p.ConnID)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Int("members", len(peers)).Msg("room evicted")
	return len(peers)
}

// SessionDeleted applies the orphan policy to a deleted session's room.
func (o *Orchestrator) SessionDeleted(sid domain.SessionID) {
	if o.Orphans == OrphanEvict {
		o.EvictRoom(sid)
	}
}
