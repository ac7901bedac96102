package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Room    domain.SessionID
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Peer is a snapshot of one room member taken under the registry lock.
type Peer struct {
	ConnID  domain.ConnID
	Session core.MemberSession
}

// Registry indexes live connections and the room each is bound to.
// Rooms are never stored: a room is whatever MembersOfRoom returns.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnID]*connEntry)}
}

// Bind registers a live connection that is not in any room yet.
func (r *Registry) Bind(conn domain.ConnID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn] = &connEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("bound connection")
}

func (r *Registry) GetSession(conn domain.ConnID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[conn]; ok {
		return e.Session, true
	}
	return nil, false
}

// Join binds conn to room with role. It reports false when conn is unknown.
func (r *Registry) Join(room domain.SessionID, conn domain.ConnID, role domain.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[conn]
	if !ok {
		return false
	}
	e.Room = room
	e.Session = e.Session.WithRole(role)
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("sid", string(room)).Str("role", string(role)).Msg("joined room")
	return true
}

// Leave clears conn's room and returns what it was. Leaving when not in a
// room is a no-op.
func (r *Registry) Leave(conn domain.ConnID) (domain.SessionID, core.MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[conn]
	if !ok || e.Room == "" {
		return "", nil, false
	}
	room := e.Room
	e.Room = ""
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("sid", string(room)).Msg("left room")
	return room, e.Session, true
}

// Unbind forgets conn entirely.
func (r *Registry) Unbind(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, conn)
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("unbound connection")
}

func (r *Registry) RoomOf(conn domain.ConnID) (domain.SessionID, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[conn]
	if !ok || e.Room == "" {
		return "", nil, false
	}
	return e.Room, e.Session, true
}

// PeersExcept returns every member of room other than conn.
func (r *Registry) PeersExcept(room domain.SessionID, conn domain.ConnID) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Peer, 0, 2)
	for id, e := range r.conns {
		if e.Room == room && id != conn {
			out = append(out, Peer{ConnID: id, Session: e.Session})
		}
	}
	return out
}

// AllPeers returns every member of room, sender included.
func (r *Registry) AllPeers(room domain.SessionID) []Peer {
	return r.PeersExcept(room, "")
}

// MembersOfRoom is AllPeers sorted by connection id, for stable listings.
func (r *Registry) MembersOfRoom(room domain.SessionID) []domain.Member {
	peers := r.AllPeers(room)
	out := make([]domain.Member, 0, len(peers))
	for _, p := range peers {
		out = append(out, *p.Session.Meta())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnID < out[j].ConnID })
	return out
}

// Rooms lists every non-empty room.
func (r *Registry) Rooms() []domain.RoomInfo {
	r.mu.RLock()
	counts := make(map[domain.SessionID]int)
	for _, e := range r.conns {
		if e.Room != "" {
			counts[e.Room]++
		}
	}
	r.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(counts))
	for sid, n := range counts {
		out = append(out, domain.RoomInfo{SessionID: sid, MemberCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Cancel stops conn's pumps; the adapter then reports the disconnect.
func (r *Registry) Cancel(conn domain.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[conn]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("canceled connection")
	return true
}
