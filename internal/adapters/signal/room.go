package signal

import (
	"encoding/json"

	"github.com/dkeye/Proctor/internal/domain"
	"github.com/rs/zerolog/log"
)

type joinPayload struct {
	SessionID   string `json:"sessionId"`
	InterviewID string `json:"interviewId"`
	Role        string `json:"role"`
}

type joinedData struct {
	SessionID domain.SessionID `json:"sessionId"`
	Role      domain.Role      `json:"role"`
	Members   []domain.Member  `json:"members"`
}

// handleJoin is the explicit, late binding of a connection to a room. It
// converges on the same Orchestrator.Join as the connect-time handshake.
func (ctl *SignalWSController) handleJoin(conn domain.ConnID, c *WsSignalConn, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	raw := p.SessionID
	if raw == "" {
		raw = p.InterviewID
	}
	sid, err := domain.ParseSessionID(raw)
	if err != nil {
		ctl.sendError(c, "invalid_session_id")
		return
	}
	role, err := domain.ParseRole(p.Role)
	if err != nil {
		ctl.sendError(c, "invalid_role")
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(conn)).Str("sid", string(sid)).Str("role", string(role)).Msg("join")
	ctl.Orch.Join(conn, sid, role)
	ctl.sendJSON(c, "joined", joinedData{
		SessionID: sid,
		Role:      role,
		Members:   ctl.Orch.Registry.MembersOfRoom(sid),
	})
}

// handleLeave leaves the current room; the connection itself stays open.
func (ctl *SignalWSController) handleLeave(conn domain.ConnID, c *WsSignalConn) {
	log.Info().Str("module", "signal").Str("conn", string(conn)).Msg("leave")
	ctl.Orch.Leave(conn)
	ctl.sendJSON(c, "left", nil)
}
