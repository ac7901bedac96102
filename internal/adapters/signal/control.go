package signal

import (
	"github.com/dkeye/Proctor/internal/domain"
)

func (ctl *SignalWSController) handlePing(c *WsSignalConn) {
	ctl.sendJSON(c, "pong", nil)
}

type whoAmIData struct {
	ConnectionID domain.ConnID    `json:"connectionId"`
	SessionID    domain.SessionID `json:"sessionId,omitempty"`
	Role         domain.Role      `json:"role,omitempty"`
}

func (ctl *SignalWSController) handleWhoAmI(conn domain.ConnID, c *WsSignalConn) {
	resp := whoAmIData{ConnectionID: conn}
	if room, sess, ok := ctl.Orch.Registry.RoomOf(conn); ok {
		resp.SessionID = room
		resp.Role = sess.Meta().Role
	}
	ctl.sendJSON(c, "whoami", resp)
}
