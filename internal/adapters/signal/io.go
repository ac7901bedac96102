package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Proctor/internal/app/orch"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/dkeye/Proctor/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, conn domain.ConnID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Closing the socket unblocks the read pump, which disconnects.
			log.Info().Str("module", "signal").Str("conn", string(conn)).Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(conn)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(conn)).Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn)).Msg("writePump ping failed")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, conn domain.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(conn)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(conn)
		ctl.limiter.Forget(conn)
		c.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn)).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(ctx, conn, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, conn domain.ConnID, c *WsSignalConn, data []byte) {
	var env orch.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn)).Msg("bad json")
		ctl.sendError(c, "bad_json")
		return
	}
	if !ctl.limiter.Allow(conn) {
		metrics.MessagesRateLimited.Inc()
		ctl.sendError(c, "rate_limited")
		return
	}

	switch env.Type {
	case orch.TypeJoinRoom:
		ctl.handleJoin(conn, c, env.Data)
	case orch.TypeLeaveRoom:
		ctl.handleLeave(conn, c)
	case orch.TypePing:
		ctl.handlePing(c)
	case orch.TypeWhoAmI:
		ctl.handleWhoAmI(conn, c)
	default:
		if !orch.Routable(env.Type) {
			metrics.MessagesReceived.WithLabelValues("unknown").Inc()
			log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
			ctl.sendError(c, "unknown_type")
			return
		}
		ctl.handleRelay(ctx, conn, c, env)
		return
	}
	metrics.MessagesReceived.WithLabelValues(env.Type).Inc()
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, event string, v any) {
	frame, err := orch.Encode(event, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(frame)
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, code string) {
	ctl.sendJSON(c, "error", map[string]string{"error": code})
}
