package signal

import (
	"context"
	"errors"

	"github.com/dkeye/Proctor/internal/app/orch"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/dkeye/Proctor/internal/metrics"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRelay(ctx context.Context, conn domain.ConnID, c *WsSignalConn, env orch.Envelope) {
	metrics.MessagesReceived.WithLabelValues(env.Type).Inc()
	_, err := ctl.Orch.Relay(ctx, conn, env)
	switch {
	case err == nil:
	case errors.Is(err, orch.ErrBadPayload):
		ctl.sendError(c, "bad_payload")
	case errors.Is(err, orch.ErrNoRoom):
		ctl.sendError(c, "no_room")
	default:
		log.Error().Err(err).Str("module", "signal").Str("conn", string(conn)).Str("type", env.Type).Msg("relay failed")
	}
}
