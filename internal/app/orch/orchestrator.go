package orch

import (
	"fmt"
	"time"

	"github.com/dkeye/Proctor/internal/app"
	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/dkeye/Proctor/internal/metrics"
	"github.com/rs/zerolog/log"
)

// OrphanPolicy says what happens to a room whose session was deleted while
// members are still connected.
type OrphanPolicy string

const (
	OrphanKeep  OrphanPolicy = "keep"
	OrphanEvict OrphanPolicy = "evict"
)

func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch OrphanPolicy(s) {
	case "", OrphanKeep:
		return OrphanKeep, nil
	case OrphanEvict:
		return OrphanEvict, nil
	}
	return "", fmt.Errorf("unknown orphan policy %q", s)
}

type Orchestrator struct {
	Registry *app.Registry
	Sessions *app.SessionController
	Policy   app.Policy
	Orphans  OrphanPolicy
	Clock    func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

// deliver encodes once and fans out to room. An empty exclude means every
// member, sender included. Nothing here blocks: TrySend fails fast.
func (o *Orchestrator) deliver(room domain.SessionID, exclude domain.ConnID, event string, data any) core.PublishResult {
	res := core.PublishResult{}
	frame, err := Encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("encode outbound")
		return res
	}

	var peers []app.Peer
	if exclude == "" {
		peers = o.Registry.AllPeers(room)
	} else {
		peers = o.Registry.PeersExcept(room, exclude)
	}
	for _, p := range peers {
		if err := p.Session.Signal().TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, p.Session)
			continue
		}
		res.SendTo++
	}
	metrics.Deliveries.WithLabelValues(event, "sent").Add(float64(res.SendTo))
	if n := len(res.Dropped); n > 0 {
		metrics.Deliveries.WithLabelValues(event, "dropped").Add(float64(n))
	}
	log.Debug().Str("module", "orch").Str("sid", string(room)).Str("event", event).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")

	o.applyPolicy(room, res.Dropped)
	return res
}

func (o *Orchestrator) applyPolicy(room domain.SessionID, dropped []core.MemberSession) {
	if o.Policy == nil {
		return
	}
	for _, slow := range dropped {
		switch o.Policy.OnBackPressure(room, slow.Meta()) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("sid", string(room)).Str("conn", string(slow.Meta().ConnID)).Msg("kicking slow member")
			o.Registry.Cancel(slow.Meta().ConnID)
		case app.DropFrame, app.NoAction:
		}
	}
}
