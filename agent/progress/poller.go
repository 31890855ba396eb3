package progress

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

const defaultPollInterval = 3 * time.Second

// Poller drives the polling side of status reconciliation. Its lifetime is
// bounded: it stops on the first terminal status or the first transport
// failure. A lost poll leaves the last known progress in place; it never
// clears or regresses state.
type Poller struct {
	phone      contractx.Telephony
	reconciler *Reconciler
	interval   time.Duration
}

func NewPoller(phone contractx.Telephony, reconciler *Reconciler, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		phone:      phone,
		reconciler: reconciler,
		interval:   interval,
	}
}

// Watch polls the provider for callID until the call is terminal, a poll
// fails, or ctx is done. It blocks; run it in its own goroutine.
func (p *Poller) Watch(ctx context.Context, sessionID, callID string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := p.phone.GetCallStatus(ctx, callID)
		if err != nil {
			log.Warn().Err(err).Str("call_id", callID).Msg("call status poll failed, stopping")
			return
		}

		snap, err := p.reconciler.Apply(ctx, sessionID, callID, info.Status)
		if err != nil {
			log.Warn().Err(err).Str("call_id", callID).Msg("reconcile failed, stopping poll")
			return
		}
		if snap.Terminal {
			log.Info().Str("call_id", callID).Msg("call reached terminal status")
			return
		}
	}
}
