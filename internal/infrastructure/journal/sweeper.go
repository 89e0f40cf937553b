// Package journal runs the out-of-band detector for partially-provisioned
// identities. The core never repairs or retries a provisioning sequence; the
// sweeper only surfaces identities whose journal entry was never cleared, via
// log and gauge, so an operator can reconcile them against the directory.
package journal

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/contaleve/identity-service/internal/core/domain"
	"github.com/contaleve/identity-service/internal/core/ports"
	"github.com/contaleve/identity-service/internal/metrics"
)

const defaultInterval = time.Minute

// Sweeper periodically lists stale provision-journal entries.
type Sweeper struct {
	journal  ports.ProvisionJournal
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper creates a Sweeper. If interval <= 0, defaultInterval is used.
func NewSweeper(j ports.ProvisionJournal, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sweeper{journal: j, interval: interval, log: log}
}

// Start launches the sweep loop. It stops when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	stale, err := s.journal.StalePending(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("provision journal sweep failed")
		return
	}

	metrics.StaleProvisions.Set(float64(len(stale)))

	for _, key := range stale {
		s.log.Warn().
			Str("key", domain.MaskIdentifier(key)).
			Msg("identity pending credential finalization beyond threshold")
	}
}
