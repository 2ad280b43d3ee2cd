// Package sweeper runs the background maintenance task: a single
// ticker-driven goroutine that periodically sweeps expired history
// entries and trims rate-limit counters.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"signalbus/internal/engine"
	"signalbus/internal/metrics"
)

// Sweeper periodically calls engine.Sweep and refreshes the history
// size / token count gauges.
type Sweeper struct {
	eng      *engine.Engine
	registry *metrics.Registry
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a sweeper with the given period. The period does not
// need to be exact; sweeping is best-effort.
func New(eng *engine.Engine, registry *metrics.Registry, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{eng: eng, registry: registry, interval: interval, logger: logger}
}

// Run ticks until ctx is cancelled. A panic inside a single sweep is
// not expected, but a future failure inside Sweep is logged rather
// than allowed to end the task.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("background sweep panicked, continuing")
		}
	}()

	s.eng.Sweep(uint64(time.Now().Unix()))
	s.registry.HistorySize.Set(float64(s.eng.History.Len()))
	s.registry.TokenCount.Set(float64(s.eng.Auth.TokenCount()))
}
