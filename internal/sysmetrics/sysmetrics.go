// Package sysmetrics periodically samples process-wide resource usage
// (CPU, memory, goroutine count) into the Prometheus registry.
package sysmetrics

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"

	"signalbus/internal/metrics"
)

// Sampler periodically refreshes CPU/memory/goroutine gauges.
type Sampler struct {
	registry *metrics.Registry
	interval time.Duration
	logger   zerolog.Logger
}

// New creates a sampler that updates registry every interval.
func New(registry *metrics.Registry, interval time.Duration, logger zerolog.Logger) *Sampler {
	return &Sampler{registry: registry, interval: interval, logger: logger}
}

// Run samples until ctx is cancelled. Intended to run in its own
// goroutine; errors from a single sample are logged and do not stop
// the loop.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sample()
	for {
		select {
		case <-ticker.C:
			s.sample()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sampler) sample() {
	percents, err := cpu.PercentWithContext(context.Background(), 0, false)
	if err != nil {
		s.logger.Debug().Err(err).Msg("failed to sample cpu percent")
	} else if len(percents) > 0 {
		s.registry.CPUPercent.Set(percents[0])
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.registry.MemoryBytes.Set(float64(mem.Alloc))
	s.registry.Goroutines.Set(float64(runtime.NumGoroutine()))
}
