// Package engine composes the subscription registry, history buffer,
// rate limiter, and auth store into the single process-wide state
// shared by every connection, constructed once at startup.
package engine

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"signalbus/internal/auth"
	"signalbus/internal/history"
	"signalbus/internal/ratelimit"
	"signalbus/internal/registry"
)

// Engine is the daemon's shared, concurrency-safe state.
type Engine struct {
	Registry  *registry.Registry
	History   *history.History
	RateLimit *ratelimit.Limiter
	Auth      *auth.Store

	nextID atomic.Uint64

	QueueCapacity   int
	DefaultTokenTTL time.Duration

	logger zerolog.Logger
}

// New constructs an Engine with fresh, empty sub-stores. Call
// InitializeDefaults before serving any connection.
func New(historySize, queueCapacity int, defaultTokenTTL time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{
		Registry:        registry.New(),
		History:         history.New(historySize),
		RateLimit:       ratelimit.New(),
		Auth:            auth.New(logger),
		QueueCapacity:   queueCapacity,
		DefaultTokenTTL: defaultTokenTTL,
		logger:          logger,
	}
}

// InitializeDefaults seeds the bootstrap admin user/token. It returns
// the bootstrap token so main() can log it for the operator.
func (e *Engine) InitializeDefaults() (string, error) {
	return e.Auth.InitializeDefaults()
}

// NextID allocates the next monotonic signal ID from a single
// process-wide counter shared by every connection.
func (e *Engine) NextID() uint64 {
	return e.nextID.Add(1)
}

// NewQueue allocates a delivery queue of the engine's configured
// capacity for a new LISTEN subscription.
func (e *Engine) NewQueue() registry.Queue {
	return make(registry.Queue, e.QueueCapacity)
}

// Sweep runs the periodic maintenance pass: history TTL sweep, then
// rate-counter trim, in that order.
func (e *Engine) Sweep(nowSeconds uint64) {
	e.History.Sweep(nowSeconds)
	e.RateLimit.Trim()
}
