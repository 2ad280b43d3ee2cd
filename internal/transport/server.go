// Package transport binds the daemon's Unix domain socket and runs the
// accept loop, spawning one task per connection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"signalbus/internal/engine"
	"signalbus/internal/metrics"
	"signalbus/internal/protocol"
)

const acceptErrorBackoff = 100 * time.Millisecond

// Server binds the configured socket path and accepts connections.
type Server struct {
	socketPath string
	eng        *engine.Engine
	metrics    *metrics.Registry
	logger     zerolog.Logger

	connLimiter *rate.Limiter

	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a Server bound to socketPath once Start is called. The
// connection-rate limiter guards the accept loop itself against a
// connection flood; it is a token bucket rather than the engine's
// sliding-window limiter because it protects accept(), not signal
// admission.
func New(socketPath string, eng *engine.Engine, registry *metrics.Registry, connRateBurst int, connRatePerSec float64, logger zerolog.Logger) *Server {
	return &Server{
		socketPath:  socketPath,
		eng:         eng,
		metrics:     registry,
		logger:      logger,
		connLimiter: rate.NewLimiter(rate.Limit(connRatePerSec), connRateBurst),
	}
}

// Start removes any stale socket file, binds a fresh listener, and
// launches the accept loop in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	if s.listener != nil {
		return errors.New("transport already started")
	}

	if err := os.RemoveAll(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	s.listener = ln
	s.logger.Info().Str("socket_path", s.socketPath).Msg("transport listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()

	return nil
}

// Stop closes the listener and waits for every in-flight connection
// task to return.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("accept error, retrying after backoff")
			time.Sleep(acceptErrorBackoff)
			continue
		}

		if !s.connLimiter.Allow() {
			s.metrics.ConnectionsRejected.Inc()
			_ = conn.Close()
			continue
		}

		s.metrics.ConnectionsTotal.Inc()
		s.metrics.ConnectionsActive.Inc()

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer s.metrics.ConnectionsActive.Dec()
			protocol.Handle(c, protocol.Deps{Engine: s.eng, Metrics: s.metrics, Logger: s.logger})
		}(conn)
	}
}
