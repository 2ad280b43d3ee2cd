package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	sig "signalbus/internal/signal"
)

func newTestEngine() *Engine {
	return New(100, 10, time.Hour, zerolog.Nop())
}

func TestInitializeDefaultsReturnsUsableToken(t *testing.T) {
	e := newTestEngine()
	token, err := e.InitializeDefaults()
	if err != nil {
		t.Fatalf("InitializeDefaults: %v", err)
	}
	if !e.Auth.Authenticate(token, nil) {
		t.Fatal("bootstrap token should authenticate against the engine's auth store")
	}
}

func TestNextIDMonotonic(t *testing.T) {
	e := newTestEngine()
	prev := e.NextID()
	for i := 0; i < 100; i++ {
		next := e.NextID()
		if next <= prev {
			t.Fatalf("expected strictly increasing IDs, got %d after %d", next, prev)
		}
		prev = next
	}
}

func TestNewQueueHasConfiguredCapacity(t *testing.T) {
	e := newTestEngine()
	q := e.NewQueue()
	if cap(q) != e.QueueCapacity {
		t.Fatalf("queue capacity = %d, want %d", cap(q), e.QueueCapacity)
	}
}

func TestSweepDelegatesToHistoryAndRateLimit(t *testing.T) {
	e := newTestEngine()

	ttl := uint64(1)
	e.History.Append(sig.Signal{Name: "a", Timestamp: 1}, e.NextID(), &ttl)
	if e.History.Len() != 1 {
		t.Fatalf("expected 1 history entry before sweep, got %d", e.History.Len())
	}

	e.RateLimit.SetRule("a", 1, time.Minute)
	e.RateLimit.Admit("a")

	e.Sweep(1000)

	if e.History.Len() != 0 {
		t.Fatalf("expected sweep to drop the expired entry, got %d remaining", e.History.Len())
	}
}
