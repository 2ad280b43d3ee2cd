// Package registry implements the subscription registry: fan-out from
// patterns to the bounded delivery queues subscribed under them.
package registry

import (
	"sync"

	sig "signalbus/internal/signal"
)

// Queue is the bounded channel a subscription drains. Capacity is fixed
// at construction time by the caller (internal/config QueueCapacity).
type Queue chan sig.Signal

// Registry maps patterns to the delivery queues subscribed under them.
// It does not deduplicate: a connection that subscribes twice under the
// same pattern is fanned out to twice.
type Registry struct {
	mu    sync.Mutex
	byPat map[string][]Queue
}

// New creates an empty subscription registry.
func New() *Registry {
	return &Registry{byPat: make(map[string][]Queue)}
}

// Subscribe appends queue to the list registered under pattern.
func (r *Registry) Subscribe(pattern string, queue Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPat[pattern] = append(r.byPat[pattern], queue)
}

// Unsubscribe removes the first occurrence of queue registered under
// pattern. It is called when a listening connection tears down so the
// registry does not accumulate stale entries indefinitely.
func (r *Registry) Unsubscribe(pattern string, queue Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queues := r.byPat[pattern]
	for i, q := range queues {
		if q == queue {
			r.byPat[pattern] = append(queues[:i], queues[i+1:]...)
			break
		}
	}
	if len(r.byPat[pattern]) == 0 {
		delete(r.byPat, pattern)
	}
}

// Fanout delivers s to every queue registered under a pattern matching
// s.Name. Delivery is a non-blocking send per queue; a full queue drops
// the signal for that subscriber only. Returns the number of queues
// considered, for logging/metrics.
func (r *Registry) Fanout(s sig.Signal) (considered int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for pattern, queues := range r.byPat {
		if !sig.Matches(pattern, s.Name) {
			continue
		}
		for _, q := range queues {
			considered++
			select {
			case q <- s:
			default:
				// Queue full or receiver gone; drop for this subscriber only.
			}
		}
	}
	return considered
}

// PatternCount returns the number of distinct patterns with at least one
// live subscription, for metrics/diagnostics.
func (r *Registry) PatternCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPat)
}
