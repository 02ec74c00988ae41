// Package fetch provides a keyed, single-flight, latest-wins fetch
// coordinator. Each key owns a slot that moves idle -> loading ->
// loaded/failed, and returns to idle only through explicit cancellation.
// A monotonic generation token per slot guarantees that the result of a
// fetch is applied only while that fetch is still the most recently
// issued one for its key: results arriving for a superseded generation
// are discarded silently, regardless of completion order.
package fetch

import (
	"context"
	"sync"
)

// Status is the observable lifecycle state of a slot.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Func produces the value for one fetch attempt.
type Func[V any] func(ctx context.Context) (V, error)

type slot[V any] struct {
	status Status
	gen    uint64
	value  V
	err    error
}

// Group coordinates fetches per key of type K producing values of type V.
// The zero value is not usable; create one with NewGroup.
type Group[K comparable, V any] struct {
	mu    sync.Mutex
	slots map[K]*slot[V]
}

// NewGroup creates an empty coordinator.
func NewGroup[K comparable, V any]() *Group[K, V] {
	return &Group[K, V]{slots: make(map[K]*slot[V])}
}

// Do starts fn for key unless a fetch for that key is already in
// flight, in which case the start is silently dropped and Do returns
// (nil, false). On a real start it returns a channel that is closed
// once this attempt has settled - either applied to the slot or
// discarded because a newer generation superseded it - and true.
//
// The underlying call is never aborted by this package; ctx is handed
// through to fn untouched.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn Func[V]) (<-chan struct{}, bool) {
	g.mu.Lock()
	s := g.slot(key)
	if s.status == StatusLoading {
		g.mu.Unlock()
		return nil, false
	}
	s.status = StatusLoading
	s.gen++
	gen := s.gen
	g.mu.Unlock()

	return g.launch(ctx, s, gen, fn), true
}

// Replace starts fn for key unconditionally, superseding any fetch that
// is still in flight for it. The superseded fetch keeps running but its
// result will be discarded at apply time: the later-issued fetch always
// wins, whichever resolves first.
func (g *Group[K, V]) Replace(ctx context.Context, key K, fn Func[V]) <-chan struct{} {
	g.mu.Lock()
	s := g.slot(key)
	s.status = StatusLoading
	s.gen++
	gen := s.gen
	g.mu.Unlock()

	return g.launch(ctx, s, gen, fn)
}

// Cancel returns the slot for key to idle and bumps its generation so
// that any in-flight result or error for the previous generation is
// suppressed. Cancellation is cooperative: the underlying call is not
// aborted. The last applied value, if any, stays cached on the slot.
func (g *Group[K, V]) Cancel(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[key]
	if !ok {
		return
	}
	s.gen++
	s.status = StatusIdle
	s.err = nil
}

// State returns a snapshot of the slot for key: the last applied value,
// the last applied error, and the current status. Unknown keys report
// the zero value and StatusIdle.
func (g *Group[K, V]) State(key K) (V, error, Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[key]
	if !ok {
		var zero V
		return zero, nil, StatusIdle
	}
	return s.value, s.err, s.status
}

// slot returns the slot for key, creating it on first use.
// Callers must hold g.mu.
func (g *Group[K, V]) slot(key K) *slot[V] {
	s, ok := g.slots[key]
	if !ok {
		s = &slot[V]{}
		g.slots[key] = s
	}
	return s
}

func (g *Group[K, V]) launch(ctx context.Context, s *slot[V], gen uint64, fn Func[V]) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := fn(ctx)

		g.mu.Lock()
		defer g.mu.Unlock()
		if s.gen != gen {
			// Superseded by a newer fetch or a cancellation.
			return
		}
		if err != nil {
			s.status = StatusFailed
			s.err = err
			return
		}
		s.status = StatusLoaded
		s.value = v
		s.err = nil
	}()
	return done
}
