// Package debounce turns a rapid stream of query-text changes into at most
// one search invocation per idle period, discarding stale resolutions.
package debounce

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultDelay is the debounce window when none is configured.
const DefaultDelay = 300 * time.Millisecond

// State is the coordinator's position in its keystroke/search lifecycle.
type State int

const (
	// StateIdle means no timer is armed and no search is outstanding.
	StateIdle State = iota
	// StatePending means a delay timer is armed.
	StatePending
	// StateInFlight means a search has been issued and not yet resolved.
	StateInFlight
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// Callbacks carries the coordinator's collaborators. Search runs off the
// caller's goroutine; the On* callbacks are invoked without internal locks
// held and only for the latest issued generation.
type Callbacks[R any] struct {
	// Search performs the actual query. Required.
	Search func(ctx context.Context, query string) (R, error)
	// OnResult receives the resolution of the latest search.
	OnResult func(query string, result R)
	// OnError receives a failed latest search. The caller's visible state is
	// expected to keep its last-good results.
	OnError func(query string, err error)
	// OnClear is the synchronous "no results" signal for blank input.
	OnClear func()
}

// Coordinator debounces query input. Each issued search carries a
// monotonically increasing generation token; a resolution whose token is no
// longer the latest is dropped, so a cleared or retyped query can never be
// overwritten by a stale response.
type Coordinator[R any] struct {
	ctx   context.Context
	cb    Callbacks[R]
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	seq     uint64 // token of the latest issued search or clear
	state   State
	closed  bool
}

// New creates a coordinator. A non-positive delay falls back to DefaultDelay.
// The context bounds every search issued by the coordinator.
func New[R any](ctx context.Context, delay time.Duration, cb Callbacks[R]) *Coordinator[R] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Coordinator[R]{
		ctx:   ctx,
		cb:    cb,
		delay: delay,
		state: StateIdle,
	}
}

// Input feeds one query-text change into the coordinator.
//
// Blank or whitespace-only input bypasses the debounce entirely: any armed
// timer is stopped, any in-flight search is invalidated, and OnClear fires
// synchronously before Input returns. Non-blank input (re)arms the delay
// timer, resetting the debounce window.
func (c *Coordinator[R]) Input(query string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if strings.TrimSpace(query) == "" {
		c.stopTimerLocked()
		c.seq++ // invalidate any in-flight resolution
		c.state = StateIdle
		c.mu.Unlock()
		if c.cb.OnClear != nil {
			c.cb.OnClear()
		}
		return
	}

	c.pending = query
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.delay, c.fire)
	c.state = StatePending
	c.mu.Unlock()
}

// fire issues the pending search with a fresh generation token.
func (c *Coordinator[R]) fire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.seq++
	token := c.seq
	query := c.pending
	c.state = StateInFlight
	c.mu.Unlock()

	result, err := c.cb.Search(c.ctx, query)

	c.mu.Lock()
	latest := token == c.seq && !c.closed
	if latest && c.timer == nil {
		c.state = StateIdle
	}
	c.mu.Unlock()

	if !latest {
		// Superseded by a newer search or a clear; drop silently.
		return
	}

	if err != nil {
		if c.cb.OnError != nil {
			c.cb.OnError(query, err)
		}
		return
	}
	if c.cb.OnResult != nil {
		c.cb.OnResult(query, result)
	}
}

// State reports the current lifecycle state.
func (c *Coordinator[R]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops the timer and invalidates outstanding searches. Further Input
// calls are ignored.
func (c *Coordinator[R]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimerLocked()
	c.seq++
	c.state = StateIdle
}

func (c *Coordinator[R]) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
