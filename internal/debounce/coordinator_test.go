package debounce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDelay = 20 * time.Millisecond

// settle is long enough for any armed timer to have fired and resolved.
const settle = 10 * testDelay

func TestCoordinator_CoalescesRapidInput(t *testing.T) {
	var calls atomic.Int64
	var mu sync.Mutex
	var queries []string
	done := make(chan struct{}, 8)

	c := New(context.Background(), testDelay, Callbacks[int]{
		Search: func(_ context.Context, query string) (int, error) {
			calls.Add(1)
			mu.Lock()
			queries = append(queries, query)
			mu.Unlock()
			return len(query), nil
		},
		OnResult: func(_ string, _ int) { done <- struct{}{} },
	})
	defer c.Close()

	// Four keystrokes well inside one debounce window.
	c.Input("t")
	c.Input("te")
	c.Input("tes")
	c.Input("test")

	select {
	case <-done:
	case <-time.After(settle):
		t.Fatal("debounced search never resolved")
	}
	time.Sleep(settle) // catch any spurious extra fire

	assert.Equal(t, int64(1), calls.Load(), "rapid input must coalesce into one search")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"test"}, queries, "only the final query text is searched")
}

func TestCoordinator_BlankInputClearsSynchronously(t *testing.T) {
	var calls atomic.Int64
	var cleared atomic.Int64

	c := New(context.Background(), testDelay, Callbacks[int]{
		Search: func(_ context.Context, _ string) (int, error) {
			calls.Add(1)
			return 0, nil
		},
		OnClear: func() { cleared.Add(1) },
	})
	defer c.Close()

	c.Input("query")
	c.Input("   ") // whitespace-only counts as blank

	// OnClear fired before Input returned; no waiting required.
	assert.Equal(t, int64(1), cleared.Load())
	assert.Equal(t, StateIdle, c.State())

	time.Sleep(settle)
	assert.Zero(t, calls.Load(), "cancelled timer must never issue a search")
}

func TestCoordinator_ClearDiscardsInFlightResolution(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var results atomic.Int64

	c := New(context.Background(), testDelay, Callbacks[int]{
		Search: func(_ context.Context, _ string) (int, error) {
			close(started)
			<-release
			return 42, nil
		},
		OnResult: func(_ string, _ int) { results.Add(1) },
		OnClear:  func() {},
	})
	defer c.Close()

	c.Input("slow")
	select {
	case <-started:
	case <-time.After(settle):
		t.Fatal("search was never issued")
	}

	// Clear while the search is in flight, then let it resolve.
	c.Input("")
	close(release)
	time.Sleep(settle)

	assert.Zero(t, results.Load(), "stale resolution must be dropped after clear")
}

func TestCoordinator_NewerInputSupersedesInFlight(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var delivered []string
	done := make(chan struct{})

	c := New(context.Background(), testDelay, Callbacks[string]{
		Search: func(_ context.Context, query string) (string, error) {
			if query == "first" {
				<-release
			}
			return query, nil
		},
		OnResult: func(_ string, result string) {
			mu.Lock()
			delivered = append(delivered, result)
			mu.Unlock()
			if result == "second" {
				close(done)
			}
		},
	})
	defer c.Close()

	c.Input("first")
	time.Sleep(2 * testDelay) // let "first" fire and block

	c.Input("second")
	select {
	case <-done:
	case <-time.After(settle):
		t.Fatal("second search never resolved")
	}
	close(release) // now let the stale "first" resolve
	time.Sleep(settle)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, delivered)
	assert.Equal(t, []string{"second"}, delivered, "superseded resolution must not be delivered")
}

func TestCoordinator_SearchErrorReachesOnError(t *testing.T) {
	errBoom := errors.New("index unavailable")
	got := make(chan error, 1)

	c := New(context.Background(), testDelay, Callbacks[int]{
		Search: func(_ context.Context, _ string) (int, error) {
			return 0, errBoom
		},
		OnError: func(_ string, err error) { got <- err },
	})
	defer c.Close()

	c.Input("anything")

	select {
	case err := <-got:
		assert.ErrorIs(t, err, errBoom)
	case <-time.After(settle):
		t.Fatal("error was never delivered")
	}
	assert.Equal(t, StateIdle, c.State())
}

func TestCoordinator_CloseIgnoresFurtherInput(t *testing.T) {
	var calls atomic.Int64

	c := New(context.Background(), testDelay, Callbacks[int]{
		Search: func(_ context.Context, _ string) (int, error) {
			calls.Add(1)
			return 0, nil
		},
	})

	c.Input("pending")
	c.Close()
	c.Input("after close")

	time.Sleep(settle)
	assert.Zero(t, calls.Load())
}
