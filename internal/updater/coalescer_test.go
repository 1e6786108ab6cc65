package updater

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/codefionn/chatschnell/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	states []*snapshot.Rendered
}

func (rs *recordingSink) push(r *snapshot.Rendered) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.states = append(rs.states, r)
	return nil
}

func (rs *recordingSink) count() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.states)
}

func (rs *recordingSink) last() *snapshot.Rendered {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.states) == 0 {
		return nil
	}
	return rs.states[len(rs.states)-1]
}

func produced(text string) Producer {
	return func() *snapshot.Rendered {
		return &snapshot.Rendered{Status: "running", Text: text}
	}
}

func TestBurstCoalescesToAtMostTwoPushes(t *testing.T) {
	sink := &recordingSink{}
	c := New(50*time.Millisecond, sink.push)
	defer c.Stop()

	for i := 0; i < 25; i++ {
		c.Schedule(produced(fmt.Sprintf("update %d", i)))
	}

	// One immediate push plus at most one coalesced push when the timer fires.
	time.Sleep(120 * time.Millisecond)
	require.LessOrEqual(t, sink.count(), 2)
	require.GreaterOrEqual(t, sink.count(), 1)
	assert.Equal(t, "update 0", sink.states[0].Text)
	assert.Equal(t, "update 24", sink.last().Text)
}

func TestFlushDeliversMostRecentState(t *testing.T) {
	sink := &recordingSink{}
	c := New(time.Hour, sink.push)
	defer c.Stop()

	c.Schedule(produced("first"))
	c.Schedule(produced("second"))
	c.Schedule(produced("final"))
	c.Flush()

	require.Equal(t, 2, sink.count())
	assert.Equal(t, "first", sink.states[0].Text)
	assert.Equal(t, "final", sink.last().Text)
}

func TestFlushWithNothingPendingIsNoop(t *testing.T) {
	sink := &recordingSink{}
	c := New(time.Hour, sink.push)
	defer c.Stop()

	c.Schedule(produced("only"))
	c.Flush()
	c.Flush()

	assert.Equal(t, 1, sink.count())
}

func TestIdenticalPayloadSuppressed(t *testing.T) {
	sink := &recordingSink{}
	c := New(10*time.Millisecond, sink.push)
	defer c.Stop()

	c.Schedule(produced("same"))
	time.Sleep(30 * time.Millisecond)
	c.Schedule(produced("same"))
	c.Flush()

	assert.Equal(t, 1, sink.count())
}

func TestStopPreventsFurtherPushes(t *testing.T) {
	sink := &recordingSink{}
	c := New(time.Hour, sink.push)

	c.Schedule(produced("before"))
	c.Stop()
	c.Schedule(produced("after"))
	c.Flush()

	require.Equal(t, 1, sink.count())
	assert.Equal(t, "before", sink.states[0].Text)
}

func TestStopDrainsInFlightDelivery(t *testing.T) {
	var mu sync.Mutex
	var order []string
	gate := make(chan struct{})
	calls := 0

	sink := func(r *snapshot.Rendered) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 2 {
			// Stall the timer-fired delivery mid-sink.
			<-gate
		}
		mu.Lock()
		order = append(order, r.Text)
		mu.Unlock()
		return nil
	}

	c := New(30*time.Millisecond, sink)
	c.Schedule(produced("first"))
	c.Schedule(produced("stale"))

	// Let the timer fire so the stale delivery is blocked inside the sink.
	time.Sleep(80 * time.Millisecond)

	stopReturned := make(chan struct{})
	go func() {
		c.Stop()
		close(stopReturned)
	}()

	select {
	case <-stopReturned:
		t.Fatal("Stop returned while a delivery was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	select {
	case <-stopReturned:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned after the sink unblocked")
	}

	// A terminal push issued after Stop is strictly ordered after the
	// drained delivery; the surface never sees stale state last.
	mu.Lock()
	order = append(order, "terminal")
	got := append([]string(nil), order...)
	mu.Unlock()

	require.Equal(t, []string{"first", "stale", "terminal"}, got)
}

func TestNilRenderSkipsPush(t *testing.T) {
	sink := &recordingSink{}
	c := New(time.Hour, sink.push)
	defer c.Stop()

	c.Schedule(func() *snapshot.Rendered { return nil })
	assert.Equal(t, 0, sink.count())
}
