package updater

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/snapshot"
)

// DefaultInterval is the minimum spacing between intermediate pushes.
const DefaultInterval = 1500 * time.Millisecond

// Producer re-renders the current snapshot when the coalescer decides to
// push. Returning nil skips the push.
type Producer func() *snapshot.Rendered

// Sink receives rendered states, e.g. a chat-surface message update.
type Sink func(*snapshot.Rendered) error

// Coalescer rate-limits snapshot pushes to a sink. Arbitrarily frequent
// Schedule calls collapse to at most one push per interval, always carrying
// the most recent state; Flush delivers whatever is still pending. One
// coalescer belongs to exactly one task.
type Coalescer struct {
	mu       sync.Mutex
	pushMu   sync.Mutex
	interval time.Duration
	sink     Sink
	pending  Producer
	timer    *time.Timer
	stopped  bool
	lastHash uint64
}

// New creates a coalescer pushing to sink. A non-positive interval falls
// back to DefaultInterval.
func New(interval time.Duration, sink Sink) *Coalescer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coalescer{
		interval: interval,
		sink:     sink,
	}
}

// Schedule requests a push of the state produced by produce. If the interval
// since the last push has elapsed, the push happens immediately; otherwise
// produce replaces any not-yet-fired pending producer and the interval timer
// delivers it.
func (c *Coalescer) Schedule(produce Producer) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		// Within the interval window: retain only the newest producer.
		c.pending = produce
		c.mu.Unlock()
		return
	}
	c.timer = time.AfterFunc(c.interval, c.fire)
	c.mu.Unlock()

	c.push(produce)
}

// fire runs when the interval elapses; it delivers the pending producer, if
// any, and re-arms the window when it did.
func (c *Coalescer) fire() {
	c.mu.Lock()
	produce := c.pending
	c.pending = nil
	if produce == nil || c.stopped {
		c.timer = nil
		c.mu.Unlock()
		return
	}
	c.timer = time.AfterFunc(c.interval, c.fire)
	c.mu.Unlock()

	c.push(produce)
}

// Flush synchronously delivers the pending push, if one exists. It returns
// only after any delivery already in flight has finished, so a caller may
// push directly to the sink afterwards without being overtaken.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	produce := c.pending
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.pushMu.Lock()
	defer c.pushMu.Unlock()
	if produce != nil {
		c.pushLocked(produce)
	}
}

// Stop drops any pending push and prevents further scheduling. Like Flush
// it drains an in-flight delivery before returning: once Stop has returned,
// the sink sees nothing more from this coalescer.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	// Taking pushMu waits for a delivery currently in the sink.
	c.pushMu.Lock()
	c.pushMu.Unlock() //nolint:staticcheck
}

func (c *Coalescer) push(produce Producer) {
	c.pushMu.Lock()
	defer c.pushMu.Unlock()
	c.pushLocked(produce)
}

// pushLocked renders and delivers one state; the caller holds pushMu.
// Byte-identical repeats of the previous payload are suppressed; the sink
// already observed that state.
func (c *Coalescer) pushLocked(produce Producer) {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return
	}

	rendered := produce()
	if rendered == nil {
		return
	}

	payload, err := json.Marshal(rendered)
	if err != nil {
		logger.Warn("Coalescer failed to marshal rendered state: %v", err)
		return
	}

	hash := xxhash.Sum64(payload)
	if hash == c.lastHash {
		return
	}

	if err := c.sink(rendered); err != nil {
		logger.Warn("Coalescer push failed: %v", err)
		return
	}
	c.lastHash = hash
}
