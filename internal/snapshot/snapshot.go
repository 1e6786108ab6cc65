package snapshot

import (
	"strings"
	"sync"
	"time"

	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/stream"
)

// Status describes the task state rendered to the chat surface.
type Status int

const (
	// StatusThinking means the task started but no output has arrived yet.
	StatusThinking Status = iota
	// StatusRunning means the backend is streaming output.
	StatusRunning
	// StatusComplete is terminal: the task finished successfully.
	StatusComplete
	// StatusError is terminal: the task failed or was cancelled.
	StatusError
)

// String returns a human-readable status label.
func (s Status) String() string {
	switch s {
	case StatusThinking:
		return "thinking"
	case StatusRunning:
		return "running"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status can no longer change for this attempt.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// ToolStatus describes the lifecycle of one tool invocation.
type ToolStatus int

const (
	// ToolRunning means the invocation started and has not reported back.
	ToolRunning ToolStatus = iota
	// ToolDone means the invocation finished.
	ToolDone
)

// ToolCall is one entry in the snapshot's tool invocation list.
type ToolCall struct {
	ID      string
	Name    string
	Detail  string
	Status  ToolStatus
	IsError bool
}

// Snapshot is the single mutable display state folded from backend events.
// One instance lives for the whole task, including across continuation
// rounds; the aggregator mutates it in place.
type Snapshot struct {
	mu sync.RWMutex

	status    Status
	prompt    string
	response  strings.Builder
	tools     []ToolCall
	costUSD   float64
	duration  time.Duration
	errText   string
	sessionID string
	artifacts map[string]bool
}

// New creates a snapshot for a task started with the given prompt.
func New(prompt string) *Snapshot {
	return &Snapshot{
		status:    StatusThinking,
		prompt:    prompt,
		artifacts: make(map[string]bool),
	}
}

// Status returns the current status.
func (s *Snapshot) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SessionID returns the resumption token reported by the backend, if any.
func (s *Snapshot) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// ResponseLen returns the length of the accumulated response text.
func (s *Snapshot) ResponseLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.response.Len()
}

// CostUSD returns the accumulated cost.
func (s *Snapshot) CostUSD() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.costUSD
}

// ToolCount returns the total number of tool invocations recorded, including
// those outside the rendering window.
func (s *Snapshot) ToolCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tools)
}

// ErrorText returns the terminal error message, if any.
func (s *Snapshot) ErrorText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errText
}

// Artifacts returns the deduplicated output paths discovered so far.
func (s *Snapshot) Artifacts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.artifacts))
	for p := range s.artifacts {
		paths = append(paths, p)
	}
	return paths
}

// Reopen returns a terminal snapshot to the running state for a continuation
// round. Response text and tool history are preserved.
func (s *Snapshot) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusRunning
	s.errText = ""
}

// Fail marks the snapshot as terminally failed with the given message. Used
// by the orchestrator for errors that do not arrive as stream events
// (timeouts, aborted streams).
func (s *Snapshot) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = StatusError
	s.errText = msg
}

// Fold applies one backend event to the snapshot. Events of unknown kind are
// ignored. Fold never fails; a malformed event is a no-op.
func (s *Snapshot) Fold(ev stream.Event) {
	if ev == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() && ev.StreamKind() != stream.KindInit {
		// Terminal for this attempt; only a Reopen may restart the fold.
		return
	}

	switch e := ev.(type) {
	case stream.InitEvent:
		s.sessionID = e.SessionID

	case stream.TextEvent:
		s.response.WriteString(e.Delta)
		s.scanArtifactsLocked(e.Delta)
		if s.status == StatusThinking {
			s.status = StatusRunning
		}

	case stream.ToolStartEvent:
		s.tools = append(s.tools, ToolCall{
			ID:     e.ID,
			Name:   e.Name,
			Detail: e.Detail,
			Status: ToolRunning,
		})
		if s.status == StatusThinking {
			s.status = StatusRunning
		}

	case stream.ToolEndEvent:
		s.completeToolLocked(e)
		s.scanArtifactsLocked(e.Output)

	case stream.ResultEvent:
		s.costUSD += e.CostUSD
		s.duration += time.Duration(e.DurationMs) * time.Millisecond
		if e.IsError {
			s.status = StatusError
			s.errText = e.Message
		} else {
			s.status = StatusComplete
		}

	default:
		logger.Debug("Snapshot ignoring unknown event kind %d", ev.StreamKind())
	}
}

// completeToolLocked marks the matching tool entry done. A ToolEnd without a
// matching start (backend skipped the start event) appends a done entry.
func (s *Snapshot) completeToolLocked(e stream.ToolEndEvent) {
	for i := len(s.tools) - 1; i >= 0; i-- {
		if s.tools[i].ID == e.ID {
			s.tools[i].Status = ToolDone
			s.tools[i].IsError = e.IsError
			if e.Detail != "" {
				s.tools[i].Detail = e.Detail
			}
			return
		}
	}

	s.tools = append(s.tools, ToolCall{
		ID:      e.ID,
		Name:    e.Name,
		Detail:  e.Detail,
		Status:  ToolDone,
		IsError: e.IsError,
	})
}
