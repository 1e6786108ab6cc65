package stream

import "strings"

// Kind identifies the event category emitted by an execution backend.
type Kind int

const (
	// KindUnknown is the zero value. Unknown events are skipped by the
	// aggregator (forward compatibility with newer backends).
	KindUnknown Kind = iota
	// KindInit fires once when the backend reports its session identity.
	KindInit
	// KindText fires for streaming assistant text deltas.
	KindText
	// KindToolStart fires when a tool invocation begins.
	KindToolStart
	// KindToolEnd fires when a tool invocation finishes.
	KindToolEnd
	// KindResult fires exactly once as the terminal event of a stream.
	KindResult
)

// Event is the common interface for all backend events.
type Event interface {
	StreamKind() Kind
}

// InitEvent carries the opaque resumption token for the backend conversation.
type InitEvent struct {
	SessionID string
	Model     string
}

// StreamKind returns KindInit.
func (e InitEvent) StreamKind() Kind { return KindInit }

// TextEvent carries a streaming assistant text delta.
type TextEvent struct {
	Delta string
}

// StreamKind returns KindText.
func (e TextEvent) StreamKind() Kind { return KindText }

// ToolStartEvent fires when a tool invocation begins.
type ToolStartEvent struct {
	ID     string
	Name   string
	Detail string
}

// StreamKind returns KindToolStart.
func (e ToolStartEvent) StreamKind() Kind { return KindToolStart }

// ToolEndEvent fires when a tool invocation finishes.
type ToolEndEvent struct {
	ID      string
	Name    string
	Detail  string
	Output  string
	IsError bool
}

// StreamKind returns KindToolEnd.
func (e ToolEndEvent) StreamKind() Kind { return KindToolEnd }

// ResultEvent is the terminal event of an execution stream.
type ResultEvent struct {
	IsError    bool
	Subtype    string
	Message    string
	CostUSD    float64
	DurationMs int64
}

// StreamKind returns KindResult.
func (e ResultEvent) StreamKind() Kind { return KindResult }

// turn-limit markers observed across backend versions
var turnLimitMarkers = []string{"error_max_turns", "max_turns"}

// IsTurnLimit reports whether the result indicates the backend stopped
// because it reached its internal turn budget. Such a result is recoverable
// by resuming the same session with a continuation prompt.
func (e ResultEvent) IsTurnLimit() bool {
	if !e.IsError {
		return false
	}
	for _, marker := range turnLimitMarkers {
		if strings.Contains(e.Subtype, marker) || strings.Contains(e.Message, marker) {
			return true
		}
	}
	return false
}
