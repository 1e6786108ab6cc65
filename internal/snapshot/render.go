package snapshot

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/muesli/reflow/truncate"
)

const (
	// MaxRenderedChars caps the presentation form of the response text.
	// Content past the cap is shown as head + elisionMarker + tail.
	MaxRenderedChars = 50000

	// toolWindow is how many recent tool invocations are rendered; earlier
	// entries collapse into a single summary line.
	toolWindow = 20

	// toolDetailWidth bounds the rendered width of one tool detail line.
	toolDetailWidth = 120

	elisionMarker = "\n[...output elided...]\n"
)

// RenderedTool is one rendered row of the tool list.
type RenderedTool struct {
	Name    string `json:"name"`
	Detail  string `json:"detail,omitempty"`
	Done    bool   `json:"done"`
	IsError bool   `json:"is_error,omitempty"`
}

// Rendered is the renderable form of a snapshot, handed to the chat surface.
type Rendered struct {
	Status      string         `json:"status"`
	Prompt      string         `json:"prompt"`
	Text        string         `json:"text"`
	Tools       []RenderedTool `json:"tools,omitempty"`
	HiddenTools int            `json:"hidden_tools,omitempty"`
	CostUSD     float64        `json:"cost_usd,omitempty"`
	Duration    string         `json:"duration,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Render produces the current renderable state. The underlying snapshot is
// not consumed; Render may be called any number of times.
func (s *Snapshot) Render() *Rendered {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := &Rendered{
		Status:  s.status.String(),
		Prompt:  s.prompt,
		Text:    truncateMiddle(s.response.String(), MaxRenderedChars),
		CostUSD: s.costUSD,
		Error:   s.errText,
	}

	if s.duration > 0 {
		r.Duration = formatDuration(s.duration)
	}

	visible := s.tools
	if len(visible) > toolWindow {
		r.HiddenTools = len(visible) - toolWindow
		visible = visible[len(visible)-toolWindow:]
	}
	for _, tc := range visible {
		r.Tools = append(r.Tools, RenderedTool{
			Name:    tc.Name,
			Detail:  truncate.StringWithTail(tc.Detail, toolDetailWidth, "…"),
			Done:    tc.Status == ToolDone,
			IsError: tc.IsError,
		})
	}

	return r
}

// ToolSummary returns the summary line for hidden entries, or "" when the
// whole list is visible.
func (r *Rendered) ToolSummary() string {
	if r.HiddenTools == 0 {
		return ""
	}
	return fmt.Sprintf("(%d earlier tool calls hidden)", r.HiddenTools)
}

// truncateMiddle keeps the head and tail of text, eliding the middle once it
// exceeds max characters. Both the original start and end survive. The cut
// points back off to rune boundaries so the result stays valid UTF-8.
func truncateMiddle(text string, max int) string {
	if len(text) <= max {
		return text
	}

	head := max / 2
	for head > 0 && !utf8.RuneStart(text[head]) {
		head--
	}

	tailStart := len(text) - (max - max/2)
	for tailStart < len(text) && !utf8.RuneStart(text[tailStart]) {
		tailStart++
	}

	return text[:head] + elisionMarker + text[tailStart:]
}

// formatDuration renders a duration the way it is shown in chat: seconds with
// one decimal below a minute, otherwise minutes and seconds.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
