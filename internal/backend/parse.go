package backend

import (
	"encoding/json"
	"fmt"

	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/stream"
)

// wireMessage is the envelope of one stream-json line from the agent CLI.
type wireMessage struct {
	Type      string     `json:"type"`
	Subtype   string     `json:"subtype"`
	SessionID string     `json:"session_id"`
	Model     string     `json:"model"`
	Message   *wireInner `json:"message"`
	Result    string     `json:"result"`
	IsError   bool       `json:"is_error"`
	CostUSD   float64    `json:"total_cost_usd"`
	Duration  int64      `json:"duration_ms"`
}

type wireInner struct {
	Content []wireBlock `json:"content"`
}

type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     map[string]any  `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   *bool           `json:"is_error"`
}

// parseLine translates one JSON line into zero or more events. Unparseable
// or unknown lines yield nothing; the stream must survive anything a newer
// backend emits.
func parseLine(line []byte) []stream.Event {
	if len(line) == 0 {
		return nil
	}

	var msg wireMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		logger.Debug("Skipping unparseable backend line: %v", err)
		return nil
	}

	switch msg.Type {
	case "system":
		if msg.Subtype == "init" {
			return []stream.Event{stream.InitEvent{SessionID: msg.SessionID, Model: msg.Model}}
		}

	case "assistant":
		if msg.Message == nil {
			return nil
		}
		var events []stream.Event
		for _, block := range msg.Message.Content {
			switch block.Type {
			case "text":
				if block.Text != "" {
					events = append(events, stream.TextEvent{Delta: block.Text})
				}
			case "tool_use":
				events = append(events, stream.ToolStartEvent{
					ID:     block.ID,
					Name:   block.Name,
					Detail: toolDetail(block.Name, block.Input),
				})
			}
		}
		return events

	case "user":
		if msg.Message == nil {
			return nil
		}
		var events []stream.Event
		for _, block := range msg.Message.Content {
			if block.Type != "tool_result" {
				continue
			}
			isError := block.IsError != nil && *block.IsError
			events = append(events, stream.ToolEndEvent{
				ID:      block.ToolUseID,
				Output:  rawToText(block.Content),
				IsError: isError,
			})
		}
		return events

	case "result":
		return []stream.Event{stream.ResultEvent{
			IsError:    msg.IsError,
			Subtype:    msg.Subtype,
			Message:    msg.Result,
			CostUSD:    msg.CostUSD,
			DurationMs: msg.Duration,
		}}
	}

	return nil
}

// detailKeys are the input fields worth surfacing, in preference order.
var detailKeys = []string{"command", "file_path", "path", "pattern", "url", "query", "description", "prompt"}

// toolDetail picks a short human-readable descriptor from a tool's input.
func toolDetail(name string, input map[string]any) string {
	for _, key := range detailKeys {
		if v, ok := input[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// rawToText flattens a tool_result content payload to plain text. The CLI
// sends either a string or a list of typed content items.
func rawToText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var items []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		out := ""
		for _, item := range items {
			if item.Type == "text" {
				out += item.Text
			}
		}
		return out
	}

	return fmt.Sprintf("%s", raw)
}
