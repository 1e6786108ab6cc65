package backend

import (
	"testing"

	"github.com/codefionn/chatschnell/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInitLine(t *testing.T) {
	line := `{"type":"system","subtype":"init","session_id":"sess-42","model":"claude-sonnet"}`
	events := parseLine([]byte(line))

	require.Len(t, events, 1)
	init, ok := events[0].(stream.InitEvent)
	require.True(t, ok)
	assert.Equal(t, "sess-42", init.SessionID)
	assert.Equal(t, "claude-sonnet", init.Model)
}

func TestParseAssistantTextAndToolUse(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[` +
		`{"type":"text","text":"Looking into it."},` +
		`{"type":"tool_use","id":"tu_1","name":"Bash","input":{"command":"ls -la"}}]}}`
	events := parseLine([]byte(line))

	require.Len(t, events, 2)
	text, ok := events[0].(stream.TextEvent)
	require.True(t, ok)
	assert.Equal(t, "Looking into it.", text.Delta)

	toolStart, ok := events[1].(stream.ToolStartEvent)
	require.True(t, ok)
	assert.Equal(t, "tu_1", toolStart.ID)
	assert.Equal(t, "Bash", toolStart.Name)
	assert.Equal(t, "ls -la", toolStart.Detail)
}

func TestParseToolResultString(t *testing.T) {
	line := `{"type":"user","message":{"content":[` +
		`{"type":"tool_result","tool_use_id":"tu_1","content":"file.txt"}]}}`
	events := parseLine([]byte(line))

	require.Len(t, events, 1)
	toolEnd, ok := events[0].(stream.ToolEndEvent)
	require.True(t, ok)
	assert.Equal(t, "tu_1", toolEnd.ID)
	assert.Equal(t, "file.txt", toolEnd.Output)
	assert.False(t, toolEnd.IsError)
}

func TestParseToolResultBlocks(t *testing.T) {
	line := `{"type":"user","message":{"content":[` +
		`{"type":"tool_result","tool_use_id":"tu_2","is_error":true,` +
		`"content":[{"type":"text","text":"command "},{"type":"text","text":"failed"}]}]}}`
	events := parseLine([]byte(line))

	require.Len(t, events, 1)
	toolEnd := events[0].(stream.ToolEndEvent)
	assert.Equal(t, "command failed", toolEnd.Output)
	assert.True(t, toolEnd.IsError)
}

func TestParseResultLine(t *testing.T) {
	line := `{"type":"result","subtype":"error_max_turns","is_error":true,` +
		`"result":"Reached max turns","total_cost_usd":0.0123,"duration_ms":4200}`
	events := parseLine([]byte(line))

	require.Len(t, events, 1)
	result := events[0].(stream.ResultEvent)
	assert.True(t, result.IsError)
	assert.True(t, result.IsTurnLimit())
	assert.Equal(t, 0.0123, result.CostUSD)
	assert.Equal(t, int64(4200), result.DurationMs)
}

func TestParseGarbageAndUnknownTypes(t *testing.T) {
	assert.Nil(t, parseLine(nil))
	assert.Nil(t, parseLine([]byte("not json at all")))
	assert.Nil(t, parseLine([]byte(`{"type":"stream_event","event":{}}`)))
	assert.Nil(t, parseLine([]byte(`{"type":"system","subtype":"hook"}`)))
}

func TestBuildArgs(t *testing.T) {
	r := NewCLIRunner("claude", []string{"--dangerously-skip-permissions"}, "claude-sonnet")

	args := r.buildArgs(Request{
		Prompt:       "do the thing",
		ResumeToken:  "sess-42",
		SystemPrompt: "be terse",
		Model:        "claude-opus",
	})

	joined := ""
	for _, a := range args {
		joined += a + " "
	}
	assert.Contains(t, joined, "--output-format stream-json")
	assert.Contains(t, joined, "--resume sess-42")
	assert.Contains(t, joined, "--model claude-opus")
	assert.Contains(t, joined, "--append-system-prompt be terse")
	assert.Contains(t, joined, "--dangerously-skip-permissions")
	assert.Equal(t, "do the thing", args[len(args)-1])
}

func TestBuildArgsDefaults(t *testing.T) {
	r := NewCLIRunner("claude", nil, "claude-sonnet")
	args := r.buildArgs(Request{Prompt: "hi"})

	joined := ""
	for _, a := range args {
		joined += a + " "
	}
	assert.Contains(t, joined, "--model claude-sonnet")
	assert.NotContains(t, joined, "--resume")
	assert.NotContains(t, joined, "--append-system-prompt")
}
