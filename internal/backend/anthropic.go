package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/codefionn/chatschnell/internal/stream"
)

const (
	defaultAnthropicModel     = "claude-3-5-sonnet-20241022"
	defaultAnthropicMaxTokens = 4096
)

// AnthropicRunner executes tasks against the Anthropic API directly, for
// deployments without an agent CLI. It streams text only; there are no tool
// invocations and no resumable session, so every task starts fresh.
type AnthropicRunner struct {
	client anthropic.Client
	model  string
}

// NewAnthropicRunner creates a runner backed by the official SDK.
func NewAnthropicRunner(apiKey, model string) (*AnthropicRunner, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, fmt.Errorf("anthropic backend requires an API key")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultAnthropicModel
	}

	return &AnthropicRunner{
		client: anthropic.NewClient(option.WithAPIKey(key)),
		model:  model,
	}, nil
}

// Run opens a streaming completion and translates deltas into events.
func (r *AnthropicRunner) Run(ctx context.Context, req Request) (<-chan stream.Event, error) {
	model := req.Model
	if model == "" {
		model = r.model
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(defaultAnthropicMaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}

	events := make(chan stream.Event, 64)
	go func() {
		defer close(events)
		start := time.Now()

		emit := func(ev stream.Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		sdkStream := r.client.Messages.NewStreaming(ctx, params)
		if sdkStream == nil {
			emit(stream.ResultEvent{IsError: true, Message: "anthropic stream failed: no stream returned"})
			return
		}
		defer sdkStream.Close()

		for sdkStream.Next() {
			event := sdkStream.Current()

			deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			textDelta, ok := deltaEvent.Delta.AsAny().(anthropic.TextDelta)
			if !ok {
				continue
			}
			if textDelta.Text == "" {
				continue
			}
			if !emit(stream.TextEvent{Delta: textDelta.Text}) {
				return
			}
		}

		if err := sdkStream.Err(); err != nil {
			emit(stream.ResultEvent{
				IsError:    true,
				Message:    fmt.Sprintf("anthropic stream failed: %v", err),
				DurationMs: time.Since(start).Milliseconds(),
			})
			return
		}

		emit(stream.ResultEvent{DurationMs: time.Since(start).Milliseconds()})
	}()

	return events, nil
}
