// Package backend adapts execution backends to the event stream consumed by
// the orchestrator. The backend is an opaque collaborator: it receives one
// prompt and emits an event stream ending in exactly one result event.
package backend

import (
	"context"
	"fmt"

	"github.com/codefionn/chatschnell/internal/config"
	"github.com/codefionn/chatschnell/internal/stream"
)

// Request describes one task attempt handed to the backend.
type Request struct {
	Prompt       string
	WorkingDir   string
	ResumeToken  string
	SystemPrompt string
	Model        string
}

// Runner opens an execution stream for a request. The returned channel is
// closed after the terminal result event, on context cancellation, or when
// the backend dies; the caller must drain it.
type Runner interface {
	Run(ctx context.Context, req Request) (<-chan stream.Event, error)
}

// New builds the runner selected by the config.
func New(cfg config.BackendConfig) (Runner, error) {
	switch cfg.Type {
	case config.BackendCLI:
		return NewCLIRunner(cfg.Command, cfg.Args, cfg.Model), nil
	case config.BackendAnthropic:
		return NewAnthropicRunner(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
}
