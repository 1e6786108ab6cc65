package backend

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"

	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/stream"
)

// scanner buffer large enough for big single-line tool outputs
const maxLineBytes = 4 * 1024 * 1024

// CLIRunner spawns an agent CLI per task and translates its stream-json
// output lines into events.
type CLIRunner struct {
	command      string
	extraArgs    []string
	defaultModel string
}

// NewCLIRunner creates a runner for the given agent CLI executable.
func NewCLIRunner(command string, extraArgs []string, defaultModel string) *CLIRunner {
	return &CLIRunner{
		command:      command,
		extraArgs:    extraArgs,
		defaultModel: defaultModel,
	}
}

// buildArgs assembles the CLI invocation for one request.
func (r *CLIRunner) buildArgs(req Request) []string {
	args := append([]string{}, r.extraArgs...)
	args = append(args, "--print", "--verbose", "--output-format", "stream-json")

	model := req.Model
	if model == "" {
		model = r.defaultModel
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	if req.ResumeToken != "" {
		args = append(args, "--resume", req.ResumeToken)
	}
	if req.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", req.SystemPrompt)
	}

	return append(args, req.Prompt)
}

// Run spawns the CLI and streams translated events until the process exits
// or ctx is cancelled.
func (r *CLIRunner) Run(ctx context.Context, req Request) (<-chan stream.Event, error) {
	cmd := exec.CommandContext(ctx, r.command, r.buildArgs(req)...)
	cmd.Dir = req.WorkingDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open backend stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start backend %q: %w", r.command, err)
	}
	logger.Debug("Backend CLI started: %s (pid %d)", r.command, cmd.Process.Pid)

	events := make(chan stream.Event, 64)
	go func() {
		defer close(events)

		sawResult := false
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			for _, ev := range parseLine(scanner.Bytes()) {
				if _, ok := ev.(stream.ResultEvent); ok {
					sawResult = true
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					_ = cmd.Wait()
					return
				}
			}
			if sawResult {
				break
			}
		}

		waitErr := cmd.Wait()

		// A stream that dies without a result still terminates: synthesize
		// an error result so the fold always reaches a terminal state.
		if !sawResult {
			msg := "backend exited without a result"
			if waitErr != nil {
				msg = fmt.Sprintf("backend failed: %v", waitErr)
			} else if err := scanner.Err(); err != nil {
				msg = fmt.Sprintf("backend stream read failed: %v", err)
			}
			select {
			case events <- stream.ResultEvent{IsError: true, Message: msg}:
			case <-ctx.Done():
			}
		}
	}()

	return events, nil
}
