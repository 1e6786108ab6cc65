// Package orchestrator owns the lifecycle of agent tasks. It admits at most
// one task per conversation, drives the backend event stream into a snapshot,
// schedules coalesced chat updates, and runs the turn-limit continuation
// handshake with the user.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codefionn/chatschnell/internal/backend"
	"github.com/codefionn/chatschnell/internal/chat"
	"github.com/codefionn/chatschnell/internal/config"
	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/session"
)

// sweepInterval is how often expired sessions are reaped in the background.
// Expiry is also checked lazily on access, so this only bounds memory.
const sweepInterval = 1 * time.Hour

// Orchestrator routes inbound chat messages and runs agent tasks.
type Orchestrator struct {
	cfg       *config.Config
	runner    backend.Runner
	messenger chat.Messenger
	sessions  *session.Store

	mu    sync.Mutex
	tasks map[string]*task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator. Shutdown must be called to release the
// background sweeper and any running tasks.
func New(cfg *config.Config, runner backend.Runner, messenger chat.Messenger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:       cfg,
		runner:    runner,
		messenger: messenger,
		sessions:  session.NewStore(cfg.WorkingDir, cfg.SessionTTL()),
		tasks:     make(map[string]*task),
		ctx:       ctx,
		cancel:    cancel,
	}

	o.wg.Add(1)
	go o.sweepLoop()

	return o
}

// UpdateConfig swaps in a reloaded config. Running tasks keep the config
// they started with; new tasks pick up the new tunables.
func (o *Orchestrator) UpdateConfig(cfg *config.Config) {
	o.mu.Lock()
	o.cfg = cfg
	o.mu.Unlock()
}

// Sessions exposes the session store, mainly for status reporting.
func (o *Orchestrator) Sessions() *session.Store {
	return o.sessions
}

// ActiveTasks returns the number of currently running tasks.
func (o *Orchestrator) ActiveTasks() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.tasks)
}

// HandleMessage processes one inbound chat message for a conversation and
// returns an immediate textual reply, or "" when a task was started and all
// further output flows through the Messenger.
func (o *Orchestrator) HandleMessage(ctx context.Context, conversationID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	sess := o.sessions.GetOrCreate(conversationID)
	sess.Touch()

	if strings.HasPrefix(text, "/") {
		return o.handleCommand(conversationID, sess, text)
	}

	// A conversation waiting on the continuation question consumes the
	// reply instead of starting a new task.
	if t := o.awaitingTask(conversationID); t != nil {
		return o.handleContinuationReply(t, text)
	}

	if err := o.StartTask(conversationID, sess, text); err != nil {
		return "", err
	}
	return "", nil
}

// StartTask admits and launches a task for the conversation. A conversation
// with a running task gets ErrBusy; the new prompt is rejected, not queued.
func (o *Orchestrator) StartTask(conversationID string, sess *session.Session, prompt string) error {
	o.mu.Lock()
	if _, running := o.tasks[conversationID]; running {
		o.mu.Unlock()
		return ErrBusy
	}

	cfg := o.cfg
	taskCtx, taskCancel := context.WithTimeout(o.ctx, cfg.TaskTimeout())
	t := newTask(conversationID, prompt, taskCtx, taskCancel)
	t.cfg = cfg
	o.tasks[conversationID] = t
	o.mu.Unlock()

	logger.Info("Starting task for conversation %s", conversationID)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.release(conversationID)
		o.runTask(t, sess)
	}()

	return nil
}

// StopTask cancels the running task of a conversation, if any.
func (o *Orchestrator) StopTask(conversationID string) bool {
	o.mu.Lock()
	t := o.tasks[conversationID]
	o.mu.Unlock()
	if t == nil {
		return false
	}

	logger.Info("Stopping task for conversation %s", conversationID)
	t.stop()
	return true
}

// Shutdown cancels all running tasks and waits for them to finish their
// terminal pushes.
func (o *Orchestrator) Shutdown() {
	o.cancel()

	o.mu.Lock()
	for _, t := range o.tasks {
		t.stop()
	}
	o.mu.Unlock()

	o.wg.Wait()
	logger.Info("Orchestrator shut down")
}

func (o *Orchestrator) release(conversationID string) {
	o.mu.Lock()
	delete(o.tasks, conversationID)
	o.mu.Unlock()
}

// awaitingTask returns the conversation's task if it is suspended on the
// continuation question.
func (o *Orchestrator) awaitingTask(conversationID string) *task {
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.tasks[conversationID]
	if t != nil && t.isAwaiting() {
		return t
	}
	return nil
}

// handleContinuationReply classifies the user's answer to the continuation
// question. Anything neither affirmative nor negative re-prompts.
func (o *Orchestrator) handleContinuationReply(t *task, text string) (string, error) {
	switch classifyReply(text) {
	case replyYes:
		t.resolve(true)
		return "", nil
	case replyNo:
		t.resolve(false)
		return "", nil
	default:
		return "The previous task hit its turn limit. Reply 'yes' to continue or 'no' to stop.", nil
	}
}

func (o *Orchestrator) sweepLoop() {
	defer o.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			if n := o.sessions.Sweep(); n > 0 {
				logger.Debug("Swept %d expired sessions", n)
			}
		}
	}
}

type replyClass int

const (
	replyUnclear replyClass = iota
	replyYes
	replyNo
)

var (
	affirmatives = []string{"yes", "y", "continue", "ok", "sure", "proceed"}
	negatives    = []string{"no", "n", "stop", "cancel", "abort"}
)

func classifyReply(text string) replyClass {
	word := strings.ToLower(strings.TrimRight(strings.TrimSpace(text), ".!"))
	for _, a := range affirmatives {
		if word == a {
			return replyYes
		}
	}
	for _, n := range negatives {
		if word == n {
			return replyNo
		}
	}
	return replyUnclear
}

// statusLine summarizes a running task for the /status command.
func statusLine(t *task) string {
	elapsed := time.Since(t.startedAt).Round(time.Second)
	snap := t.snap
	line := fmt.Sprintf("Task %s for %s, %d tool calls", snap.Status(), elapsed, snap.ToolCount())
	if cost := snap.CostUSD(); cost > 0 {
		line += fmt.Sprintf(", $%.4f so far", cost)
	}
	return line
}
