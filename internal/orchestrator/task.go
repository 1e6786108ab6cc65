package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codefionn/chatschnell/internal/backend"
	"github.com/codefionn/chatschnell/internal/config"
	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/session"
	"github.com/codefionn/chatschnell/internal/snapshot"
	"github.com/codefionn/chatschnell/internal/stream"
	"github.com/codefionn/chatschnell/internal/updater"
)

// finalPushTimeout bounds the terminal update and artifact delivery, which
// run on a fresh context so they survive task cancellation.
const finalPushTimeout = 15 * time.Second

const continuationQuestion = "Turn limit reached. Reply 'yes' to continue or 'no' to stop."

var errStreamEnded = errors.New("backend stream ended without a result")

// task is one running agent task bound to a conversation.
type task struct {
	conversationID string
	prompt         string
	cfg            *config.Config
	snap           *snapshot.Snapshot
	startedAt      time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	awaiting bool
	replyCh  chan bool
}

func newTask(conversationID, prompt string, ctx context.Context, cancel context.CancelFunc) *task {
	return &task{
		conversationID: conversationID,
		prompt:         prompt,
		snap:           snapshot.New(prompt),
		startedAt:      time.Now(),
		ctx:            ctx,
		cancel:         cancel,
		replyCh:        make(chan bool, 1),
	}
}

func (t *task) stop() {
	t.cancel()
}

func (t *task) isAwaiting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.awaiting
}

func (t *task) setAwaiting(v bool) {
	t.mu.Lock()
	t.awaiting = v
	t.mu.Unlock()
}

// resolve answers the continuation question. The buffered channel makes the
// send non-blocking; a second answer before the task wakes up is dropped.
func (t *task) resolve(yes bool) {
	select {
	case t.replyCh <- yes:
	default:
	}
}

// runTask drives one task to its terminal state: stream rounds, the
// turn-limit handshake, and exactly one terminal push at the end.
func (o *Orchestrator) runTask(t *task, sess *session.Session) {
	defer t.cancel()

	handle, err := o.messenger.CreateMessage(t.ctx, t.conversationID, t.snap.Render())
	if err != nil {
		logger.Error("Creating task message for %s failed: %v", t.conversationID, err)
		return
	}

	coal := updater.New(t.cfg.UpdateInterval(), func(r *snapshot.Rendered) error {
		return o.messenger.UpdateMessage(t.ctx, handle, r)
	})

	prompt := t.prompt
	for {
		res, err := o.streamRound(t, sess, coal, prompt)
		if err != nil {
			t.snap.Fail(failureMessage(t.ctx, err, t.cfg.TaskTimeout()))
			break
		}

		if !res.IsTurnLimit() {
			break
		}

		// The backend ran out of turns mid-task. Ask the user instead of
		// silently resuming; resumption loops forever otherwise.
		coal.Flush()
		question := t.snap.Render()
		question.Error = continuationQuestion
		if err := o.messenger.UpdateMessage(t.ctx, handle, question); err != nil {
			logger.Warn("Pushing continuation question for %s failed: %v", t.conversationID, err)
		}

		t.setAwaiting(true)
		goOn := false
		select {
		case goOn = <-t.replyCh:
		case <-t.ctx.Done():
		}
		t.setAwaiting(false)

		if !goOn {
			if t.ctx.Err() != nil {
				t.snap.Fail(failureMessage(t.ctx, t.ctx.Err(), t.cfg.TaskTimeout()))
			}
			break
		}

		t.snap.Reopen()
		prompt = t.cfg.ContinuationPrompt
	}

	// Terminal state goes out exactly once, directly. Pending coalesced
	// pushes are dropped, not flushed, so the surface never sees a stale
	// update after the terminal one.
	coal.Stop()

	pushCtx, pushCancel := context.WithTimeout(context.Background(), finalPushTimeout)
	defer pushCancel()

	final := t.snap.Render()
	if err := o.messenger.UpdateMessage(pushCtx, handle, final); err != nil {
		logger.Error("Terminal push for %s failed: %v", t.conversationID, err)
	}

	if t.snap.Status() == snapshot.StatusComplete {
		o.deliverArtifacts(pushCtx, t)
	}

	logger.Info("Task for %s finished with status %s", t.conversationID, t.snap.Status())
}

// streamRound runs one backend invocation and folds its events into the
// snapshot until the result event arrives.
func (o *Orchestrator) streamRound(t *task, sess *session.Session, coal *updater.Coalescer, prompt string) (*stream.ResultEvent, error) {
	systemPrompt, model := sess.GetOverrides()
	req := backend.Request{
		Prompt:       prompt,
		WorkingDir:   sess.GetWorkingDir(),
		ResumeToken:  sess.GetResumeToken(),
		SystemPrompt: systemPrompt,
		Model:        model,
	}

	events, err := o.runner.Run(t.ctx, req)
	if err != nil {
		return nil, fmt.Errorf("starting backend: %w", err)
	}

	for {
		select {
		case <-t.ctx.Done():
			return nil, t.ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil, errStreamEnded
			}

			if init, isInit := ev.(stream.InitEvent); isInit && init.SessionID != "" {
				sess.SetResumeToken(init.SessionID)
			}

			t.snap.Fold(ev)

			// The terminal state is pushed directly by runTask, never
			// through the coalescer.
			if res, isResult := ev.(stream.ResultEvent); isResult {
				return &res, nil
			}
			coal.Schedule(t.snap.Render)
		}
	}
}

func (o *Orchestrator) deliverArtifacts(ctx context.Context, t *task) {
	for _, path := range t.snap.Artifacts() {
		if err := o.messenger.SendFile(ctx, t.conversationID, path); err != nil {
			logger.Warn("Sending artifact %s for %s failed: %v", path, t.conversationID, err)
		}
	}
}

// failureMessage maps a round error to the text shown on the chat surface.
func failureMessage(ctx context.Context, err error, budget time.Duration) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("Task timed out after %s.", budget)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return "Task canceled."
	case errors.Is(err, errStreamEnded):
		return "The backend stream ended unexpectedly."
	default:
		return fmt.Sprintf("Task failed: %v", err)
	}
}
