package orchestrator

import (
	"fmt"
	"strings"

	"github.com/codefionn/chatschnell/internal/session"
)

const helpText = `Commands:
/cwd <dir>     set the working directory (clears the resume token)
/reset         clear resume token and per-conversation overrides
/system <text> set a system prompt override for new tasks
/model <name>  set a model override for new tasks
/status        show the running task or session state
/stop          cancel the running task
/help          this text`

// handleCommand dispatches a slash command. Commands work whether or not a
// task is running; only /stop touches a running task.
func (o *Orchestrator) handleCommand(conversationID string, sess *session.Session, text string) (string, error) {
	cmd, arg := splitCommand(text)

	switch cmd {
	case "/cwd":
		if arg == "" {
			return fmt.Sprintf("Working directory: %s", sess.GetWorkingDir()), nil
		}
		sess.SetWorkingDir(arg)
		return fmt.Sprintf("Working directory set to %s. The next task starts a fresh backend session.", arg), nil

	case "/reset":
		sess.Reset()
		return "Session reset. Resume token and overrides cleared.", nil

	case "/system":
		sess.SetSystemPrompt(arg)
		if arg == "" {
			return "System prompt override cleared.", nil
		}
		return "System prompt override set.", nil

	case "/model":
		sess.SetModel(arg)
		if arg == "" {
			return "Model override cleared.", nil
		}
		return fmt.Sprintf("Model override set to %s.", arg), nil

	case "/status":
		return o.statusFor(conversationID, sess), nil

	case "/stop":
		if o.StopTask(conversationID) {
			return "Stopping the running task.", nil
		}
		return "No task is running.", nil

	case "/help":
		return helpText, nil

	default:
		return fmt.Sprintf("Unknown command %s. Send /help for the list.", cmd), nil
	}
}

func (o *Orchestrator) statusFor(conversationID string, sess *session.Session) string {
	o.mu.Lock()
	t := o.tasks[conversationID]
	o.mu.Unlock()

	if t != nil {
		if t.isAwaiting() {
			return "Waiting for your answer: continue past the turn limit? (yes/no)"
		}
		return statusLine(t)
	}

	var parts []string
	parts = append(parts, "No task running.")
	parts = append(parts, fmt.Sprintf("Working directory: %s", sess.GetWorkingDir()))
	if token := sess.GetResumeToken(); token != "" {
		parts = append(parts, "A backend session can be resumed.")
	}
	if sys, model := sess.GetOverrides(); sys != "" || model != "" {
		if model != "" {
			parts = append(parts, fmt.Sprintf("Model override: %s", model))
		}
		if sys != "" {
			parts = append(parts, "System prompt override active.")
		}
	}
	return strings.Join(parts, " ")
}

func splitCommand(text string) (cmd, arg string) {
	cmd, arg, _ = strings.Cut(text, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
