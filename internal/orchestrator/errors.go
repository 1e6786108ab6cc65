package orchestrator

import "errors"

// ErrBusy means the conversation already has a running task. Prompts are
// rejected, never queued.
var ErrBusy = errors.New("a task is already running for this conversation; send /stop to cancel it")
