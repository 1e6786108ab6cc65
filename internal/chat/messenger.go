// Package chat defines the boundary to the chat-surface collaborator. The
// orchestrator only ever talks to a Messenger; the concrete transport lives
// in internal/web.
package chat

import (
	"context"

	"github.com/codefionn/chatschnell/internal/snapshot"
)

// Handle identifies a message previously created on the chat surface so it
// can be updated in place.
type Handle string

// Messenger is implemented by the chat surface. UpdateMessage is idempotent
// and may be called many times with successive states of the same task.
type Messenger interface {
	CreateMessage(ctx context.Context, conversationID string, state *snapshot.Rendered) (Handle, error)
	UpdateMessage(ctx context.Context, handle Handle, state *snapshot.Rendered) error
	SendFile(ctx context.Context, conversationID, path string) error
}
