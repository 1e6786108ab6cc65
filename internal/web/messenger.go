package web

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codefionn/chatschnell/internal/chat"
	"github.com/codefionn/chatschnell/internal/snapshot"
)

// maxFileBytes caps artifact delivery over the WebSocket.
const maxFileBytes = 20 << 20

// Messenger delivers task messages over the WebSocket hub. It implements
// chat.Messenger; a handle encodes the conversation and the message id so an
// update can be routed without extra state.
type Messenger struct {
	hub *Hub
	seq atomic.Uint64
}

// NewMessenger creates a hub-backed messenger.
func NewMessenger(hub *Hub) *Messenger {
	return &Messenger{hub: hub}
}

// CreateMessage sends the initial task frame and returns its handle.
func (m *Messenger) CreateMessage(ctx context.Context, conversationID string, state *snapshot.Rendered) (chat.Handle, error) {
	messageID := fmt.Sprintf("m%d", m.seq.Add(1))
	if !m.send(conversationID, messageID, state) {
		return "", fmt.Errorf("conversation %s has no connected client", conversationID)
	}
	return chat.Handle(conversationID + "/" + messageID), nil
}

// UpdateMessage re-sends the task frame with the same message id; the
// surface replaces the message in place.
func (m *Messenger) UpdateMessage(ctx context.Context, handle chat.Handle, state *snapshot.Rendered) error {
	conversationID, messageID, err := splitHandle(handle)
	if err != nil {
		return err
	}
	if !m.send(conversationID, messageID, state) {
		return fmt.Errorf("conversation %s has no connected client", conversationID)
	}
	return nil
}

// SendFile delivers a produced artifact as a base64 frame. Missing or
// oversized files are reported as errors, not sent truncated.
func (m *Messenger) SendFile(ctx context.Context, conversationID, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("artifact %s: %w", path, err)
	}
	if info.Size() > maxFileBytes {
		return fmt.Errorf("artifact %s is %d bytes, limit is %d", path, info.Size(), maxFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("artifact %s: %w", path, err)
	}

	msg := &WebMessage{
		Type:      MessageTypeFile,
		FileName:  filepath.Base(path),
		FileData:  base64.StdEncoding.EncodeToString(data),
		Timestamp: time.Now(),
	}
	if !m.hub.SendTo(conversationID, msg) {
		return fmt.Errorf("conversation %s has no connected client", conversationID)
	}
	return nil
}

func (m *Messenger) send(conversationID, messageID string, state *snapshot.Rendered) bool {
	return m.hub.SendTo(conversationID, &WebMessage{
		Type:      MessageTypeTask,
		MessageID: messageID,
		State:     state,
		Timestamp: time.Now(),
	})
}

func splitHandle(handle chat.Handle) (conversationID, messageID string, err error) {
	conversationID, messageID, ok := strings.Cut(string(handle), "/")
	if !ok || conversationID == "" || messageID == "" {
		return "", "", fmt.Errorf("malformed message handle %q", handle)
	}
	return conversationID, messageID, nil
}
