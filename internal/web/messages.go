package web

import (
	"time"

	"github.com/codefionn/chatschnell/internal/snapshot"
)

// Message types
const (
	// MessageTypeChat is an inbound user chat message.
	MessageTypeChat = "chat"
	// MessageTypeTask carries the rendered state of a task message. The
	// first occurrence of a MessageID creates the message on the surface;
	// later occurrences update it in place.
	MessageTypeTask = "task"
	// MessageTypeFile delivers a produced artifact.
	MessageTypeFile = "file"
	// MessageTypeSystem is an informational reply (command output).
	MessageTypeSystem = "system"
	// MessageTypeError is an error reply (busy, bad input).
	MessageTypeError = "error"
)

// WebMessage is one frame on the WebSocket connection, in both directions.
type WebMessage struct {
	Type      string             `json:"type"`
	Content   string             `json:"content,omitempty"`
	MessageID string             `json:"message_id,omitempty"`
	State     *snapshot.Rendered `json:"state,omitempty"`
	FileName  string             `json:"file_name,omitempty"`
	FileData  string             `json:"file_data,omitempty"` // base64
	Timestamp time.Time          `json:"timestamp,omitempty"`
}

// StatusInfo is the payload of the /api/status endpoint.
type StatusInfo struct {
	ActiveTasks int    `json:"active_tasks"`
	Sessions    int    `json:"sessions"`
	Clients     int    `json:"clients"`
	Backend     string `json:"backend"`
}
