package session

import (
	"sync"
	"time"
)

// Session holds the per-conversation state that survives between tasks:
// the execution scope, the backend resumption token, and prompt/model
// overrides. Sessions are volatile; nothing is persisted across restarts.
type Session struct {
	ConversationID string
	WorkingDir     string
	ResumeToken    string
	SystemPrompt   string
	Model          string

	mu        sync.RWMutex
	UpdatedAt time.Time
}

// newSession creates a default session for a conversation.
func newSession(conversationID, workingDir string) *Session {
	return &Session{
		ConversationID: conversationID,
		WorkingDir:     workingDir,
		UpdatedAt:      time.Now(),
	}
}

// Touch updates the last-activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
}

// SetWorkingDir changes the execution scope. The resumption token is cleared:
// a new working context starts a fresh backend conversation.
func (s *Session) SetWorkingDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WorkingDir = dir
	s.ResumeToken = ""
	s.UpdatedAt = time.Now()
}

// SetResumeToken stores the token reported by the backend.
func (s *Session) SetResumeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResumeToken = token
	s.UpdatedAt = time.Now()
}

// GetResumeToken returns the stored resumption token, if any.
func (s *Session) GetResumeToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ResumeToken
}

// SetSystemPrompt stores the system-prompt override; empty clears it.
func (s *Session) SetSystemPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SystemPrompt = prompt
	s.UpdatedAt = time.Now()
}

// SetModel stores the model override; empty clears it.
func (s *Session) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = model
	s.UpdatedAt = time.Now()
}

// GetWorkingDir returns the current execution scope.
func (s *Session) GetWorkingDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.WorkingDir
}

// GetOverrides returns the system-prompt and model overrides.
func (s *Session) GetOverrides() (systemPrompt, model string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SystemPrompt, s.Model
}

// Reset clears the resumption token and overrides but keeps the working
// directory.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResumeToken = ""
	s.SystemPrompt = ""
	s.Model = ""
	s.UpdatedAt = time.Now()
}

// lastActivity returns the last-activity timestamp.
func (s *Session) lastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.UpdatedAt
}
