package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BackendType selects the execution backend implementation.
const (
	BackendCLI       = "cli"
	BackendAnthropic = "anthropic"
)

// BackendConfig describes how to reach the execution backend.
type BackendConfig struct {
	// Type is "cli" (spawn an agent CLI per task) or "anthropic" (direct API).
	Type string `json:"type"`
	// Command is the agent CLI executable for the cli backend.
	Command string `json:"command,omitempty"`
	// Args are extra arguments passed to the CLI before the per-task flags.
	Args []string `json:"args,omitempty"`
	// Model is the default model; sessions may override it.
	Model string `json:"model,omitempty"`
	// APIKey authenticates the anthropic backend.
	APIKey string `json:"api_key,omitempty"`
}

// Config holds the gateway configuration, stored as JSON on disk.
type Config struct {
	ListenAddr string        `json:"listen_addr"`
	WorkingDir string        `json:"working_dir"`
	LogPath    string        `json:"log_path,omitempty"`
	LogLevel   string        `json:"log_level,omitempty"`
	Backend    BackendConfig `json:"backend"`

	// TaskTimeoutMinutes caps one task attempt including continuation rounds.
	TaskTimeoutMinutes int `json:"task_timeout_minutes,omitempty"`
	// UpdateIntervalMs is the minimum spacing between chat-surface updates.
	UpdateIntervalMs int `json:"update_interval_ms,omitempty"`
	// SessionTTLHours is the inactivity window before a session expires.
	SessionTTLHours int `json:"session_ttl_hours,omitempty"`
	// ContinuationPrompt is sent to the backend when the user accepts a
	// turn-limit continuation.
	ContinuationPrompt string `json:"continuation_prompt,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &Config{
		ListenAddr: "localhost:8937",
		WorkingDir: wd,
		LogLevel:   "info",
		Backend: BackendConfig{
			Type:    BackendCLI,
			Command: "claude",
		},
		TaskTimeoutMinutes: 30,
		UpdateIntervalMs:   1500,
		SessionTTLHours:    24,
		ContinuationPrompt: "Continue where you left off.",
	}
}

// Load reads the config from path, filling unset fields with defaults. A
// missing file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults backfills zero values that must always be usable.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.WorkingDir == "" {
		c.WorkingDir = d.WorkingDir
	}
	if c.Backend.Type == "" {
		c.Backend.Type = BackendCLI
	}
	if c.Backend.Type == BackendCLI && c.Backend.Command == "" {
		c.Backend.Command = d.Backend.Command
	}
	if c.TaskTimeoutMinutes <= 0 {
		c.TaskTimeoutMinutes = d.TaskTimeoutMinutes
	}
	if c.UpdateIntervalMs <= 0 {
		c.UpdateIntervalMs = d.UpdateIntervalMs
	}
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = d.SessionTTLHours
	}
	if c.ContinuationPrompt == "" {
		c.ContinuationPrompt = d.ContinuationPrompt
	}
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config file location.
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chatschnell.json"
	}
	return filepath.Join(home, ".config", "chatschnell", "config.json")
}

// TaskTimeout returns the task timeout as a duration.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMinutes) * time.Minute
}

// UpdateInterval returns the update interval as a duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMs) * time.Millisecond
}

// SessionTTL returns the session time-to-live as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}
