// Package commandy defines the shared types of the suggestion pipeline and
// the request/response types for commandy IPC.
// IPC messages are JSON-encoded and sent over a Unix domain socket, one per line.
package commandy

// Environment keys read by the prompt builder.
const (
	EnvOS             = "os"
	EnvShell          = "shell"
	EnvAvailableTools = "available_tools"
)

// ContextSnapshot is the caller-supplied context for one suggestion request.
// It is read-only for the duration of the request.
type ContextSnapshot struct {
	// Environment holds facts such as "os", "shell" and "available_tools"
	// (a comma-separated list of executable names).
	Environment map[string]string `json:"environment,omitempty" toml:"environment,omitempty"`
	// RecentCommands is the recent command history, most recent first.
	RecentCommands []string `json:"recent_commands,omitempty" toml:"recent_commands,omitempty"`
	// LearnedPatterns is free-form accumulated text. Lines containing "→" or
	// "✓" are considered for the prompt.
	LearnedPatterns string `json:"learned_patterns,omitempty" toml:"learned_patterns,omitempty"`
}

// ModelParameters are passed to the inference engine on every invocation.
type ModelParameters struct {
	// Model is the model identifier handed to llama.cpp via -hf.
	Model string `json:"model" toml:"name"`
	// MaxTokens bounds the number of generated tokens.
	MaxTokens int `json:"max_tokens" toml:"max_tokens"`
	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" toml:"temperature"`
}

// Suggestion is a validated shell command extracted from model output.
type Suggestion struct {
	// Command is the full command line.
	Command string `json:"command" toml:"command"`
	// Explanation is a human-readable description. The pipeline never sets it.
	Explanation string `json:"explanation,omitempty" toml:"explanation,omitempty"`
	// Confidence is fixed per extraction strategy (0.8 primary, 0.6 fallback).
	Confidence float64 `json:"confidence" toml:"confidence"`
}

// Request is sent from a client to the daemon.
type Request struct {
	// RequestID is a per-session incrementing identifier assigned by the client.
	// The daemon echoes it back in the response for ordering.
	RequestID int `json:"request_id"`
	// Prompt is the natural-language request.
	Prompt string `json:"prompt"`
	// SessionID identifies the client session. A new request cancels any
	// in-flight request of the same session.
	SessionID string `json:"session_id,omitempty"`
	// MaxSuggestions is the maximum number of suggestions to return.
	MaxSuggestions int `json:"max_suggestions,omitempty"`
	// Context overrides the context the daemon would otherwise collect itself.
	Context *ContextSnapshot `json:"context,omitempty"`
}

// Response is sent from the daemon back to the client.
type Response struct {
	// RequestID is echoed from the request.
	RequestID int `json:"request_id"`
	// Suggestions are in discovery order.
	Suggestions []Suggestion `json:"suggestions"`
	// Error is set when the daemon cannot fulfill the request.
	Error *Error `json:"error,omitempty"`
}

// Error describes a daemon-side error returned to the client.
type Error struct {
	// Code is a machine-readable error identifier (e.g. "engine_unavailable").
	Code string `json:"code"`
	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes carried in Error.Code.
const (
	CodeNotConfigured     = "not_configured"
	CodeEngineUnavailable = "engine_unavailable"
	CodeEngineFailed      = "engine_failed"
	CodeInvalidRequest    = "invalid_request"
	CodeConfigError       = "config_error"
	CodeUnknownAction     = "unknown_action"
)

// ConfigRequest is sent from the client for configuration operations.
type ConfigRequest struct {
	// Action is the config operation: "get", "reload", "defaults",
	// "default_prompt" or "validate".
	Action string `json:"action"`
}

// ConfigResponse is sent from the daemon in response to a ConfigRequest.
type ConfigResponse struct {
	// Config is the current configuration (for "get", "reload", and "defaults" actions).
	Config *Config `json:"config,omitempty"`
	// Prompt is the default prompt template (for "default_prompt" action).
	Prompt string `json:"prompt,omitempty"`
	// Warnings contains configuration warnings (for "validate" action).
	Warnings []string `json:"warnings,omitempty"`
	// Error is set when the operation fails.
	Error *Error `json:"error,omitempty"`
}
