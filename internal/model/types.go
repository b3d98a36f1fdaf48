// Package model provides types for completion operations.
package model

// Candidate is an opaque identifier naming a backend model.
// Ordering between candidates is the only semantic it carries.
type Candidate string

// Role labels for conversation turns (OpenAI wire convention).
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a single generation call.
type Request struct {
	Model       Candidate `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Completion represents a successful generation result.
type Completion struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

// Outcome is the total result of one resolution attempt.
//
// Either Text came from Candidate, or the trial order was exhausted and
// Text is the configured fallback with Fallback set and no candidate.
type Outcome struct {
	Text       string    `json:"text"`
	Candidate  Candidate `json:"candidate,omitempty"`
	Fallback   bool      `json:"fallback"`
	TokensUsed int       `json:"tokens_used"`
	Attempts   int       `json:"attempts"`
}
