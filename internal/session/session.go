// Package session holds the per-conversation state for Cocoro.
//
// State is an explicit value passed into and returned from each turn:
// there is no process-wide session singleton. The transcript is
// append-only from the host's side; the resolver only ever reads a
// suffix of it and appends nothing.
package session

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/cocoro-ai/cocoro/internal/errors"
	"github.com/cocoro-ai/cocoro/internal/model"
	"github.com/cocoro-ai/cocoro/internal/modetag"
)

// State is the conversation state for one session.
type State struct {
	ID        string          `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	Messages  []model.Message `json:"messages"`
	Log       []TurnRecord    `json:"log"`
	Mode      modetag.Mode    `json:"mode"`
}

// TurnRecord is the per-turn metadata entry of the session log.
type TurnRecord struct {
	Timestamp time.Time `json:"ts"`
	Emotion   string    `json:"emotion"`
	Intent    string    `json:"intent"`
	RiskScore int       `json:"risk_score"`
	Module    string    `json:"module"`
	Mode      int       `json:"mode"`
	Model     string    `json:"model,omitempty"`
	Fallback  bool      `json:"fallback,omitempty"`
}

// NewState creates an empty session state in the idle mode.
func NewState() *State {
	return &State{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
}

// Append adds one role-tagged turn to the transcript.
func (s *State) Append(role, content string) {
	s.Messages = append(s.Messages, model.Message{Role: role, Content: content})
}

// Window returns the transcript suffix of at most n turns.
// n <= 0 returns the whole transcript.
func (s *State) Window(n int) []model.Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Record appends one turn's metadata to the session log.
func (s *State) Record(rec TurnRecord) {
	s.Log = append(s.Log, rec)
}

// ExportLog renders the session log as indented JSON.
func (s *State) ExportLog() ([]byte, error) {
	data, err := json.MarshalIndent(s.Log, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSessionExportFailed, "failed to encode session log", apperrors.CategorySystem)
	}
	return data, nil
}

// ExportLogTo writes the JSON session log to the given path.
func (s *State) ExportLogTo(path string) error {
	data, err := s.ExportLog()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.Wrap(err, apperrors.CodeSessionExportFailed, "failed to write session log", apperrors.CategorySystem)
	}
	return nil
}
