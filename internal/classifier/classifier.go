// Package classifier provides keyword perception of user messages.
//
// Detection is deliberately shallow: case-insensitive substring
// containment against configuration-supplied tables, first match wins.
// The classifier is deterministic, has no side effects, and owns none
// of its tables. They arrive from config and can change without
// touching the resolver or extractor contracts.
package classifier

import (
	"strings"

	"github.com/cocoro-ai/cocoro/internal/config"
)

// Default labels when no table entry matches.
const (
	DefaultEmotion = "neutral"
	DefaultIntent  = "venting"
)

// Perception is the combined read of a single user message.
type Perception struct {
	Emotion string `json:"emotion"`
	Intent  string `json:"intent"`
	Risk    int    `json:"risk"`
}

// Classifier classifies user messages against configured keyword tables.
type Classifier struct {
	emotions []config.EmotionLexicon
	intents  []config.IntentPattern
	risk     config.RiskConfig
}

// New creates a classifier from the configured tables.
func New(cfg *config.Config) *Classifier {
	return &Classifier{
		emotions: cfg.Emotions,
		intents:  cfg.Intents,
		risk:     cfg.Risk,
	}
}

// Classify runs emotion, intent, and risk detection on one message.
func (c *Classifier) Classify(message string) Perception {
	return Perception{
		Emotion: c.Emotion(message),
		Intent:  c.Intent(message),
		Risk:    c.Risk(message),
	}
}

// Emotion returns the first emotion label whose keyword list hits,
// walking labels in table order. No hit returns DefaultEmotion.
func (c *Classifier) Emotion(message string) string {
	lower := strings.ToLower(message)
	for _, lex := range c.emotions {
		if containsAny(lower, lex.Keywords) {
			return lex.Label
		}
	}
	return DefaultEmotion
}

// Intent returns the first intent label whose phrase list hits,
// walking labels in table order. No hit returns DefaultIntent.
func (c *Classifier) Intent(message string) string {
	lower := strings.ToLower(message)
	for _, pat := range c.intents {
		if containsAny(lower, pat.Phrases) {
			return pat.Label
		}
	}
	return DefaultIntent
}

// containsAny reports whether text contains any of the given substrings.
func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
