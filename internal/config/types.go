// Package config provides configuration types for Cocoro.
package config

// Config represents the main Cocoro configuration.
//
// Everything the engine treats as data lives here: keyword tables, tone
// prompts, the intervention catalog and router table, the model
// preference list, and the fallback text. None of it is compiled logic.
type Config struct {
	API           APIConfig                      `toml:"api"`
	Models        ModelsConfig                   `toml:"models"`
	Persona       PersonaConfig                  `toml:"persona"`
	Tones         map[string]string              `toml:"tones"`
	Emotions      []EmotionLexicon               `toml:"emotions"`
	Intents       []IntentPattern                `toml:"intents"`
	Risk          RiskConfig                     `toml:"risk"`
	Interventions map[string]Intervention        `toml:"interventions"`
	Router        map[string]map[string][]string `toml:"router"`
	Modes         []ModeBinding                  `toml:"modes"`
	Session       SessionConfig                  `toml:"session"`
}

// APIConfig configures the completion endpoint.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	KeyEnv         string `toml:"key_env"` // environment variable holding the API key
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxTokens      int    `toml:"max_tokens"`
}

// ModelsConfig configures model selection and degradation.
type ModelsConfig struct {
	// Preferences is the ranked candidate list, highest priority first.
	Preferences []string `toml:"preferences"`

	// FallbackText is returned verbatim when every candidate fails.
	FallbackText string `toml:"fallback_text"`

	// AvailabilityTTLMinutes bounds how long a models listing is reused.
	AvailabilityTTLMinutes int `toml:"availability_ttl_minutes"`

	// Temperature is the sampling temperature for every turn.
	Temperature float64 `toml:"temperature"`
}

// PersonaConfig holds the base persona and transcript windowing.
type PersonaConfig struct {
	System        string `toml:"system"`
	HistoryWindow int    `toml:"history_window"` // transcript suffix sent per turn
}

// EmotionLexicon binds an emotion label to its keyword list.
// Order in the slice is match order: first label with a hit wins.
type EmotionLexicon struct {
	Label    string   `toml:"label"`
	Keywords []string `toml:"keywords"`
}

// IntentPattern binds an intent label to its trigger phrases.
// Order in the slice is match order; no hit means the default intent.
type IntentPattern struct {
	Label   string   `toml:"label"`
	Phrases []string `toml:"phrases"`
}

// RiskConfig configures the keyword-weighted intensity score.
//
// The score only biases intervention choice. It is not a safety signal
// and is never validated against model output.
type RiskConfig struct {
	Cap              int          `toml:"cap"`
	SomaticThreshold int          `toml:"somatic_threshold"`
	SomaticModules   []string     `toml:"somatic_modules"`
	Signals          []RiskSignal `toml:"signals"`
}

// RiskSignal is one weighted phrase group.
type RiskSignal struct {
	Weight  int      `toml:"weight"`
	Phrases []string `toml:"phrases"`
}

// Intervention is one entry of the practice toolbox.
type Intervention struct {
	Name  string   `toml:"name"`
	Desc  string   `toml:"desc"`
	HowTo []string `toml:"howto"`
}

// ModeBinding names an ambient mode id for the host UI.
type ModeBinding struct {
	ID   int    `toml:"id"`
	Name string `toml:"name"`
	Desc string `toml:"desc"`
}

// SessionConfig configures the per-process session store.
type SessionConfig struct {
	// LogDB is the SQLite DSN for the transcript/log store.
	// The default in-memory DSN keeps everything process-scoped.
	LogDB string `toml:"log_db"`

	// ExportPath is where the JSON session log is written on request.
	ExportPath string `toml:"export_path"`
}
