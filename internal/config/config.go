// Package config handles Cocoro configuration loading and management.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	apperrors "github.com/cocoro-ai/cocoro/internal/errors"
)

// Default returns the default configuration.
//
// The tables below are the stock companion persona and toolbox. They are
// ordinary configuration: deployments override them in config.toml
// without touching the resolver or extractor contracts.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "https://api.openai.com/v1",
			KeyEnv:         "OPENAI_API_KEY",
			TimeoutSeconds: 60,
			MaxTokens:      500,
		},
		Models: ModelsConfig{
			Preferences: []string{
				"gpt-5",
				"gpt-4o",
				"gpt-4o-mini",
			},
			FallbackText:           "I'm having a little trouble reaching my words right now. I'm still here with you — could you tell me that again in a moment?",
			AvailabilityTTLMinutes: 5,
			Temperature:            0.8,
		},
		Persona: PersonaConfig{
			System:        basePersona,
			HistoryWindow: 8,
		},
		Tones: map[string]string{
			"anxiety": "Use a calm, grounding tone. Slow the pace and reduce cognitive load.",
			"sadness": "Use a warm, tender tone. Acknowledge the weight and convey presence.",
			"anger":   "Use a steady, validating tone. Normalize anger and support clarity before action.",
			"shame":   "Use a gentle, non-judgmental tone. Reduce self-criticism and support self-compassion.",
			"calm":    "Use an affirming tone. Reinforce stability, agency, and mindful awareness.",
			"neutral": "Use a curious, open tone. Invite gentle reflection.",
		},
		Emotions: []EmotionLexicon{
			{Label: "anxiety", Keywords: []string{"anxious", "panic", "panicking", "nervous", "worried", "pressure", "stressed", "overthinking", "overwhelm", "tense", "afraid", "scared"}},
			{Label: "sadness", Keywords: []string{"sad", "lonely", "upset", "tired", "hurt", "empty", "numb", "down", "blue", "depressed", "cry", "crying", "loss", "grief"}},
			{Label: "anger", Keywords: []string{"angry", "frustrated", "irritated", "mad", "furious", "rage", "annoyed", "resentful"}},
			{Label: "shame", Keywords: []string{"ashamed", "shame", "embarrassed", "humiliated", "guilty", "worthless", "not enough", "failure"}},
			{Label: "calm", Keywords: []string{"happy", "grateful", "peaceful", "content", "okay", "fine", "relieved", "light"}},
		},
		Intents: []IntentPattern{
			{Label: "help", Phrases: []string{"what should i", "should i", "how do i", "how should i", "what can i do", "help me", "advise"}},
			{Label: "self-blame", Phrases: []string{"i'm sorry", "my fault", "i shouldn't", "i always mess up", "blame myself"}},
			{Label: "avoid", Phrases: []string{"whatever", "forget it", "no point", "doesn't matter"}},
			{Label: "explore", Phrases: []string{"why am i", "why do i", "i wonder", "maybe i", "i want to understand"}},
		},
		Risk: RiskConfig{
			Cap:              5,
			SomaticThreshold: 3,
			SomaticModules:   []string{"DBT_TIPP", "BREATH_BOX", "GROUNDING_54321", "EMOTIONAL_LABELING"},
			Signals: []RiskSignal{
				{Weight: 2, Phrases: []string{"disappear", "give up on life", "i don't want to be here"}},
				{Weight: 3, Phrases: []string{"die", "death", "kill myself", "suicide", "hurt myself"}},
				{Weight: 1, Phrases: []string{"can't sleep", "awake all night", "no appetite", "binge"}},
			},
		},
		Interventions: map[string]Intervention{
			"CBT_THOUGHT_RECORD": {
				Name: "CBT Thought Record",
				Desc: "Clarify the chain: situation, automatic thought, feeling, evidence for/against, balanced thought.",
				HowTo: []string{
					"Write the situation in one sentence.",
					"Note the automatic thought verbatim.",
					"Rate your feeling (0-10).",
					"List evidence that supports the thought; list evidence that challenges it.",
					"Draft a more balanced alternative thought.",
					"Re-rate the feeling (0-10) and compare.",
				},
			},
			"DBT_TIPP": {
				Name: "DBT TIPP",
				Desc: "Short, physiological resets to downshift strong emotion.",
				HowTo: []string{
					"Temperature: cool your face/neck with water for 30-60 seconds.",
					"Intense movement: 60-120 seconds of brisk movement or shakes.",
					"Paced breathing: inhale 4s, exhale 6s for 2 minutes.",
					"Progressive muscle release: clench 5s, release 10s, head-to-toe.",
				},
			},
			"GROUNDING_54321": {
				Name: "5-4-3-2-1 Grounding",
				Desc: "Use the senses to anchor attention in the present.",
				HowTo: []string{
					"Notice 5 things you can see.",
					"Notice 4 things you can touch.",
					"Notice 3 things you can hear.",
					"Notice 2 things you can smell.",
					"Notice 1 thing you can taste or the sensation in your mouth.",
				},
			},
			"BREATH_BOX": {
				Name: "Box Breathing 4-4-4-4",
				Desc: "Stabilize pace and heart rate with square breathing.",
				HowTo: []string{
					"Inhale for 4 seconds.",
					"Hold for 4 seconds.",
					"Exhale for 4 seconds.",
					"Hold for 4 seconds. Repeat 4 rounds.",
				},
			},
			"SELF_COMPASSION": {
				Name: "Self-Compassion Script",
				Desc: "Talk to yourself like you would to a close friend.",
				HowTo: []string{
					"Name what hurts: \"This is hard.\"",
					"Normalize: \"Struggle is part of being human.\"",
					"Kind wish: \"May I be gentle with myself right now.\"",
				},
			},
			"DESC_SCRIPT": {
				Name: "DESC Boundary Script",
				Desc: "Describe-Express-Specify-Consequences for clear, kind boundaries.",
				HowTo: []string{
					"Describe facts (no blame).",
					"Express how it impacts you.",
					"Specify a clear, doable request.",
					"State the natural consequence if needed.",
				},
			},
			"SLEEP_HYGIENE_MINI": {
				Name: "Sleep Hygiene (Mini)",
				Desc: "Micro habits for today/tonight.",
				HowTo: []string{
					"Fix your wake-up time (even if sleep was short).",
					"Get morning light 10-20 minutes.",
					"No caffeine within 8 hours of bed.",
					"Screens off or dimmed 60 minutes before sleep; make a worry list on paper.",
				},
			},
			"BODY_SCAN": {
				Name: "Mindful Body Scan",
				Desc: "Release tension with awareness, head to toe.",
				HowTo: []string{
					"Close eyes; notice forehead, jaw, neck, shoulders.",
					"Scan arms and hands; then chest, belly, back.",
					"Scan hips, legs, feet; breathe into any tight spots.",
					"Gently open eyes and notice one thing you appreciate.",
				},
			},
			"REFLECTIVE_QUESTION": {
				Name: "Reflective Question",
				Desc: "Perspective-taking to unhook from fusion.",
				HowTo: []string{
					"If your closest friend was in this spot, what would you say to them?",
					"Which part of you needs most care right now: body, mind, or heart?",
					"What's the smallest kind step that doesn't make things worse?",
				},
			},
			"ACTION_STEP": {
				Name: "Tiny Action Plan",
				Desc: "Create a 10-minute micro-step to regain agency.",
				HowTo: []string{
					"Name the smallest helpful task (10 minutes or less).",
					"Decide when in the next 24 hours you'll do it.",
					"Define a visible done signal (checkbox, timer, photo).",
				},
			},
			"GRATITUDE_PROMPT": {
				Name: "Gratitude Prompt",
				Desc: "Rebalance attentional bias by noting small good things.",
				HowTo: []string{
					"List three small things you're grateful for today.",
					"Write one sentence about why each matters to you.",
				},
			},
			"EMOTIONAL_LABELING": {
				Name: "Emotional Labeling",
				Desc: "Name and rate feelings to reduce intensity.",
				HowTo: []string{
					"Pick 1-2 words for the feeling (e.g., anxious, sad).",
					"Rate intensity 0-10 now.",
					"After one short practice (breath/ground), re-rate and compare.",
				},
			},
		},
		Router: map[string]map[string][]string{
			"anxiety": {
				"venting":    {"GROUNDING_54321", "BREATH_BOX", "EMOTIONAL_LABELING", "ACTION_STEP"},
				"help":       {"CBT_THOUGHT_RECORD", "BREATH_BOX", "ACTION_STEP"},
				"self-blame": {"SELF_COMPASSION", "EMOTIONAL_LABELING", "CBT_THOUGHT_RECORD"},
				"explore":    {"REFLECTIVE_QUESTION", "EMOTIONAL_LABELING"},
				"avoid":      {"ACTION_STEP", "BREATH_BOX"},
			},
			"sadness": {
				"venting":    {"SELF_COMPASSION", "EMOTIONAL_LABELING", "BODY_SCAN"},
				"help":       {"ACTION_STEP", "GRATITUDE_PROMPT", "SLEEP_HYGIENE_MINI"},
				"self-blame": {"SELF_COMPASSION", "CBT_THOUGHT_RECORD"},
				"explore":    {"REFLECTIVE_QUESTION", "GRATITUDE_PROMPT"},
				"avoid":      {"ACTION_STEP", "BODY_SCAN"},
			},
			"anger": {
				"venting":    {"DBT_TIPP", "EMOTIONAL_LABELING"},
				"help":       {"DESC_SCRIPT", "ACTION_STEP"},
				"self-blame": {"SELF_COMPASSION", "CBT_THOUGHT_RECORD"},
				"explore":    {"REFLECTIVE_QUESTION"},
				"avoid":      {"DBT_TIPP", "ACTION_STEP"},
			},
			"shame": {
				"venting":    {"SELF_COMPASSION", "EMOTIONAL_LABELING"},
				"help":       {"CBT_THOUGHT_RECORD", "ACTION_STEP"},
				"self-blame": {"SELF_COMPASSION", "REFLECTIVE_QUESTION"},
				"explore":    {"REFLECTIVE_QUESTION", "GRATITUDE_PROMPT"},
				"avoid":      {"ACTION_STEP", "BREATH_BOX"},
			},
			"calm": {
				"venting":    {"GRATITUDE_PROMPT", "ACTION_STEP"},
				"help":       {"ACTION_STEP", "DESC_SCRIPT"},
				"self-blame": {"SELF_COMPASSION"},
				"explore":    {"REFLECTIVE_QUESTION"},
				"avoid":      {"ACTION_STEP"},
			},
			"neutral": {
				"venting":    {"EMOTIONAL_LABELING", "REFLECTIVE_QUESTION"},
				"help":       {"ACTION_STEP", "CBT_THOUGHT_RECORD"},
				"self-blame": {"SELF_COMPASSION"},
				"explore":    {"REFLECTIVE_QUESTION", "GRATITUDE_PROMPT"},
				"avoid":      {"ACTION_STEP", "BREATH_BOX"},
			},
		},
		Modes: []ModeBinding{
			{ID: 0, Name: "idle", Desc: "neutral ambient state"},
			{ID: 1, Name: "breathing", Desc: "paced breathing guide"},
			{ID: 2, Name: "grounding", Desc: "sensory grounding cue"},
			{ID: 3, Name: "warm", Desc: "soft warm presence"},
			{ID: 4, Name: "focus", Desc: "structured thinking aid"},
			{ID: 5, Name: "rest", Desc: "wind-down and sleep support"},
			{ID: 6, Name: "ambient", Desc: "quiet companionship"},
		},
		Session: SessionConfig{
			LogDB:      ":memory:",
			ExportPath: "cocoro_session_log.json",
		},
	}
}

// Load loads the configuration from the given path.
// If the file doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeConfigNotFound, "failed to read config", apperrors.CategoryUser)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "failed to parse config", apperrors.CategoryUser)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}

// Validate checks cross-references the loader cannot express in types.
func (c *Config) Validate() error {
	if len(c.Models.Preferences) == 0 {
		return apperrors.User(apperrors.CodeConfigInvalid, "models.preferences must not be empty")
	}
	if c.Models.FallbackText == "" {
		return apperrors.User(apperrors.CodeConfigInvalid, "models.fallback_text must not be empty")
	}

	// The router degrades unknown lookups to neutral/venting, so that
	// entry is the floor the whole table stands on.
	if len(c.Router["neutral"]["venting"]) == 0 {
		return apperrors.User(apperrors.CodeConfigInvalid, "router.neutral.venting must exist and be non-empty")
	}

	// Every router entry must name a cataloged intervention.
	for emotion, intents := range c.Router {
		for intent, keys := range intents {
			for _, key := range keys {
				if _, ok := c.Interventions[key]; !ok {
					return apperrors.User(apperrors.CodeConfigInvalid,
						fmt.Sprintf("router.%s.%s references unknown intervention %q", emotion, intent, key))
				}
			}
		}
	}

	for _, key := range c.Risk.SomaticModules {
		if _, ok := c.Interventions[key]; !ok {
			return apperrors.User(apperrors.CodeConfigInvalid,
				fmt.Sprintf("risk.somatic_modules references unknown intervention %q", key))
		}
	}

	return nil
}

// ModeName returns the configured name for a mode id, or "" if unbound.
func (c *Config) ModeName(id int) string {
	for _, m := range c.Modes {
		if m.ID == id {
			return m.Name
		}
	}
	return ""
}

// KnownMode reports whether the id belongs to the configured mode set.
func (c *Config) KnownMode(id int) bool {
	return c.ModeName(id) != ""
}

const basePersona = `You are a warm, emotionally intelligent AI companion and counselor-style assistant.
Your job is to listen, reflect, and respond with empathy.
Use therapeutic communication techniques such as active listening, validation,
gentle reframing, and clarity-building. Avoid generic cheerleading.
Follow a 3-step structure in each turn:
1) Reflect Emotion (mirror and name feelings without judgment)
2) Structure the Issue (clarify, organize, and reduce overwhelm)
3) Suggest a Gentle Step (one small, concrete action OR a reflective question)
Tone: calm, grounded, kind, non-clinical, and concise.
Do not include any crisis or safety protocol in your responses.`
