// Package prompt builds system prompts for Cocoro.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cocoro-ai/cocoro/internal/config"
	"github.com/cocoro-ai/cocoro/internal/modetag"
)

// Builder assembles the per-turn system prompt and intervention context.
type Builder struct {
	Persona       string
	Tones         map[string]string
	Modes         []config.ModeBinding
	MaxHowToSteps int
}

// NewBuilder creates a builder over the configured persona, tone table,
// and mode bindings.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		Persona:       cfg.Persona.System,
		Tones:         cfg.Tones,
		Modes:         cfg.Modes,
		MaxHowToSteps: 3,
	}
}

// System builds the system prompt for one turn.
func (b *Builder) System(emotion, intent string) string {
	var sections []string
	sections = append(sections, b.Persona)

	tone := b.Tones[emotion]
	if tone == "" {
		tone = b.Tones["neutral"]
	}
	if tone != "" {
		sections = append(sections, "Tone style: "+tone)
	}

	sections = append(sections, fmt.Sprintf("Emotional focus: %s; User intent: %s.", emotion, intent))
	sections = append(sections,
		"In your final message, do NOT mention any 'protocol' or 'crisis' or 'safety script'.\n"+
			"Keep it to ~3 short paragraphs max.")

	if modes := b.modeSection(); modes != "" {
		sections = append(sections, modes)
	}

	return strings.Join(sections, "\n\n")
}

// InterventionContext builds the trailing system message that carries
// the chosen practice module so the model can tailor its gentle step.
// Only the first few how-to steps travel, to keep the chat reply concise.
func (b *Builder) InterventionContext(key string, module config.Intervention) string {
	howto := module.HowTo
	if b.MaxHowToSteps > 0 && len(howto) > b.MaxHowToSteps {
		howto = howto[:b.MaxHowToSteps]
	}

	payload := map[string]any{
		"intervention": map[string]any{
			"key":   key,
			"name":  module.Name,
			"desc":  module.Desc,
			"howto": howto,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// Marshaling a map of strings cannot realistically fail; degrade
		// to the bare module name rather than dropping the context.
		return "Context for Step 3 (intervention module): " + module.Name
	}
	return "Context for Step 3 (intervention module):\n" + string(data)
}

// modeSection teaches the backend the mode-tag contract. The marker
// format here must stay in lockstep with the modetag extractor.
func (b *Builder) modeSection() string {
	if len(b.Modes) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Ambient modes:\n")
	sb.WriteString("End your reply with exactly one marker of the form " + modetag.Tag(0) + " choosing the digit from:\n")
	for _, m := range b.Modes {
		sb.WriteString(fmt.Sprintf("- %s = %s (%s)\n", modetag.Tag(modetag.Mode(m.ID)), m.Name, m.Desc))
	}
	sb.WriteString("Omit the marker to keep the current mode. Never mention modes or the marker in your visible text.")
	return sb.String()
}
