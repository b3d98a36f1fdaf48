// Package engine orchestrates one chat turn end to end.
//
// Pipeline per turn: perceive the message (keyword classifier), route an
// intervention, build the prompt, run the resolver cascade, split the
// result into display text and mode tag, and fold everything back into
// the caller's session state.
//
// Respond is total: it always returns a displayable result and never an
// error. Failures below the resolver boundary degrade inside it; store
// mirroring is best-effort and only logged.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/cocoro-ai/cocoro/internal/classifier"
	"github.com/cocoro-ai/cocoro/internal/config"
	"github.com/cocoro-ai/cocoro/internal/intervention"
	"github.com/cocoro-ai/cocoro/internal/model"
	"github.com/cocoro-ai/cocoro/internal/modetag"
	"github.com/cocoro-ai/cocoro/internal/prompt"
	"github.com/cocoro-ai/cocoro/internal/session"
	"github.com/cocoro-ai/cocoro/internal/stats"
)

// Engine is the per-session turn processor.
type Engine struct {
	classifier *classifier.Classifier
	router     *intervention.Router
	prompts    *prompt.Builder
	resolver   *model.Resolver
	store      *session.Store // optional mirror, may be nil
	stats      *stats.Collector

	temperature   float64
	historyWindow int
	cfg           *config.Config
}

// Config configures the engine.
type Config struct {
	Classifier *classifier.Classifier
	Router     *intervention.Router
	Prompts    *prompt.Builder
	Resolver   *model.Resolver
	Store      *session.Store
	AppConfig  *config.Config
}

// New creates an engine.
func New(cfg *Config) *Engine {
	return &Engine{
		classifier:    cfg.Classifier,
		router:        cfg.Router,
		prompts:       cfg.Prompts,
		resolver:      cfg.Resolver,
		store:         cfg.Store,
		stats:         stats.NewCollector(),
		temperature:   cfg.AppConfig.Models.Temperature,
		historyWindow: cfg.AppConfig.Persona.HistoryWindow,
		cfg:           cfg.AppConfig,
	}
}

// Result is everything one turn produced.
type Result struct {
	// Display is the user-visible reply with control syntax stripped.
	Display string

	// Mode is the resolved ambient mode id (previous mode if untagged).
	Mode modetag.Mode

	// ModeName is the configured binding for Mode, "" when unbound.
	// Unknown ids still flow through Mode for continuity.
	ModeName string

	// Candidate is the model that produced the text; empty on fallback.
	Candidate model.Candidate

	// Fallback is set when the trial order was exhausted.
	Fallback bool

	Perception classifier.Perception
	ModuleKey  string
	Module     config.Intervention
	Duration   time.Duration
}

// Respond processes one user turn against the given session state.
//
// The state is mutated in place: the user message, the assistant reply,
// the turn record, and the resolved mode are appended/updated. The
// resolver itself only reads the transcript suffix.
func (e *Engine) Respond(ctx context.Context, st *session.State, userText string) *Result {
	start := time.Now()

	// Perception and routing
	perception := e.classifier.Classify(userText)
	moduleKey := e.router.Choose(perception.Emotion, perception.Intent, perception.Risk)
	module, _ := e.router.Module(moduleKey)

	// Transcript: append the user turn, then take the suffix the
	// resolver is allowed to see.
	st.Append(model.RoleUser, userText)
	e.mirrorMessage(ctx, st, len(st.Messages)-1)

	messages := make([]model.Message, 0, e.historyWindow+2)
	messages = append(messages, model.Message{
		Role:    model.RoleSystem,
		Content: e.prompts.System(perception.Emotion, perception.Intent),
	})
	messages = append(messages, st.Window(e.historyWindow)...)
	messages = append(messages, model.Message{
		Role:    model.RoleSystem,
		Content: e.prompts.InterventionContext(moduleKey, module),
	})

	// Generation and tag extraction
	outcome := e.resolver.Generate(ctx, messages, e.temperature)
	display, mode := modetag.Extract(outcome.Text, st.Mode)

	st.Mode = mode
	st.Append(model.RoleAssistant, display)
	e.mirrorMessage(ctx, st, len(st.Messages)-1)

	rec := session.TurnRecord{
		Timestamp: time.Now(),
		Emotion:   perception.Emotion,
		Intent:    perception.Intent,
		RiskScore: perception.Risk,
		Module:    moduleKey,
		Mode:      int(mode),
		Model:     string(outcome.Candidate),
		Fallback:  outcome.Fallback,
	}
	st.Record(rec)
	if e.store != nil {
		if err := e.store.SaveTurn(ctx, st.ID, rec); err != nil {
			log.Printf("engine: turn mirror failed: %v", err)
		}
	}

	duration := time.Since(start)
	e.stats.RecordTurn(outcome.TokensUsed, outcome.Attempts, outcome.Fallback, duration)

	return &Result{
		Display:    display,
		Mode:       mode,
		ModeName:   e.cfg.ModeName(int(mode)),
		Candidate:  outcome.Candidate,
		Fallback:   outcome.Fallback,
		Perception: perception,
		ModuleKey:  moduleKey,
		Module:     module,
		Duration:   duration,
	}
}

// Stats returns a snapshot of the session counters.
func (e *Engine) Stats() *stats.Stats {
	return e.stats.Snapshot()
}

// InvalidateModels drops the cached availability listing so the next
// turn queries the backend again.
func (e *Engine) InvalidateModels() {
	e.resolver.InvalidateAvailability()
}

// mirrorMessage copies one transcript entry into the store, best-effort.
func (e *Engine) mirrorMessage(ctx context.Context, st *session.State, seq int) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveMessage(ctx, st.ID, seq, st.Messages[seq]); err != nil {
		log.Printf("engine: message mirror failed: %v", err)
	}
}
