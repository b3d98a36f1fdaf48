package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cocoro-ai/cocoro/internal/classifier"
	"github.com/cocoro-ai/cocoro/internal/config"
	apperrors "github.com/cocoro-ai/cocoro/internal/errors"
	"github.com/cocoro-ai/cocoro/internal/intervention"
	"github.com/cocoro-ai/cocoro/internal/model"
	"github.com/cocoro-ai/cocoro/internal/prompt"
	"github.com/cocoro-ai/cocoro/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedClient fails and answers per candidate and records what the
// engine sent.
type scriptedClient struct {
	replies  map[model.Candidate]string
	errs     map[model.Candidate]error
	listed   []model.Candidate
	requests []*model.Request
}

func (s *scriptedClient) Complete(_ context.Context, req *model.Request) (*model.Completion, error) {
	s.requests = append(s.requests, req)
	if err, ok := s.errs[req.Model]; ok {
		return nil, err
	}
	if text, ok := s.replies[req.Model]; ok {
		return &model.Completion{Text: text, Model: string(req.Model), TokensUsed: 7}, nil
	}
	return nil, apperrors.Permanent(apperrors.CodeModelUnavailable, "unscripted candidate")
}

func (s *scriptedClient) ListModels(_ context.Context) ([]model.Candidate, error) {
	if s.listed == nil {
		return nil, apperrors.Temporary(apperrors.CodeAvailabilityFailed, "no listing")
	}
	return s.listed, nil
}

func newTestEngine(t *testing.T, client model.CompletionClient, prefs []model.Candidate) *Engine {
	t.Helper()
	cfg := config.Default()

	store, err := session.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(&Config{
		Classifier: classifier.New(cfg),
		Router:     intervention.NewRouter(cfg, rand.New(rand.NewSource(1))),
		Prompts:    prompt.NewBuilder(cfg),
		Resolver: model.NewResolver(&model.ResolverConfig{
			Client:       client,
			Preferences:  prefs,
			FallbackText: cfg.Models.FallbackText,
		}),
		Store:     store,
		AppConfig: cfg,
	})
}

func TestRespondCascadeAndModeExtraction(t *testing.T) {
	client := &scriptedClient{
		listed: []model.Candidate{"b"},
		errs: map[model.Candidate]error{
			"b": apperrors.Temporary(apperrors.CodeModelTimeout, "slow"),
		},
		replies: map[model.Candidate]string{
			"a": "ok [MODE:6]",
		},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a", "b", "c"})
	st := session.NewState()

	result := eng.Respond(context.Background(), st, "just talking")

	assert.Equal(t, "ok", result.Display)
	assert.Equal(t, 6, int(result.Mode))
	assert.Equal(t, "ambient", result.ModeName)
	assert.Equal(t, model.Candidate("a"), result.Candidate)
	assert.False(t, result.Fallback)

	// The listing promoted b to the front; when it failed the cascade
	// fell back to the preference order.
	require.Len(t, client.requests, 2)
	assert.Equal(t, model.Candidate("b"), client.requests[0].Model)
	assert.Equal(t, model.Candidate("a"), client.requests[1].Model)
}

func TestRespondPreferredModelListedAsAvailable(t *testing.T) {
	// Preferences [a, b, c], listing reports only b. The cascade lands
	// on b without ever being hurt by a's outage.
	client := &scriptedClient{
		listed: []model.Candidate{"b"},
		errs: map[model.Candidate]error{
			"a": apperrors.Temporary(apperrors.CodeModelTimeout, "down"),
		},
		replies: map[model.Candidate]string{
			"b": "ok [MODE:6]",
		},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a", "b", "c"})

	result := eng.Respond(context.Background(), session.NewState(), "hi")

	assert.Equal(t, "ok", result.Display)
	assert.Equal(t, 6, int(result.Mode))
	assert.Equal(t, model.Candidate("b"), result.Candidate)
	assert.False(t, result.Fallback)
}

func TestRespondUpdatesSessionState(t *testing.T) {
	client := &scriptedClient{
		replies: map[model.Candidate]string{"a": "take a slow breath [MODE:1]"},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a"})
	st := session.NewState()

	eng.Respond(context.Background(), st, "I'm so anxious I can't breathe")

	require.Len(t, st.Messages, 2)
	assert.Equal(t, model.RoleUser, st.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, st.Messages[1].Role)
	assert.Equal(t, "take a slow breath", st.Messages[1].Content)
	assert.Equal(t, 1, int(st.Mode))

	require.Len(t, st.Log, 1)
	assert.Equal(t, "anxiety", st.Log[0].Emotion)
	assert.Equal(t, 1, st.Log[0].Mode)
	assert.Equal(t, "a", st.Log[0].Model)
}

func TestRespondUntaggedReplyKeepsMode(t *testing.T) {
	client := &scriptedClient{
		replies: map[model.Candidate]string{"a": "no tag this time"},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a"})

	st := session.NewState()
	st.Mode = 4

	result := eng.Respond(context.Background(), st, "still here")

	assert.Equal(t, "no tag this time", result.Display)
	assert.Equal(t, 4, int(result.Mode))
	assert.Equal(t, 4, int(st.Mode))
}

func TestRespondUnknownModePassesThrough(t *testing.T) {
	client := &scriptedClient{
		replies: map[model.Candidate]string{"a": "hm [MODE:9]"},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a"})
	st := session.NewState()

	result := eng.Respond(context.Background(), st, "hi")

	assert.Equal(t, 9, int(result.Mode))
	assert.Equal(t, "", result.ModeName)
	assert.Equal(t, 9, int(st.Mode))
}

func TestRespondAllCandidatesFail(t *testing.T) {
	client := &scriptedClient{
		errs: map[model.Candidate]error{
			"a": apperrors.Temporary(apperrors.CodeModelTimeout, "slow"),
			"b": apperrors.Permanent(apperrors.CodeModelUnavailable, "gone"),
		},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a", "b"})
	st := session.NewState()
	st.Mode = 3

	result := eng.Respond(context.Background(), st, "hello?")

	assert.True(t, result.Fallback)
	assert.Equal(t, config.Default().Models.FallbackText, result.Display)
	assert.Empty(t, result.Candidate)
	// Fallback text carries no tag, so the mode holds.
	assert.Equal(t, 3, int(result.Mode))

	require.Len(t, st.Log, 1)
	assert.True(t, st.Log[0].Fallback)
}

func TestRespondPromptAssembly(t *testing.T) {
	client := &scriptedClient{
		replies: map[model.Candidate]string{"a": "reply"},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a"})
	st := session.NewState()

	eng.Respond(context.Background(), st, "what should I do, I'm panicking")

	require.Len(t, client.requests, 1)
	msgs := client.requests[0].Messages
	require.GreaterOrEqual(t, len(msgs), 3)

	// Leading system prompt names the perceived emotion and intent.
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Emotional focus: anxiety")
	assert.Contains(t, msgs[0].Content, "User intent: help")
	assert.Contains(t, msgs[0].Content, "[MODE:0]")

	// The user turn travels in the middle.
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, "what should I do, I'm panicking", msgs[1].Content)

	// Trailing system message carries the intervention context.
	last := msgs[len(msgs)-1]
	assert.Equal(t, model.RoleSystem, last.Role)
	assert.Contains(t, last.Content, "intervention")
}

func TestRespondHistoryWindow(t *testing.T) {
	client := &scriptedClient{
		replies: map[model.Candidate]string{"a": "reply"},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a"})
	st := session.NewState()

	window := config.Default().Persona.HistoryWindow
	for i := 0; i < window+4; i++ {
		eng.Respond(context.Background(), st, "turn")
	}

	last := client.requests[len(client.requests)-1]
	// system + window transcript turns + intervention context
	assert.Len(t, last.Messages, window+2)
}

func TestRespondMirrorsIntoStore(t *testing.T) {
	client := &scriptedClient{
		replies: map[model.Candidate]string{"a": "mirrored [MODE:2]"},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a"})
	st := session.NewState()

	eng.Respond(context.Background(), st, "hello")

	transcript, err := eng.store.Transcript(context.Background(), st.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "hello", transcript[0].Content)
	assert.Equal(t, "mirrored", transcript[1].Content)

	turns, err := eng.store.TurnLog(context.Background(), st.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, 2, turns[0].Mode)
}

func TestRespondWithoutStore(t *testing.T) {
	cfg := config.Default()
	client := &scriptedClient{
		replies: map[model.Candidate]string{"a": "fine without it"},
	}

	eng := New(&Config{
		Classifier: classifier.New(cfg),
		Router:     intervention.NewRouter(cfg, rand.New(rand.NewSource(1))),
		Prompts:    prompt.NewBuilder(cfg),
		Resolver: model.NewResolver(&model.ResolverConfig{
			Client:       client,
			Preferences:  []model.Candidate{"a"},
			FallbackText: cfg.Models.FallbackText,
		}),
		AppConfig: cfg,
	})

	result := eng.Respond(context.Background(), session.NewState(), "hi")
	assert.Equal(t, "fine without it", result.Display)
}

func TestStatsAccumulate(t *testing.T) {
	client := &scriptedClient{
		errs: map[model.Candidate]error{
			"a": apperrors.Permanent(apperrors.CodeModelUnavailable, "gone"),
		},
		replies: map[model.Candidate]string{"b": "ok"},
	}
	eng := newTestEngine(t, client, []model.Candidate{"a", "b"})
	st := session.NewState()

	eng.Respond(context.Background(), st, "one")
	eng.Respond(context.Background(), st, "two")

	snap := eng.Stats()
	assert.Equal(t, int64(2), snap.TurnCount)
	assert.Equal(t, int64(14), snap.TokenCount)
	assert.Equal(t, int64(2), snap.ExtraAttempts)
	assert.Equal(t, int64(0), snap.FallbackCount)
}
