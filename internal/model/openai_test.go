package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cocoro-ai/cocoro/internal/errors"
)

func newTestClient(baseURL string) *OpenAIClient {
	return NewOpenAIClient(&OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		MaxTokens:  100,
	})
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{
			"model": "gpt-4o",
			"choices": [{"message": {"role": "assistant", "content": "hi there [MODE:3]"}}],
			"usage": {"total_tokens": 42}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	resp, err := client.Complete(context.Background(), &Request{
		Model:       "gpt-4o",
		Messages:    []Message{{Role: RoleUser, Content: "hello"}},
		Temperature: 0.8,
	})

	require.NoError(t, err)
	assert.Equal(t, "hi there [MODE:3]", resp.Text)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, 42, resp.TokensUsed)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestCompleteStatusClassification(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		retryAfter   string
		wantCategory apperrors.Category
	}{
		{"rate limited", http.StatusTooManyRequests, "7", apperrors.CategoryRateLimit},
		{"unauthorized", http.StatusUnauthorized, "", apperrors.CategoryPermanent},
		{"forbidden", http.StatusForbidden, "", apperrors.CategoryPermanent},
		{"unknown model", http.StatusNotFound, "", apperrors.CategoryPermanent},
		{"bad request", http.StatusBadRequest, "", apperrors.CategoryPermanent},
		{"service unavailable", http.StatusServiceUnavailable, "", apperrors.CategoryTemporary},
		{"bad gateway", http.StatusBadGateway, "", apperrors.CategoryTemporary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := newTestClient(srv.URL)
			_, err := client.Complete(context.Background(), &Request{Model: "gpt-4o"})

			require.Error(t, err)
			assert.Equal(t, tt.wantCategory, apperrors.GetCategory(err))
			if tt.retryAfter != "" {
				assert.Equal(t, 7*time.Second, apperrors.GetRetryAfter(err))
			}
		})
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model": "gpt-4o", "choices": []}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Complete(context.Background(), &Request{Model: "gpt-4o"})

	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryPermanent, apperrors.GetCategory(err))
}

func TestCompleteRetriesTemporaryFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "recovered"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(&OpenAIConfig{
		APIKey:     "k",
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	})

	resp, err := client.Complete(context.Background(), &Request{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text)
	assert.Equal(t, 2, calls)
}

func TestCompleteDoesNotRetryPermanentFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewOpenAIClient(&OpenAIConfig{
		APIKey:     "k",
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 3,
	})

	_, err := client.Complete(context.Background(), &Request{Model: "gpt-4o"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"object": "list", "data": [{"id": "gpt-4o"}, {"id": "gpt-4o-mini"}, {"id": ""}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	models, err := client.ListModels(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []Candidate{"gpt-4o", "gpt-4o-mini"}, models)
}

func TestListModelsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ListModels(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryTemporary, apperrors.GetCategory(err))
}
