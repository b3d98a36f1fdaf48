// Package model provides the candidate resolver and fallback cascade.
package model

import (
	"context"
	"log"
	"sync"
	"time"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Client is the generation and availability boundary.
	Client CompletionClient

	// Preferences is the ranked candidate list, highest priority first.
	// Must be non-empty.
	Preferences []Candidate

	// FallbackText is returned verbatim when every candidate fails.
	FallbackText string

	// AvailabilityTTL bounds how long a models listing is reused.
	// Zero or negative disables caching.
	AvailabilityTTL time.Duration

	// Now is the clock, replaceable under test. Nil means time.Now.
	Now func() time.Time
}

// Resolver picks which candidate to attempt for each generation request
// and retries down the preference list until one succeeds.
//
// Its contract is total availability: Generate never returns an error.
// Every failure below it (availability query, transport, auth, quota,
// invalid model) degrades to either "try the next candidate" or the
// fixed fallback text. A chat turn always produces something displayable.
type Resolver struct {
	client       CompletionClient
	preferences  []Candidate
	fallbackText string
	ttl          time.Duration
	now          func() time.Time

	// Availability cache: the only shared mutable state in the core.
	// Advisory; a stale listing only affects ordering, never the
	// non-empty guarantee of the trial order.
	mu        sync.Mutex
	available map[Candidate]bool
	fetchedAt time.Time
	haveCache bool
}

// NewResolver creates a resolver. The preference list is copied; it is
// immutable for the resolver's lifetime.
func NewResolver(cfg *ResolverConfig) *Resolver {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	prefs := make([]Candidate, len(cfg.Preferences))
	copy(prefs, cfg.Preferences)

	return &Resolver{
		client:       cfg.Client,
		preferences:  prefs,
		fallbackText: cfg.FallbackText,
		ttl:          cfg.AvailabilityTTL,
		now:          now,
	}
}

// Generate runs the fallback cascade for one request.
//
// Candidates are attempted strictly sequentially in trial order; each
// failure advances to the next without surfacing. Worst-case latency is
// bounded by (candidates × per-call timeout). Exhaustion returns the
// fallback text with no candidate attribution.
func (r *Resolver) Generate(ctx context.Context, messages []Message, temperature float64) Outcome {
	order := r.TrialOrder(r.availability(ctx))

	attempts := 0
	for _, candidate := range order {
		attempts++
		resp, err := r.client.Complete(ctx, &Request{
			Model:       candidate,
			Messages:    messages,
			Temperature: temperature,
		})
		if err != nil {
			log.Printf("model: candidate %q unusable: %v", candidate, err)
			continue
		}

		return Outcome{
			Text:       resp.Text,
			Candidate:  candidate,
			TokensUsed: resp.TokensUsed,
			Attempts:   attempts,
		}
	}

	return Outcome{
		Text:     r.fallbackText,
		Fallback: true,
		Attempts: attempts,
	}
}

// TrialOrder builds the attempt sequence for one request: the highest-
// priority preference present in the availability set first (if any),
// then the full preference list in original order, duplicates removed.
// For a non-empty preference list the result is never empty, whatever
// the availability set says.
func (r *Resolver) TrialOrder(available map[Candidate]bool) []Candidate {
	order := make([]Candidate, 0, len(r.preferences)+1)
	seen := make(map[Candidate]bool, len(r.preferences)+1)

	for _, pref := range r.preferences {
		if available[pref] {
			order = append(order, pref)
			seen[pref] = true
			break
		}
	}

	for _, pref := range r.preferences {
		if seen[pref] {
			continue
		}
		order = append(order, pref)
		seen[pref] = true
	}

	return order
}

// availability returns the current availability set, consulting the
// cache first. A failed or empty query is "no information": it yields
// nil and is cached like any other answer so a flapping endpoint is not
// hammered every turn.
func (r *Resolver) availability(ctx context.Context) map[Candidate]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.haveCache && r.ttl > 0 && r.now().Sub(r.fetchedAt) < r.ttl {
		return r.available
	}

	listed, err := r.client.ListModels(ctx)
	if err != nil {
		log.Printf("model: availability query failed: %v", err)
		listed = nil
	}

	var available map[Candidate]bool
	if len(listed) > 0 {
		available = make(map[Candidate]bool, len(listed))
		for _, c := range listed {
			available[c] = true
		}
	}

	r.available = available
	r.fetchedAt = r.now()
	r.haveCache = true
	return available
}

// InvalidateAvailability drops the cached listing so the next request
// queries the backend again.
func (r *Resolver) InvalidateAvailability() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.haveCache = false
	r.available = nil
}
