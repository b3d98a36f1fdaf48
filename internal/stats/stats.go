// Package stats provides per-session counters for Cocoro.
package stats

import "time"

// Collector tracks what happened across a session's turns.
type Collector struct {
	startTime     time.Time
	turnCount     int64
	tokenCount    int64
	fallbackCount int64
	extraAttempts int64 // candidate attempts beyond the first, per turn
	totalDuration int64 // nanoseconds
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
	}
}

// Stats is a point-in-time snapshot.
type Stats struct {
	Uptime        string  `json:"uptime"`
	TurnCount     int64   `json:"turn_count"`
	TokenCount    int64   `json:"token_count"`
	FallbackCount int64   `json:"fallback_count"`
	ExtraAttempts int64   `json:"extra_attempts"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

// RecordTurn records one completed turn.
func (c *Collector) RecordTurn(tokens, attempts int, fallback bool, duration time.Duration) {
	c.turnCount++
	c.tokenCount += int64(tokens)
	if attempts > 1 {
		c.extraAttempts += int64(attempts - 1)
	}
	if fallback {
		c.fallbackCount++
	}
	c.totalDuration += duration.Nanoseconds()
}

// Snapshot returns current statistics.
func (c *Collector) Snapshot() *Stats {
	avgLatency := float64(0)
	if c.turnCount > 0 {
		avgLatency = float64(c.totalDuration) / float64(c.turnCount) / 1e6
	}

	return &Stats{
		Uptime:        time.Since(c.startTime).String(),
		TurnCount:     c.turnCount,
		TokenCount:    c.tokenCount,
		FallbackCount: c.fallbackCount,
		ExtraAttempts: c.extraAttempts,
		AvgLatencyMs:  avgLatency,
	}
}
