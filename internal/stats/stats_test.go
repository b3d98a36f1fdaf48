package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorEmpty(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot()

	assert.Zero(t, snap.TurnCount)
	assert.Zero(t, snap.FallbackCount)
	assert.Zero(t, snap.AvgLatencyMs)
}

func TestCollectorRecordTurn(t *testing.T) {
	c := NewCollector()

	c.RecordTurn(100, 1, false, 200*time.Millisecond)
	c.RecordTurn(50, 3, false, 400*time.Millisecond)
	c.RecordTurn(0, 2, true, 100*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.TurnCount)
	assert.Equal(t, int64(150), snap.TokenCount)
	assert.Equal(t, int64(1), snap.FallbackCount)
	assert.Equal(t, int64(3), snap.ExtraAttempts)
	assert.InDelta(t, 233.3, snap.AvgLatencyMs, 0.1)
}
