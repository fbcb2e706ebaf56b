package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ReserveWithinLimit(t *testing.T) {
	tr := New(map[string]Limit{"scoring": {Calls: 2}})

	d1 := tr.Reserve("scoring", 0)
	require.True(t, d1.Allowed)
	assert.Equal(t, 1, d1.CallsRemaining)

	d2 := tr.Reserve("scoring", 0)
	assert.True(t, d2.Allowed)
	assert.Equal(t, 0, d2.CallsRemaining)
}

func TestTracker_ReserveExhausted(t *testing.T) {
	tr := New(map[string]Limit{"scoring": {Calls: 1}})

	require.True(t, tr.Reserve("scoring", 0).Allowed)
	d := tr.Reserve("scoring", 0)
	assert.False(t, d.Allowed)
	assert.True(t, tr.Exhausted("scoring"))
}

func TestTracker_SpendLimit(t *testing.T) {
	tr := New(map[string]Limit{"synthesis": {Spend: 1.0}})

	require.True(t, tr.Reserve("synthesis", 0.6).Allowed)
	d := tr.Reserve("synthesis", 0.6)
	assert.False(t, d.Allowed)
}

func TestTracker_UnlimitedCapability(t *testing.T) {
	tr := New(nil)
	for i := 0; i < 100; i++ {
		assert.True(t, tr.Reserve("feed-ingest", 0).Allowed)
	}
	assert.False(t, tr.Exhausted("feed-ingest"))
}

func TestTracker_Reset(t *testing.T) {
	tr := New(map[string]Limit{"search": {Calls: 1}})

	require.True(t, tr.Reserve("search", 0).Allowed)
	assert.True(t, tr.Exhausted("search"))

	tr.Reset()
	assert.False(t, tr.Exhausted("search"))
}

func TestTracker_Remaining(t *testing.T) {
	tr := New(map[string]Limit{
		"scoring":     {Calls: 2},
		"synthesis":   {Spend: 1.0},
		"feed-ingest": {},
	})

	require.True(t, tr.Reserve("scoring", 0).Allowed)

	remaining := tr.Remaining()
	assert.Equal(t, 1, remaining["scoring"])
	assert.NotContains(t, remaining, "synthesis", "spend-only limits have no call count")
	assert.NotContains(t, remaining, "feed-ingest", "unlimited capabilities are omitted")
}

func TestTracker_Remaining_AfterReset(t *testing.T) {
	tr := New(map[string]Limit{"scoring": {Calls: 2}})

	require.True(t, tr.Reserve("scoring", 0).Allowed)
	assert.Equal(t, 1, tr.Remaining()["scoring"])

	tr.Reset()
	assert.Equal(t, 2, tr.Remaining()["scoring"])
}
