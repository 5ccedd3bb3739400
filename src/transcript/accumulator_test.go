package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorFlushResets(t *testing.T) {
	acc := NewAccumulator()
	assert.True(t, acc.IsEmpty())

	acc.PushSQL("Generated SQL", "SELECT 1")
	acc.PushDataframe("Query result", []string{"a"}, [][]any{{1}, {2}})
	assert.False(t, acc.IsEmpty())

	group := acc.Flush()
	assert.True(t, acc.IsEmpty())
	require.Len(t, group.SQLs, 1)
	require.Len(t, group.Dataframes, 1)
	assert.Empty(t, group.Charts)
	assert.NotEmpty(t, group.ID)

	// A second flush yields a fresh, unrelated group.
	acc.PushSQL("Generated SQL", "SELECT 2")
	next := acc.Flush()
	assert.NotEqual(t, group.ID, next.ID)
}

func TestAccumulatorAssignsUniqueAssetIDs(t *testing.T) {
	acc := NewAccumulator()
	acc.PushSQL("a", "SELECT 1")
	acc.PushSQL("b", "SELECT 2")
	acc.PushChart(ChartAsset{Title: "Chart"})

	group := acc.Flush()
	seen := map[string]bool{group.ID: true}
	for _, s := range group.SQLs {
		assert.False(t, seen[s.ID])
		seen[s.ID] = true
	}
	for _, c := range group.Charts {
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
	}
}
