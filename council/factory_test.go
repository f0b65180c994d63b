package council

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltenlabs/councilflow/types"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(MemoryStoreConfig{}, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFactory_CreateCouncil(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	f := NewFactory(store, nil, nil)

	c, err := f.CreateCouncil(context.Background(), "BTC", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "BTC", c.Crypto)
	assert.Equal(t, types.StatusPending, c.Status)
	assert.Equal(t, 0, c.CurrentStage)
	require.Len(t, c.Stages, StageCount)
	for i, name := range StageNames() {
		assert.Equal(t, name, c.Stages[i].Name)
		assert.False(t, c.Stages[i].Completed)
		assert.Zero(t, c.Stages[i].Score)
	}

	// The council must be retrievable from the store.
	got, err := store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestFactory_PanelHasThreeDistinctRosterMembers(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	f := NewFactory(store, nil, nil)

	rosterNames := make(map[string]bool)
	for _, m := range Roster() {
		rosterNames[m.Name] = true
	}

	for i := 0; i < 50; i++ {
		c, err := f.CreateCouncil(context.Background(), "DOGE", nil)
		require.NoError(t, err)
		require.Len(t, c.Members, PanelSize)

		seen := make(map[string]bool, PanelSize)
		for _, m := range c.Members {
			assert.True(t, rosterNames[m.Name], "member %q not on roster", m.Name)
			assert.False(t, seen[m.Name], "duplicate member %q", m.Name)
			seen[m.Name] = true
		}
	}
}

func TestFactory_SeededPanelIsDeterministic(t *testing.T) {
	t.Parallel()

	panel := func() []types.Member {
		store := newTestStore(t)
		f := NewFactory(store, nil, nil, WithFactorySeed(7))
		c, err := f.CreateCouncil(context.Background(), "ETH", nil)
		require.NoError(t, err)
		return c.Members
	}

	assert.Equal(t, panel(), panel())
}

func TestFactory_BatchAnalysisPrefillsAllStages(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	f := NewFactory(store, NewSeededAnalyzer(99), nil, WithBatchAnalysis(true))

	c, err := f.CreateCouncil(context.Background(), "SOL", nil)
	require.NoError(t, err)

	// Batch mode fills every stage but leaves the pointer and status alone.
	assert.Equal(t, types.StatusPending, c.Status)
	assert.Equal(t, 0, c.CurrentStage)
	for i, name := range StageNames() {
		st := c.Stages[i]
		assert.True(t, st.Completed, "stage %q", name)
		r := stageRanges[name]
		assert.GreaterOrEqual(t, st.Score, r.lo, "stage %q", name)
		assert.Less(t, st.Score, r.hi, "stage %q", name)
		assert.NotEmpty(t, st.Analysis, "stage %q", name)
	}
}

func TestFactory_TokenDataCarriedOnCouncil(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	f := NewFactory(store, nil, nil)

	snap := &types.MarketSnapshot{Price: 42.5, Holders: 1000}
	c, err := f.CreateCouncil(context.Background(), "PEPE", snap)
	require.NoError(t, err)
	require.NotNil(t, c.TokenData)
	assert.Equal(t, 42.5, c.TokenData.Price)
	assert.Equal(t, int64(1000), c.TokenData.Holders)
}

func TestCommentFor_FallbackForUnknownMember(t *testing.T) {
	t.Parallel()

	for _, m := range Roster() {
		assert.NotEqual(t, fallbackComment, CommentFor(m.Name), "member %q should have a dedicated comment", m.Name)
	}
	assert.Equal(t, "Looking bullish!", CommentFor("Total Stranger"))
}
