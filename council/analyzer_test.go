package council

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRandomAnalyzer_ScoresStayInStageRange(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		stage := rapid.SampledFrom(StageNames()).Draw(t, "stage")

		a := NewSeededAnalyzer(seed)
		result := a.Analyze(context.Background(), stage)

		r := stageRanges[stage]
		if result.Score < r.lo || result.Score >= r.hi {
			t.Fatalf("stage %q: score %d outside [%d, %d)", stage, result.Score, r.lo, r.hi)
		}
		if result.Analysis == "" {
			t.Fatalf("stage %q: empty analysis text", stage)
		}
		if len(result.Details) == 0 {
			t.Fatalf("stage %q: missing detail payload", stage)
		}
	})
}

func TestRandomAnalyzer_UnknownStageSentinel(t *testing.T) {
	t.Parallel()

	a := NewRandomAnalyzer()
	for _, name := range []string{"", "Quantum Vibes", "on-chain analysis"} {
		result := a.Analyze(context.Background(), name)
		assert.Equal(t, 0, result.Score, "stage %q", name)
		assert.Equal(t, "Analysis unavailable", result.Analysis, "stage %q", name)
		assert.Nil(t, result.Details, "stage %q", name)
	}
}

func TestRandomAnalyzer_DetailShapeIsFixedPerStage(t *testing.T) {
	t.Parallel()

	a := NewSeededAnalyzer(1)
	wantKeys := map[string][]string{
		StageOnChain: {"github", "transactions"},
		StageSocial:  {"twitter", "telegram"},
		StageMarket:  {"volume", "trend"},
		StageDesign:  {"aesthetics", "memeability"},
		StageValue:   {"utility", "tokenomics"},
	}
	for stage, keys := range wantKeys {
		result := a.Analyze(context.Background(), stage)
		require.Len(t, result.Details, len(keys), "stage %q", stage)
		for _, k := range keys {
			assert.Contains(t, result.Details, k, "stage %q", stage)
		}
	}
}

func TestAnalyzeAll_CoversEveryStageInOrder(t *testing.T) {
	t.Parallel()

	results, err := AnalyzeAll(context.Background(), NewSeededAnalyzer(42))
	require.NoError(t, err)
	require.Len(t, results, StageCount)

	for i, name := range StageNames() {
		r := stageRanges[name]
		assert.GreaterOrEqual(t, results[i].Score, r.lo, "stage %q", name)
		assert.Less(t, results[i].Score, r.hi, "stage %q", name)
	}
}

func TestStageNames_CanonicalOrder(t *testing.T) {
	t.Parallel()

	want := []string{
		"On-chain Analysis",
		"Social Sentiment",
		"Market Insights",
		"Design and Art",
		"Value Proposition",
	}
	assert.Equal(t, want, StageNames())
}
