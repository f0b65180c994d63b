package format

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltenlabs/councilflow/council"
	"github.com/moltenlabs/councilflow/types"
)

func sampleReport() *types.VerdictReport {
	return &types.VerdictReport{
		CouncilID:      "c1",
		Crypto:         "BTC",
		AvgRating:      7.3333333,
		RatingScaleMax: 10,
		TechnicalScore: 81, FundamentalScore: 55, MemePotential: 92,
		RiskLevel: types.RiskLow,
		Sentiment: types.SentimentBullish,
		Narrative: "The council has spoken: BTC is strong.",
		Members: []types.MemberRating{
			{MemberName: "Sage Nakamoto", Expertise: "On-chain Analysis", Score: 8, Comment: "solid"},
			{MemberName: "Luna Delacroix", Expertise: "Social Sentiment", Score: 7, Comment: "vibes"},
			{MemberName: "Pixel Watanabe", Expertise: "Design and Art", Score: 7, Comment: "memes"},
		},
	}
}

func TestVerdict_ContainsAllSections(t *testing.T) {
	t.Parallel()

	text := Verdict(sampleReport())

	assert.Contains(t, text, "BTC")
	assert.Contains(t, text, "Overall Rating: 7.3/10") // one decimal
	assert.Contains(t, text, "Risk Level: LOW")
	assert.Contains(t, text, "The council has spoken: BTC is strong.")
	assert.Contains(t, text, "Technical: 81/100")

	// Exactly one score line per panel member.
	memberLines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "/10 —") {
			memberLines++
		}
	}
	assert.Equal(t, 3, memberLines)
}

func TestVerdict_MarketSnapshotSection(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	assert.NotContains(t, Verdict(r), "Market Snapshot")

	r.TokenData = &types.MarketSnapshot{Price: 12.3456, PriceChange24h: -4.2, MarketCap: 1000000}
	text := Verdict(r)
	assert.Contains(t, text, "Market Snapshot")
	assert.Contains(t, text, "$12.3456")
	assert.Contains(t, text, "-4.20%")
}

func TestStageAdvance_RendersStageAndDetails(t *testing.T) {
	t.Parallel()

	a := &council.StageAdvance{
		CouncilID:  "c1",
		Crypto:     "DOGE",
		StageIndex: 0,
		Stage: types.Stage{
			Name:      "On-chain Analysis",
			Completed: true,
			Score:     77,
			Analysis:  "On-chain Analysis looks solid.",
			Details: map[string]string{
				"transactions": "healthy",
				"github":       "active",
			},
		},
	}

	text := StageAdvance(a)
	assert.Contains(t, text, "Stage 1/5")
	assert.Contains(t, text, "On-chain Analysis")
	assert.Contains(t, text, "DOGE")
	assert.Contains(t, text, "Score: 77/100")
	// Detail lines are sorted by key for stable output.
	gi := strings.Index(text, "github: active")
	ti := strings.Index(text, "transactions: healthy")
	require.GreaterOrEqual(t, gi, 0)
	require.GreaterOrEqual(t, ti, 0)
	assert.Less(t, gi, ti)
	assert.NotContains(t, text, "All stages complete")
}

func TestStageAdvance_FinalSummary(t *testing.T) {
	t.Parallel()

	a := &council.StageAdvance{
		Crypto:       "DOGE",
		StageIndex:   4,
		Stage:        types.Stage{Name: "Value Proposition", Score: 60, Analysis: "ok"},
		Final:        true,
		AverageScore: 71.4,
	}

	text := StageAdvance(a)
	assert.Contains(t, text, "Stage 5/5")
	assert.Contains(t, text, "All stages complete")
	assert.Contains(t, text, "71.4/100")
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	t.Run("short text is a single unmarked chunk", func(t *testing.T) {
		chunks := Paginate("hello\nworld", 100)
		require.Len(t, chunks, 1)
		assert.Equal(t, "hello\nworld", chunks[0])
	})

	t.Run("splits on line boundaries with page markers", func(t *testing.T) {
		var lines []string
		for i := 0; i < 20; i++ {
			lines = append(lines, fmt.Sprintf("line number %02d", i))
		}
		text := strings.Join(lines, "\n")

		chunks := Paginate(text, 60)
		require.Greater(t, len(chunks), 1)

		for i, chunk := range chunks {
			assert.True(t, strings.HasSuffix(chunk, fmt.Sprintf("(%d/%d)", i+1, len(chunks))), "chunk %d: %q", i, chunk)
		}

		// Reassembling the chunks minus markers restores every line intact.
		var rebuilt []string
		for _, chunk := range chunks {
			body := chunk[:strings.LastIndex(chunk, "\n(")]
			rebuilt = append(rebuilt, strings.Split(body, "\n")...)
		}
		assert.Equal(t, lines, rebuilt)
	})

	t.Run("oversized single line is split hard", func(t *testing.T) {
		text := strings.Repeat("x", 250)
		chunks := Paginate(text, 100)
		require.Len(t, chunks, 3)
		for _, chunk := range chunks {
			body := chunk[:strings.LastIndex(chunk, "\n(")]
			assert.LessOrEqual(t, len(body), 100)
		}
	})

	t.Run("multi-byte runes survive hard splits", func(t *testing.T) {
		// Two runes per repeat, four and three bytes each: byte-indexed
		// splitting would land mid-rune and emit invalid UTF-8.
		text := strings.Repeat("🏛️", 80)
		chunks := Paginate(text, 50)
		require.Greater(t, len(chunks), 1)

		var rebuilt strings.Builder
		for _, chunk := range chunks {
			assert.True(t, utf8.ValidString(chunk), "chunk %q", chunk)
			body := chunk[:strings.LastIndex(chunk, "\n(")]
			assert.LessOrEqual(t, utf8.RuneCountInString(body), 50)
			rebuilt.WriteString(body)
		}
		assert.Equal(t, text, rebuilt.String())
	})

	t.Run("non-positive chunk size uses the default", func(t *testing.T) {
		text := strings.Repeat("a\n", 3)
		chunks := Paginate(text, 0)
		require.Len(t, chunks, 1)
	})
}

// End-to-end: run a real council through the engine and render the verdict.
func TestVerdict_EndToEndRender(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := council.NewMemoryStore(council.MemoryStoreConfig{}, nil)
	defer store.Close()

	analyzer := council.NewSeededAnalyzer(4)
	factory := council.NewFactory(store, analyzer, nil, council.WithFactorySeed(4))
	aggregator := council.NewAggregator(nil, council.WithAggregatorSeed(4))
	engine := council.NewEngine(store, factory, analyzer, aggregator, nil)

	c, err := engine.Rate(ctx, "BTC")
	require.NoError(t, err)
	require.True(t, engine.Confirm(ctx, c.ID))

	report, err := engine.CollectRatings(ctx, c.ID)
	require.NoError(t, err)

	text := Verdict(report)
	assert.Contains(t, text, "BTC")
	assert.Contains(t, text, fmt.Sprintf("Overall Rating: %.1f/10", report.AvgRating))

	// The narrative is one of the three canned templates.
	narratives := []string{
		council.NarrativeFor(types.SentimentBullish, "BTC"),
		council.NarrativeFor(types.SentimentNeutral, "BTC"),
		council.NarrativeFor(types.SentimentBearish, "BTC"),
	}
	assert.Contains(t, narratives, report.Narrative)

	// Exactly 3 per-member score lines.
	memberLines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "/10 —") {
			memberLines++
		}
	}
	assert.Equal(t, council.PanelSize, memberLines)
}
