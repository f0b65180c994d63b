package council

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Canonical stage names, in pipeline order.
const (
	StageOnChain = "On-chain Analysis"
	StageSocial  = "Social Sentiment"
	StageMarket  = "Market Insights"
	StageDesign  = "Design and Art"
	StageValue   = "Value Proposition"

	// StageCount is the length of the canonical stage sequence.
	StageCount = 5

	unknownStageMsg = "Analysis unavailable"
)

// StageNames returns the canonical stage sequence. The order is fixed and
// every council runs the stages in exactly this order.
func StageNames() []string {
	return []string{StageOnChain, StageSocial, StageMarket, StageDesign, StageValue}
}

// StageResult is the output of analyzing a single stage.
type StageResult struct {
	Score    int               `json:"score"`
	Analysis string            `json:"analysis"`
	Details  map[string]string `json:"details,omitempty"`
}

// StageAnalyzer produces a score and detail payload for a named stage.
// Implementations must be total over arbitrary stage names: an unknown
// name yields a zero-score sentinel result, never an error.
type StageAnalyzer interface {
	Analyze(ctx context.Context, stageName string) StageResult
}

// stageRange is the half-open score interval for one stage:
// score = lo + floor(random * (hi - lo)).
type stageRange struct {
	lo, hi int
}

var stageRanges = map[string]stageRange{
	StageOnChain: {60, 100},
	StageSocial:  {50, 100},
	StageMarket:  {40, 100},
	StageDesign:  {70, 100},
	StageValue:   {55, 100},
}

// RandomAnalyzer is the default StageAnalyzer: it draws scores uniformly
// from each stage's declared range and fills a fixed-shape detail payload
// per stage. It is safe for concurrent use.
type RandomAnalyzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomAnalyzer creates an analyzer seeded from the current time.
func NewRandomAnalyzer() *RandomAnalyzer {
	return NewSeededAnalyzer(time.Now().UnixNano())
}

// NewSeededAnalyzer creates an analyzer with a fixed seed, for
// deterministic tests.
func NewSeededAnalyzer(seed int64) *RandomAnalyzer {
	return &RandomAnalyzer{rng: rand.New(rand.NewSource(seed))}
}

// Analyze maps a stage name to a pseudo-random score within the stage's
// range plus its detail payload. Unknown stage names degrade to the
// zero-score sentinel so the progressive workflow stays total.
func (a *RandomAnalyzer) Analyze(_ context.Context, stageName string) StageResult {
	rng, ok := stageRanges[stageName]
	if !ok {
		return StageResult{Score: 0, Analysis: unknownStageMsg}
	}

	a.mu.Lock()
	score := rng.lo + a.rng.Intn(rng.hi-rng.lo)
	a.mu.Unlock()

	return StageResult{
		Score:    score,
		Analysis: stageAnalysisText(stageName, score),
		Details:  stageDetails(stageName),
	}
}

// stageAnalysisText renders the one-line narrative for a stage score.
func stageAnalysisText(stageName string, score int) string {
	switch {
	case score >= 85:
		return stageName + " looks exceptional."
	case score >= 70:
		return stageName + " looks solid."
	case score >= 55:
		return stageName + " shows mixed signals."
	default:
		return stageName + " raises concerns."
	}
}

// stageDetails returns the fixed-shape detail payload for a stage. The
// shape is keyed purely off the stage name.
func stageDetails(stageName string) map[string]string {
	switch stageName {
	case StageOnChain:
		return map[string]string{
			"github":       "Active development, regular commits",
			"transactions": "Healthy daily transaction volume",
		}
	case StageSocial:
		return map[string]string{
			"twitter":  "Growing mentions week over week",
			"telegram": "Engaged community, low spam ratio",
		}
	case StageMarket:
		return map[string]string{
			"volume": "Sustained 24h trading volume",
			"trend":  "Holding above key support levels",
		}
	case StageDesign:
		return map[string]string{
			"aesthetics":  "Coherent brand and visual identity",
			"memeability": "High shareability across platforms",
		}
	case StageValue:
		return map[string]string{
			"utility":    "Clear use case beyond speculation",
			"tokenomics": "Reasonable supply schedule",
		}
	default:
		return nil
	}
}

// AnalyzeAll runs the analyzer over the full canonical stage sequence and
// returns results in stage order. Stages are independent, so they fan out
// concurrently; the analyzer itself serializes its random draws.
func AnalyzeAll(ctx context.Context, analyzer StageAnalyzer) ([]StageResult, error) {
	names := StageNames()
	results := make([]StageResult, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			results[i] = analyzer.Analyze(ctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
