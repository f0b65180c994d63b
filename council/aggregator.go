package council

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moltenlabs/councilflow/types"
)

// RatingMode selects the scale used for per-member scores.
type RatingMode string

const (
	// RatingModeQuick draws per-member scores on the 1–10 scale.
	RatingModeQuick RatingMode = "quick"

	// RatingModeAnalysis draws per-member scores on the 60–100 scale.
	RatingModeAnalysis RatingMode = "analysis"
)

// Narrative templates, one per sentiment band. The %s placeholder is the
// crypto symbol.
const (
	narrativeBullish = "The council has spoken: %s is showing serious strength across the board. " +
		"On-chain activity is humming, the community is fired up, and the fundamentals " +
		"back up the hype. The panel sees room to run from here."

	narrativeNeutral = "The council is split on %s. There are genuine bright spots in the data, " +
		"but just as many open questions. This one could break either way, and the panel " +
		"recommends watching how the next few weeks develop before committing."

	narrativeBearish = "The council urges caution on %s. Weak signals across the analysis stages, " +
		"a cooling community, and shaky fundamentals all point the same direction. The panel " +
		"would want to see real improvement before revisiting this verdict."
)

// Aggregator reduces an active council into a final verdict: per-member
// ratings, the three independent 0–100 axis scores, risk and sentiment
// classification, and the narrative. Collecting ratings completes the
// council; the state guard in the store prevents a second collection.
type Aggregator struct {
	mode   RatingMode
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithRatingMode sets the per-member rating scale.
func WithRatingMode(mode RatingMode) AggregatorOption {
	return func(a *Aggregator) { a.mode = mode }
}

// WithAggregatorSeed fixes the RNG seed, for deterministic tests.
func WithAggregatorSeed(seed int64) AggregatorOption {
	return func(a *Aggregator) { a.rng = rand.New(rand.NewSource(seed)) }
}

// NewAggregator creates a rating aggregator. The default mode is quick
// (1–10 per-member scores).
func NewAggregator(logger *zap.Logger, opts ...AggregatorOption) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		mode:   RatingModeQuick,
		logger: logger.With(zap.String("component", "rating_aggregator")),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// scaleMax returns the upper bound of the active per-member scale.
func (a *Aggregator) scaleMax() int {
	if a.mode == RatingModeAnalysis {
		return 100
	}
	return 10
}

// drawMemberScore draws one per-member score on the active scale.
func (a *Aggregator) drawMemberScore() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == RatingModeAnalysis {
		return 60 + a.rng.Intn(40)
	}
	return 1 + a.rng.Intn(10)
}

// drawAxisScore draws one independent 0–100 axis score.
func (a *Aggregator) drawAxisScore() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(100)
}

// CollectRatings generates the per-member ratings and axis scores for an
// active council, classifies risk and sentiment, writes the final
// narrative, and completes the council. All score and analysis fields are
// frozen afterward.
func (a *Aggregator) CollectRatings(ctx context.Context, handle ActiveCouncil) (*types.VerdictReport, error) {
	var report *types.VerdictReport

	err := handle.Mutate(ctx, func(c *types.Council) error {
		if c.Ratings == nil {
			c.Ratings = make(map[string]types.Rating, len(c.Members))
		}

		total := 0
		members := make([]types.MemberRating, 0, len(c.Members))
		for _, m := range c.Members {
			score := a.drawMemberScore()
			total += score
			rating := types.Rating{
				MemberName: m.Name,
				Score:      score,
				Comment:    CommentFor(m.Name),
			}
			c.Ratings[m.Name] = rating
			members = append(members, types.MemberRating{
				MemberName: m.Name,
				Expertise:  m.Expertise,
				Score:      score,
				Comment:    rating.Comment,
			})
		}
		avg := float64(total) / float64(len(c.Members))

		// The three axis scores are an independent dimension of the
		// verdict, not derived from the member ratings.
		c.TechnicalScore = a.drawAxisScore()
		c.FundamentalScore = a.drawAxisScore()
		c.MemePotential = a.drawAxisScore()

		risk := ClassifyRisk(avg, a.scaleMax())
		sentiment := ClassifySentiment(avg, a.scaleMax())

		c.RiskLevel = risk
		c.Analysis = NarrativeFor(sentiment, c.Crypto)
		c.Status = types.StatusComplete

		report = &types.VerdictReport{
			CouncilID:        c.ID,
			Crypto:           c.Crypto,
			AvgRating:        avg,
			RatingScaleMax:   a.scaleMax(),
			TechnicalScore:   c.TechnicalScore,
			FundamentalScore: c.FundamentalScore,
			MemePotential:    c.MemePotential,
			RiskLevel:        risk,
			Sentiment:        sentiment,
			Narrative:        c.Analysis,
			Members:          members,
			TokenData:        c.TokenData,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("ratings collected",
		zap.String("council_id", report.CouncilID),
		zap.String("crypto", report.Crypto),
		zap.Float64("avg_rating", report.AvgRating),
		zap.String("risk_level", string(report.RiskLevel)),
		zap.String("sentiment", string(report.Sentiment)),
	)
	return report, nil
}

// ClassifyRisk maps an average rating to a risk level. Thresholds are
// defined on the 1–10 scale; scores on other scales are normalized first.
// The comparison is strict: an average of exactly 7 is medium risk.
func ClassifyRisk(avg float64, scaleMax int) types.RiskLevel {
	norm := normalizeToTen(avg, scaleMax)
	switch {
	case norm > 7:
		return types.RiskLow
	case norm > 4:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}

// ClassifySentiment maps an average rating to a narrative band. Unlike
// risk, the thresholds are inclusive: an average of exactly 7 is bullish
// even though it is medium risk.
func ClassifySentiment(avg float64, scaleMax int) types.Sentiment {
	norm := normalizeToTen(avg, scaleMax)
	switch {
	case norm >= 7:
		return types.SentimentBullish
	case norm >= 4:
		return types.SentimentNeutral
	default:
		return types.SentimentBearish
	}
}

// normalizeToTen converts an average on an arbitrary max scale to the
// 1–10 classification scale.
func normalizeToTen(avg float64, scaleMax int) float64 {
	if scaleMax == 10 || scaleMax <= 0 {
		return avg
	}
	return avg * 10 / float64(scaleMax)
}

// NarrativeFor renders the canned narrative for a sentiment band with the
// crypto symbol substituted.
func NarrativeFor(sentiment types.Sentiment, crypto string) string {
	switch sentiment {
	case types.SentimentBullish:
		return fmt.Sprintf(narrativeBullish, crypto)
	case types.SentimentBearish:
		return fmt.Sprintf(narrativeBearish, crypto)
	default:
		return fmt.Sprintf(narrativeNeutral, crypto)
	}
}
