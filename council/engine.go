package council

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/moltenlabs/councilflow/internal/metrics"
	"github.com/moltenlabs/councilflow/marketdata"
	"github.com/moltenlabs/councilflow/types"
)

// Completion modes reported to metrics.
const (
	completionModeRatings     = "ratings"
	completionModeProgressive = "progressive"
)

// StageAdvance is the result of one progressive "next" trigger.
type StageAdvance struct {
	CouncilID  string      `json:"council_id"`
	Crypto     string      `json:"crypto"`
	Stage      types.Stage `json:"stage"`
	StageIndex int         `json:"stage_index"`

	// Final is set on the advance that exhausts the stage pipeline. The
	// council is complete at that point and AverageScore carries the mean
	// of all stage scores.
	Final        bool    `json:"final"`
	AverageScore float64 `json:"average_score,omitempty"`
}

// Engine is the trigger-driven façade over the council lifecycle: it wires
// the factory, store, analyzer, and aggregator into the operations the
// chat-intent layer invokes. All operations are id-addressed; the degraded
// no-id addressing of the trigger layer is provided separately via
// FirstByStatus.
type Engine struct {
	store      Store
	factory    *Factory
	analyzer   StageAnalyzer
	aggregator *Aggregator
	provider   marketdata.Provider
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithProvider sets the market data provider consulted at council creation.
func WithProvider(p marketdata.Provider) EngineOption {
	return func(e *Engine) { e.provider = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates the council engine.
func NewEngine(store Store, factory *Factory, analyzer StageAnalyzer, aggregator *Aggregator, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:      store,
		factory:    factory,
		analyzer:   analyzer,
		aggregator: aggregator,
		logger:     logger.With(zap.String("component", "council_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rate creates a new pending council for a crypto symbol, snapshotting
// market data if a provider is configured. The symbol is normalized to
// uppercase; an empty symbol is rejected.
func (e *Engine) Rate(ctx context.Context, crypto string) (*types.Council, error) {
	crypto = strings.ToUpper(strings.TrimSpace(crypto))
	if crypto == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "crypto symbol is required")
	}

	var tokenData *types.MarketSnapshot
	if e.provider != nil {
		snap, err := e.provider.Snapshot(ctx, crypto)
		if err != nil {
			// Market data is a best-effort enrichment; the council still
			// forms without it.
			e.logger.Warn("market data unavailable",
				zap.String("crypto", crypto),
				zap.Error(err),
			)
		} else {
			tokenData = snap
		}
	}

	c, err := e.factory.CreateCouncil(ctx, crypto, tokenData)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordCouncilCreated(crypto)
	}
	return c, nil
}

// Confirm transitions a pending council to active. Returns false when the
// council is missing or not pending; the caller treats that as a benign
// race, not a failure.
func (e *Engine) Confirm(ctx context.Context, id string) bool {
	_, ok := e.store.Confirm(ctx, id)
	if ok && e.metrics != nil {
		e.metrics.RecordCouncilConfirmed()
	}
	return ok
}

// Next advances the progressive pipeline by one stage: it analyzes the
// stage at the current pointer, records the result, and moves the pointer
// forward. The advance that exhausts the pipeline completes the council
// and carries the mean of all stage scores.
func (e *Engine) Next(ctx context.Context, id string) (*StageAdvance, error) {
	handle, err := e.store.Active(ctx, id)
	if err != nil {
		return nil, err
	}

	var advance StageAdvance
	err = handle.Mutate(ctx, func(c *types.Council) error {
		if c.CurrentStage >= len(c.Stages) {
			// Unreachable through the engine: the completing advance
			// already froze the council. Guarded for store fakes.
			return errNotActive(id, c.Status)
		}

		idx := c.CurrentStage
		result := e.analyzer.Analyze(ctx, c.Stages[idx].Name)

		c.Stages[idx].Score = result.Score
		c.Stages[idx].Analysis = result.Analysis
		c.Stages[idx].Details = result.Details
		c.Stages[idx].Completed = true
		c.CurrentStage++

		advance = StageAdvance{
			CouncilID:  c.ID,
			Crypto:     c.Crypto,
			Stage:      c.Stages[idx],
			StageIndex: idx,
		}

		if c.CurrentStage >= len(c.Stages) {
			advance.Final = true
			advance.AverageScore = meanStageScore(c.Stages)
			c.Analysis = fmt.Sprintf(
				"Stage analysis of %s complete. Average stage score: %.1f/100.",
				c.Crypto, advance.AverageScore,
			)
			c.Status = types.StatusComplete
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordStageScore(advance.Stage.Name, advance.Stage.Score)
		if advance.Final {
			e.metrics.RecordCouncilCompleted(completionModeProgressive)
		}
	}
	e.logger.Info("stage advanced",
		zap.String("council_id", advance.CouncilID),
		zap.String("stage", advance.Stage.Name),
		zap.Int("score", advance.Stage.Score),
		zap.Bool("final", advance.Final),
	)
	return &advance, nil
}

// CollectRatings runs the aggregator on an active council, completing it.
// Callable exactly once per council: the state guard rejects a second
// collection because the first flipped the status to complete.
func (e *Engine) CollectRatings(ctx context.Context, id string) (*types.VerdictReport, error) {
	handle, err := e.store.Active(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := e.aggregator.CollectRatings(ctx, handle)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordCouncilCompleted(completionModeRatings)
	}
	return report, nil
}

// Verdict reconstructs the structured report of a completed council from
// its frozen fields.
func (e *Engine) Verdict(ctx context.Context, id string) (*types.VerdictReport, error) {
	c, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != types.StatusComplete {
		return nil, types.NewError(types.ErrInvalidTransition,
			"council is "+string(c.Status)+", verdict requires complete state").WithCouncilID(id)
	}
	return ReportFromCouncil(c), nil
}

// Get returns a copy of a council by id.
func (e *Engine) Get(ctx context.Context, id string) (*types.Council, error) {
	return e.store.Get(ctx, id)
}

// ListByStatus returns all councils in a given state, in insertion order.
func (e *Engine) ListByStatus(ctx context.Context, status types.CouncilStatus) ([]*types.Council, error) {
	return e.store.ListByStatus(ctx, status)
}

// FirstByStatus returns the oldest council in a given state. This is the
// degraded no-id addressing mode used when a chat trigger arrives without
// a session id; it is ambiguous under concurrent sessions and kept only
// for that boundary.
func (e *Engine) FirstByStatus(ctx context.Context, status types.CouncilStatus) (*types.Council, error) {
	return e.store.FirstByStatus(ctx, status)
}

// ReportFromCouncil rebuilds a VerdictReport from a completed council's
// frozen fields. The rating scale is inferred from the stored scores.
func ReportFromCouncil(c *types.Council) *types.VerdictReport {
	scaleMax := 10
	total := 0
	members := make([]types.MemberRating, 0, len(c.Members))
	for _, m := range c.Members {
		r, ok := c.Ratings[m.Name]
		if !ok {
			continue
		}
		if r.Score > 10 {
			scaleMax = 100
		}
		total += r.Score
		members = append(members, types.MemberRating{
			MemberName: m.Name,
			Expertise:  m.Expertise,
			Score:      r.Score,
			Comment:    r.Comment,
		})
	}

	avg := 0.0
	if len(members) > 0 {
		avg = float64(total) / float64(len(members))
	}

	return &types.VerdictReport{
		CouncilID:        c.ID,
		Crypto:           c.Crypto,
		AvgRating:        avg,
		RatingScaleMax:   scaleMax,
		TechnicalScore:   c.TechnicalScore,
		FundamentalScore: c.FundamentalScore,
		MemePotential:    c.MemePotential,
		RiskLevel:        c.RiskLevel,
		Sentiment:        ClassifySentiment(avg, scaleMax),
		Narrative:        c.Analysis,
		Members:          members,
		TokenData:        c.TokenData,
	}
}

// meanStageScore computes the arithmetic mean of all stage scores.
func meanStageScore(stages []types.Stage) float64 {
	if len(stages) == 0 {
		return 0
	}
	total := 0
	for _, s := range stages {
		total += s.Score
	}
	return float64(total) / float64(len(stages))
}
