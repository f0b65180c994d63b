package council

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltenlabs/councilflow/types"
)

// Factory creates council sessions and registers them in the store.
type Factory struct {
	store    Store
	analyzer StageAnalyzer
	logger   *zap.Logger

	// batchAnalysis pre-fills all five stage results at creation time.
	// The stage pointer stays at 0 either way.
	batchAnalysis bool

	mu  sync.Mutex
	rng *rand.Rand
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithBatchAnalysis enables running the full stage pipeline at creation.
func WithBatchAnalysis(enabled bool) FactoryOption {
	return func(f *Factory) { f.batchAnalysis = enabled }
}

// WithFactorySeed fixes the panel-selection RNG seed, for deterministic tests.
func WithFactorySeed(seed int64) FactoryOption {
	return func(f *Factory) { f.rng = rand.New(rand.NewSource(seed)) }
}

// NewFactory creates a council factory. The analyzer is only consulted when
// batch analysis is enabled.
func NewFactory(store Store, analyzer StageAnalyzer, logger *zap.Logger, opts ...FactoryOption) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{
		store:    store,
		analyzer: analyzer,
		logger:   logger.With(zap.String("component", "council_factory")),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCouncil creates a new pending council for a crypto symbol and
// registers it in the store. The symbol is assumed pre-validated by the
// caller (non-empty uppercase ticker). tokenData may be nil.
func (f *Factory) CreateCouncil(ctx context.Context, crypto string, tokenData *types.MarketSnapshot) (*types.Council, error) {
	c := &types.Council{
		ID:           uuid.NewString(),
		Crypto:       crypto,
		Members:      f.drawPanel(),
		Status:       types.StatusPending,
		Stages:       newStages(),
		CurrentStage: 0,
		Ratings:      make(map[string]types.Rating),
		TokenData:    tokenData,
		CreatedAt:    time.Now(),
	}

	if f.batchAnalysis && f.analyzer != nil {
		results, err := AnalyzeAll(ctx, f.analyzer)
		if err != nil {
			return nil, types.NewError(types.ErrInternalError, "batch stage analysis failed").WithCause(err)
		}
		for i := range c.Stages {
			c.Stages[i].Score = results[i].Score
			c.Stages[i].Analysis = results[i].Analysis
			c.Stages[i].Details = results[i].Details
			c.Stages[i].Completed = true
		}
	}

	if err := f.store.Create(ctx, c); err != nil {
		return nil, err
	}

	f.logger.Info("council created",
		zap.String("council_id", c.ID),
		zap.String("crypto", c.Crypto),
		zap.Bool("batch_analysis", f.batchAnalysis),
	)
	return c, nil
}

// drawPanel selects PanelSize distinct members from the roster via an
// unbiased random permutation, taking the first PanelSize entries.
func (f *Factory) drawPanel() []types.Member {
	roster := Roster()

	f.mu.Lock()
	perm := f.rng.Perm(len(roster))
	f.mu.Unlock()

	panel := make([]types.Member, 0, PanelSize)
	for _, idx := range perm[:PanelSize] {
		panel = append(panel, roster[idx])
	}
	return panel
}

// newStages initializes the five canonical stages with zeroed scores.
func newStages() []types.Stage {
	names := StageNames()
	stages := make([]types.Stage, len(names))
	for i, name := range names {
		stages[i] = types.Stage{Name: name}
	}
	return stages
}
