// Package marketdata supplies token market snapshots to the council
// engine. The engine stores a snapshot verbatim at council creation and
// never refreshes it.
package marketdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moltenlabs/councilflow/types"
)

// Provider fetches a point-in-time market snapshot for a crypto symbol.
// A production implementation would call a real price feed; the default
// is the random-value stub below.
type Provider interface {
	Snapshot(ctx context.Context, crypto string) (*types.MarketSnapshot, error)
}

// StubProvider generates plausible random market data. All fields are
// non-negative except PriceChange24h, which is drawn from a signed range.
// Safe for concurrent use.
type StubProvider struct {
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewStubProvider creates a stub provider seeded from the current time.
func NewStubProvider(logger *zap.Logger) *StubProvider {
	return NewSeededStubProvider(time.Now().UnixNano(), logger)
}

// NewSeededStubProvider creates a stub provider with a fixed seed, for
// deterministic tests.
func NewSeededStubProvider(seed int64, logger *zap.Logger) *StubProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubProvider{
		logger: logger.With(zap.String("component", "marketdata_stub")),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Snapshot returns a freshly generated random snapshot.
func (p *StubProvider) Snapshot(_ context.Context, crypto string) (*types.MarketSnapshot, error) {
	p.mu.Lock()
	snap := &types.MarketSnapshot{
		Price:          p.rng.Float64() * 1000,
		Volume24h:      p.rng.Float64() * 10_000_000,
		MarketCap:      p.rng.Float64() * 1_000_000_000,
		PriceChange24h: p.rng.Float64()*40 - 20,
		Holders:        int64(p.rng.Intn(500_000)),
		LiquidityUSD:   p.rng.Float64() * 5_000_000,
	}
	p.mu.Unlock()

	p.logger.Debug("snapshot generated",
		zap.String("crypto", crypto),
		zap.Float64("price", snap.Price),
	)
	return snap, nil
}

// Ensure StubProvider implements Provider.
var _ Provider = (*StubProvider)(nil)
