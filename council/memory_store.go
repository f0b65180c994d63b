package council

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moltenlabs/councilflow/types"
)

// MemoryStoreConfig holds configuration for the in-memory store.
type MemoryStoreConfig struct {
	// TTL is how long a council is retained after creation. Zero disables
	// eviction entirely, which leaks memory on a long-running host.
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// CleanupInterval is how often the eviction loop scans for expired
	// councils.
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// DefaultMemoryStoreConfig returns a MemoryStoreConfig with sensible defaults.
func DefaultMemoryStoreConfig() MemoryStoreConfig {
	return MemoryStoreConfig{
		TTL:             24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// entry wraps one stored council with its per-council mutation lock.
type entry struct {
	mu      sync.Mutex
	council *types.Council
}

// MemoryStore is a Store backed by an in-memory map. It supports
// concurrent readers with a single writer per council and preserves
// insertion order for status listings.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]*entry
	order  []string // ids in insertion order
	config MemoryStoreConfig
	logger *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates an in-memory council store and starts its
// eviction loop when a TTL is configured.
func NewMemoryStore(config MemoryStoreConfig, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemoryStore{
		items:  make(map[string]*entry),
		config: config,
		logger: logger.With(zap.String("component", "memory_store")),
		done:   make(chan struct{}),
	}
	if config.TTL > 0 && config.CleanupInterval > 0 {
		go s.evictionLoop()
	}
	return s
}

// Create inserts a new council.
func (s *MemoryStore) Create(_ context.Context, c *types.Council) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[c.ID]; exists {
		return types.NewError(types.ErrDuplicateID, "council id already registered").WithCouncilID(c.ID)
	}
	s.items[c.ID] = &entry{council: c.Clone()}
	s.order = append(s.order, c.ID)

	s.logger.Debug("council stored",
		zap.String("council_id", c.ID),
		zap.String("crypto", c.Crypto),
	)
	return nil
}

// Get returns a copy of the council.
func (s *MemoryStore) Get(_ context.Context, id string) (*types.Council, error) {
	s.mu.RLock()
	e, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errNotFound(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.council.Clone(), nil
}

// Confirm transitions a pending council to active. Guarded no-op outside
// the pending state.
func (s *MemoryStore) Confirm(_ context.Context, id string) (ActiveCouncil, bool) {
	s.mu.RLock()
	e, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.council.Status != types.StatusPending {
		return nil, false
	}
	e.council.Status = types.StatusActive

	s.logger.Info("council confirmed", zap.String("council_id", id))
	return &memoryHandle{store: s, id: id}, true
}

// Active returns a mutation handle for an already-active council.
func (s *MemoryStore) Active(_ context.Context, id string) (ActiveCouncil, error) {
	s.mu.RLock()
	e, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errNotFound(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.council.Status != types.StatusActive {
		return nil, errNotActive(id, e.council.Status)
	}
	return &memoryHandle{store: s, id: id}, nil
}

// ListByStatus returns all councils in the given state, in insertion order.
func (s *MemoryStore) ListByStatus(_ context.Context, status types.CouncilStatus) ([]*types.Council, error) {
	s.mu.RLock()
	order := make([]string, len(s.order))
	copy(order, s.order)
	s.mu.RUnlock()

	var result []*types.Council
	for _, id := range order {
		s.mu.RLock()
		e, ok := s.items[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		e.mu.Lock()
		if e.council.Status == status {
			result = append(result, e.council.Clone())
		}
		e.mu.Unlock()
	}
	return result, nil
}

// FirstByStatus returns the oldest council in the given state.
func (s *MemoryStore) FirstByStatus(ctx context.Context, status types.CouncilStatus) (*types.Council, error) {
	all, err := s.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, types.NewError(types.ErrNotFound, "no council in state "+string(status))
	}
	return all[0], nil
}

// Close stops the eviction loop.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// evictionLoop periodically removes councils older than the configured TTL.
func (s *MemoryStore) evictionLoop() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired(time.Now())
		}
	}
}

// evictExpired removes councils created before now - TTL.
func (s *MemoryStore) evictExpired(now time.Time) {
	cutoff := now.Add(-s.config.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	evicted := 0
	for _, id := range s.order {
		e, ok := s.items[id]
		if ok {
			// The council pointer is swapped under e.mu by Mutate, so the
			// expiry check must hold it too. Handle holders never take
			// s.mu, so the nested acquisition cannot deadlock.
			e.mu.Lock()
			expired := e.council.CreatedAt.Before(cutoff)
			e.mu.Unlock()
			if expired {
				delete(s.items, id)
				evicted++
				continue
			}
		}
		kept = append(kept, id)
	}
	s.order = kept

	if evicted > 0 {
		s.logger.Info("evicted expired councils", zap.Int("count", evicted))
	}
}

// memoryHandle is the ActiveCouncil handle for MemoryStore.
type memoryHandle struct {
	store *MemoryStore
	id    string
}

func (h *memoryHandle) ID() string { return h.id }

func (h *memoryHandle) Snapshot(ctx context.Context) (*types.Council, error) {
	return h.store.Get(ctx, h.id)
}

func (h *memoryHandle) Mutate(_ context.Context, fn func(c *types.Council) error) error {
	h.store.mu.RLock()
	e, ok := h.store.items[h.id]
	h.store.mu.RUnlock()
	if !ok {
		return errNotFound(h.id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.council.Status != types.StatusActive {
		return errNotActive(h.id, e.council.Status)
	}

	// Work on a clone so a failed mutation commits nothing.
	clone := e.council.Clone()
	if err := fn(clone); err != nil {
		return err
	}
	e.council = clone
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
