package council

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/moltenlabs/councilflow/types"
)

// RedisStoreConfig holds configuration for the Redis-backed store.
type RedisStoreConfig struct {
	// Addr is the Redis server address.
	Addr string `yaml:"addr" json:"addr"`

	// Password is the Redis password, empty when unauthenticated.
	Password string `yaml:"password" json:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db" json:"db"`

	// PoolSize is the connection pool size.
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// KeyPrefix namespaces all keys written by the store.
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// TTL is how long a council key is retained. Zero disables expiry.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// DefaultRedisStoreConfig returns a RedisStoreConfig with sensible defaults.
func DefaultRedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{
		Addr:      "localhost:6379",
		DB:        0,
		PoolSize:  10,
		KeyPrefix: "councilflow",
		TTL:       24 * time.Hour,
	}
}

// RedisStore is a Store backed by Redis. Councils are stored as JSON
// values; per-status sorted sets scored by creation time preserve
// insertion order for listings. Key expiry implements eviction.
//
// Cross-process mutation is not coordinated: per-council writes are
// serialized with in-process locks, matching the single-writer model of
// the engine.
type RedisStore struct {
	client *redis.Client
	config RedisStoreConfig
	logger *zap.Logger

	// locks holds one mutex per council id for read-modify-write cycles.
	locks sync.Map // map[string]*sync.Mutex
}

// NewRedisStore creates a Redis-backed council store and verifies the
// connection.
func NewRedisStore(config RedisStoreConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, types.NewError(types.ErrStoreClosed, "failed to connect to redis").WithCause(err)
	}

	s := &RedisStore{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "redis_store")),
	}
	s.logger.Info("redis store initialized",
		zap.String("addr", config.Addr),
		zap.Duration("ttl", config.TTL),
	)
	return s, nil
}

// Ping checks the Redis connection, for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) councilKey(id string) string {
	return s.config.KeyPrefix + ":council:" + id
}

func (s *RedisStore) statusKey(status types.CouncilStatus) string {
	return s.config.KeyPrefix + ":status:" + string(status)
}

// lockFor returns the per-council mutex, creating it on first use.
func (s *RedisStore) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// load fetches and decodes a council, returning NOT_FOUND for missing keys.
func (s *RedisStore) load(ctx context.Context, id string) (*types.Council, error) {
	data, err := s.client.Get(ctx, s.councilKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "redis get failed").WithCause(err).WithCouncilID(id)
	}
	var c types.Council
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to decode council").WithCause(err).WithCouncilID(id)
	}
	return &c, nil
}

// save encodes and writes a council, refreshing its TTL.
func (s *RedisStore) save(ctx context.Context, c *types.Council) error {
	data, err := json.Marshal(c)
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to encode council").WithCause(err).WithCouncilID(c.ID)
	}
	if err := s.client.Set(ctx, s.councilKey(c.ID), data, s.config.TTL).Err(); err != nil {
		return types.NewError(types.ErrInternalError, "redis set failed").WithCause(err).WithCouncilID(c.ID)
	}
	return nil
}

// moveStatus reindexes a council between per-status sorted sets.
func (s *RedisStore) moveStatus(ctx context.Context, c *types.Council, from, to types.CouncilStatus) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, s.statusKey(from), c.ID)
	pipe.ZAdd(ctx, s.statusKey(to), redis.Z{
		Score:  float64(c.CreatedAt.UnixNano()),
		Member: c.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return types.NewError(types.ErrInternalError, "redis status reindex failed").WithCause(err).WithCouncilID(c.ID)
	}
	return nil
}

// Create inserts a new council.
func (s *RedisStore) Create(ctx context.Context, c *types.Council) error {
	data, err := json.Marshal(c)
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to encode council").WithCause(err).WithCouncilID(c.ID)
	}

	ok, err := s.client.SetNX(ctx, s.councilKey(c.ID), data, s.config.TTL).Result()
	if err != nil {
		return types.NewError(types.ErrInternalError, "redis setnx failed").WithCause(err).WithCouncilID(c.ID)
	}
	if !ok {
		return types.NewError(types.ErrDuplicateID, "council id already registered").WithCouncilID(c.ID)
	}

	err = s.client.ZAdd(ctx, s.statusKey(c.Status), redis.Z{
		Score:  float64(c.CreatedAt.UnixNano()),
		Member: c.ID,
	}).Err()
	if err != nil {
		return types.NewError(types.ErrInternalError, "redis status index failed").WithCause(err).WithCouncilID(c.ID)
	}

	s.logger.Debug("council stored",
		zap.String("council_id", c.ID),
		zap.String("crypto", c.Crypto),
	)
	return nil
}

// Get returns a copy of the council.
func (s *RedisStore) Get(ctx context.Context, id string) (*types.Council, error) {
	return s.load(ctx, id)
}

// Confirm transitions a pending council to active. Guarded no-op outside
// the pending state.
func (s *RedisStore) Confirm(ctx context.Context, id string) (ActiveCouncil, bool) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, false
	}
	if c.Status != types.StatusPending {
		return nil, false
	}

	c.Status = types.StatusActive
	if err := s.save(ctx, c); err != nil {
		s.logger.Error("confirm write failed", zap.String("council_id", id), zap.Error(err))
		return nil, false
	}
	if err := s.moveStatus(ctx, c, types.StatusPending, types.StatusActive); err != nil {
		s.logger.Error("confirm reindex failed", zap.String("council_id", id), zap.Error(err))
	}

	s.logger.Info("council confirmed", zap.String("council_id", id))
	return &redisHandle{store: s, id: id}, true
}

// Active returns a mutation handle for an already-active council.
func (s *RedisStore) Active(ctx context.Context, id string) (ActiveCouncil, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != types.StatusActive {
		return nil, errNotActive(id, c.Status)
	}
	return &redisHandle{store: s, id: id}, nil
}

// ListByStatus returns all councils in the given state, in insertion order.
// Ids whose council key has expired are pruned from the index lazily.
func (s *RedisStore) ListByStatus(ctx context.Context, status types.CouncilStatus) ([]*types.Council, error) {
	ids, err := s.client.ZRange(ctx, s.statusKey(status), 0, -1).Result()
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "redis zrange failed").WithCause(err)
	}

	var result []*types.Council
	for _, id := range ids {
		c, err := s.load(ctx, id)
		if types.IsCode(err, types.ErrNotFound) {
			// Key expired; drop the stale index entry.
			s.client.ZRem(ctx, s.statusKey(status), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.Status == status {
			result = append(result, c)
		}
	}
	return result, nil
}

// FirstByStatus returns the oldest council in the given state.
func (s *RedisStore) FirstByStatus(ctx context.Context, status types.CouncilStatus) (*types.Council, error) {
	all, err := s.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, types.NewError(types.ErrNotFound, "no council in state "+string(status))
	}
	return all[0], nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	s.logger.Info("closing redis store")
	return s.client.Close()
}

// redisHandle is the ActiveCouncil handle for RedisStore.
type redisHandle struct {
	store *RedisStore
	id    string
}

func (h *redisHandle) ID() string { return h.id }

func (h *redisHandle) Snapshot(ctx context.Context) (*types.Council, error) {
	return h.store.load(ctx, h.id)
}

func (h *redisHandle) Mutate(ctx context.Context, fn func(c *types.Council) error) error {
	mu := h.store.lockFor(h.id)
	mu.Lock()
	defer mu.Unlock()

	c, err := h.store.load(ctx, h.id)
	if err != nil {
		return err
	}
	if c.Status != types.StatusActive {
		return errNotActive(h.id, c.Status)
	}

	before := c.Status
	if err := fn(c); err != nil {
		return err
	}
	if err := h.store.save(ctx, c); err != nil {
		return err
	}
	if c.Status != before {
		if err := h.store.moveStatus(ctx, c, before, c.Status); err != nil {
			return err
		}
	}
	return nil
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
