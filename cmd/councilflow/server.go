package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/moltenlabs/councilflow/api/handlers"
	"github.com/moltenlabs/councilflow/config"
	"github.com/moltenlabs/councilflow/council"
	"github.com/moltenlabs/councilflow/internal/metrics"
	"github.com/moltenlabs/councilflow/internal/server"
	"github.com/moltenlabs/councilflow/internal/telemetry"
	"github.com/moltenlabs/councilflow/marketdata"
)

// =============================================================================
// 🖥️ Server wiring
// =============================================================================

// Server assembles the council engine and its HTTP surface.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	store  council.Store
	engine *council.Engine

	httpManager    *server.Manager
	metricsManager *server.Manager

	healthHandler  *handlers.HealthHandler
	councilHandler *handlers.CouncilHandler

	metricsCollector *metrics.Collector
	otelProviders    *telemetry.Providers

	rateLimiterCancel context.CancelFunc
}

// NewServer creates a server from config.
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// Start builds the engine, mounts the handlers, and starts the HTTP and
// metrics servers.
func (s *Server) Start() error {
	s.metricsCollector = metrics.NewCollector("councilflow", s.logger)

	if err := s.initEngine(); err != nil {
		return fmt.Errorf("failed to init engine: %w", err)
	}
	s.initHandlers()

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("store_backend", s.cfg.Store.Backend),
	)
	return nil
}

// initEngine wires the store backend, factory, analyzer, aggregator, and
// market data provider into the engine.
func (s *Server) initEngine() error {
	switch s.cfg.Store.Backend {
	case "redis":
		redisCfg := council.RedisStoreConfig{
			Addr:      s.cfg.Redis.Addr,
			Password:  s.cfg.Redis.Password,
			DB:        s.cfg.Redis.DB,
			PoolSize:  s.cfg.Redis.PoolSize,
			KeyPrefix: s.cfg.Redis.KeyPrefix,
			TTL:       s.cfg.Store.TTL,
		}
		store, err := council.NewRedisStore(redisCfg, s.logger)
		if err != nil {
			return err
		}
		s.store = store
	default:
		s.store = council.NewMemoryStore(council.MemoryStoreConfig{
			TTL:             s.cfg.Store.TTL,
			CleanupInterval: s.cfg.Store.CleanupInterval,
		}, s.logger)
	}

	var analyzer council.StageAnalyzer
	var analyzerOpts []council.FactoryOption
	var aggOpts []council.AggregatorOption
	if s.cfg.Council.Seed != 0 {
		analyzer = council.NewSeededAnalyzer(s.cfg.Council.Seed)
		analyzerOpts = append(analyzerOpts, council.WithFactorySeed(s.cfg.Council.Seed))
		aggOpts = append(aggOpts, council.WithAggregatorSeed(s.cfg.Council.Seed))
	} else {
		analyzer = council.NewRandomAnalyzer()
	}
	aggOpts = append(aggOpts, council.WithRatingMode(council.RatingMode(s.cfg.Council.RatingMode)))

	factoryOpts := append(analyzerOpts, council.WithBatchAnalysis(s.cfg.Council.BatchAnalysis))
	factory := council.NewFactory(s.store, analyzer, s.logger, factoryOpts...)
	aggregator := council.NewAggregator(s.logger, aggOpts...)
	provider := marketdata.NewStubProvider(s.logger)

	s.engine = council.NewEngine(s.store, factory, analyzer, aggregator, s.logger,
		council.WithProvider(provider),
		council.WithMetrics(s.metricsCollector),
	)
	return nil
}

// initHandlers creates the HTTP handlers.
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if redisStore, ok := s.store.(*council.RedisStore); ok {
		s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("redis", redisStore.Ping))
	}
	s.councilHandler = handlers.NewCouncilHandler(s.engine, s.metricsCollector, s.logger)
}

// startHTTPServer mounts the routes and starts the main server.
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	s.councilHandler.Register(mux)

	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	return s.httpManager.Start()
}

// startMetricsServer exposes /metrics on its own port.
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.DefaultConfig()
	serverConfig.Addr = fmt.Sprintf(":%d", s.cfg.Server.MetricsPort)
	serverConfig.ShutdownTimeout = s.cfg.Server.ShutdownTimeout

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger.With(zap.String("server", "metrics")))
	return s.metricsManager.Start()
}

// WaitForShutdown blocks until shutdown, then tears everything down.
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()

	ctx := context.Background()
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown failed", zap.Error(err))
		}
	}
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("store close failed", zap.Error(err))
		}
	}
	if err := s.otelProviders.Shutdown(ctx); err != nil {
		s.logger.Error("telemetry shutdown failed", zap.Error(err))
	}
}
