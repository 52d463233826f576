package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/api"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/config"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/events"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/llm"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/metrics"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/report"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/repository"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/service"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/session"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database (session records, transcripts, summaries, bookings, psychiatrists)
	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	repos := service.NewRepositories(db)
	if n, err := repos.Psychiatrists.Seed(ctx, repository.DefaultPsychiatrists); err != nil {
		logger.Fatal("Failed to seed psychiatrists", zap.Error(err))
	} else if n > 0 {
		logger.Info("Seeded psychiatrist reference data", zap.Int("count", n))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Conversation state store
	store, closeStore, err := newStore(ctx, cfg.Session, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session store", zap.Error(err))
	}
	defer closeStore()

	// Event publisher
	var publisher events.Publisher = events.Nop{}
	if cfg.Events.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Warn("Failed to connect to RabbitMQ, events disabled", zap.Error(err))
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	// Completion service
	client := llm.NewOpenAIClient(llm.Options{
		BaseURL:               cfg.LLM.BaseURL,
		APIKey:                cfg.LLM.APIKey,
		ChatModel:             cfg.LLM.ChatModel,
		ExtractionModel:       cfg.LLM.ExtractionModel,
		Temperature:           cfg.LLM.Temperature,
		ExtractionTemperature: cfg.LLM.ExtractionTemperature,
		Timeout:               cfg.LLM.Timeout,
	}, m)
	if !client.Configured() {
		logger.Warn("Completion service not configured, turns will fail until llm.api_key is set")
	}

	// Initialize services
	intakeService := service.NewIntakeService(cfg, store, repos, client, publisher, m, logger)
	adminService := service.NewAdminService(repos, report.NewRenderer(cfg.Report.FontPath))
	go maintain(ctx, store, intakeService, cfg.Session.TTL, logger)

	// Setup router
	router := api.SetupRouter(intakeService, adminService, api.RouterConfig{
		APIKey:       cfg.Admin.APIKey,
		AllowOrigins: cfg.Server.AllowOrigins,
		Gatherer:     registry,
	}, logger)

	// Create HTTP server. No write timeout: streamed turns and websockets
	// outlive a single request deadline.
	srv := &http.Server{
		Addr:        cfg.Address(),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting intake server",
			zap.String("address", cfg.Address()),
			zap.String("base_url", cfg.Server.BaseURL),
			zap.String("database", cfg.Database.Driver),
			zap.String("session_store", cfg.Session.Store),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}

// newStore builds the configured state store and the func that releases it.
func newStore(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (session.Store, func(), error) {
	if cfg.Store == "redis" {
		rs, err := session.NewRedisStore(ctx, session.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	}

	return session.NewMemoryStore(cfg.TTL), func() {}, nil
}

// maintain drops expired in-memory sessions and the turn locks of sessions
// the store no longer holds, until ctx is done.
func maintain(ctx context.Context, store session.Store, intake *service.IntakeService, ttl time.Duration, logger *zap.Logger) {
	interval := 10 * time.Minute
	if ttl > 0 {
		interval = ttl / 4
		if interval < time.Minute {
			interval = time.Minute
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ms, ok := store.(*session.MemoryStore); ok {
				if n := ms.Sweep(); n > 0 {
					logger.Debug("Swept expired sessions", zap.Int("count", n))
				}
			}
			if n := intake.PruneLocks(ctx); n > 0 {
				logger.Debug("Pruned turn locks", zap.Int("count", n))
			}
		}
	}
}
