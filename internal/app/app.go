// Package app assembles the search service from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/schemalabz/opencouncil-sub005/internal/config"
	"github.com/schemalabz/opencouncil-sub005/internal/db"
	dbBleve "github.com/schemalabz/opencouncil-sub005/internal/db/bleve"
	dbRedis "github.com/schemalabz/opencouncil-sub005/internal/db/redis"
	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	"github.com/schemalabz/opencouncil-sub005/internal/domain/search/request"
	"github.com/schemalabz/opencouncil-sub005/internal/metrics"
	budgetrepo "github.com/schemalabz/opencouncil-sub005/internal/repository/budget"
	"github.com/schemalabz/opencouncil-sub005/internal/repository/embcache"
	searchrepo "github.com/schemalabz/opencouncil-sub005/internal/repository/search"
	subjectrepo "github.com/schemalabz/opencouncil-sub005/internal/repository/subject"
	openaiEmb "github.com/schemalabz/opencouncil-sub005/internal/transport/openai"
	embeddinguc "github.com/schemalabz/opencouncil-sub005/internal/usecase/embedding"
	healthuc "github.com/schemalabz/opencouncil-sub005/internal/usecase/health"
	searchuc "github.com/schemalabz/opencouncil-sub005/internal/usecase/search"
	usageuc "github.com/schemalabz/opencouncil-sub005/internal/usecase/usage"
)

// Budget counter TTLs outlive their period so a restart can reload them.
const (
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

// App holds the wired services and the connections they own.
type App struct {
	Store    db.Store
	Subjects *sqlx.DB
	Schema   searchrepo.Schema
	Search   *searchuc.Service
	Health   *healthuc.Service
	Usage    *usageuc.Service
	Defaults request.Defaults
	Embedder domain.Embedder
	logger   *zap.Logger
}

// New connects to the index and the subject store and wires the search pipeline.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := openIndex(cfg.Index)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Index.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("index not ready: %w", err)
	}
	logger.Info("Connected to index", zap.String("driver", cfg.Index.Driver))

	subjects, err := subjectrepo.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, subjectrepo.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	embedder, budget, err := buildEmbedder(ctx, cfg.Embedding, store, logger)
	if err != nil {
		_ = subjects.Close()
		store.Close()
		return nil, err
	}

	schema := Schema(cfg)
	retriever := searchrepo.New(store, schema).WithSegmentFanOut(cfg.Search.SegmentFanOut)
	subjectStore := subjectrepo.New(subjects)

	// Nil interfaces, not typed nil pointers, when embedding or the budget is disabled.
	var queryEmbedder searchuc.Embedder
	var embeddingChecker healthuc.EmbeddingChecker
	if embedder != nil {
		queryEmbedder = embedder
		embeddingChecker = newEmbeddingHealthChecker(embedder)
	}
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}

	svc := searchuc.New(retriever, subjectStore, queryEmbedder, searchuc.Config{
		Weights: searchuc.Weights{
			Name:        cfg.Search.Weights.Name,
			Description: cfg.Search.Weights.Description,
			Text:        cfg.Search.Weights.Text,
			Summary:     cfg.Search.Weights.Summary,
		},
		MinSegmentTextLength: cfg.Search.MinSegmentTextLength,
		HydrationConcurrency: cfg.Search.HydrationConcurrency,
	})

	return &App{
		Store:    store,
		Subjects: subjects,
		Schema:   schema,
		Search:   svc,
		Health:   healthuc.New(store, subjectStore, embeddingChecker),
		Usage:    usageuc.New(budgetReader, cfg.Embedding.Provider),
		Defaults: request.Defaults{
			Size:           cfg.Search.DefaultSize,
			RankWindowSize: cfg.Search.RankWindowSize,
			RankConstant:   cfg.Search.RankConstant,
		},
		Embedder: embedder,
		logger:   logger,
	}, nil
}

// EnsureIndexes creates missing indexes.
func (a *App) EnsureIndexes(ctx context.Context) ([]string, error) {
	created, err := searchrepo.EnsureIndexes(ctx, a.Store, a.Schema)
	if err != nil {
		return created, fmt.Errorf("ensure indexes: %w", err)
	}
	if len(created) > 0 {
		a.logger.Info("Created indexes", zap.Strings("indexes", created))
	}
	return created, nil
}

// Close releases the index and database connections.
func (a *App) Close() {
	if err := a.Subjects.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	a.Store.Close()
}

// Schema derives the index layout from configuration.
func Schema(cfg config.Config) searchrepo.Schema {
	s := searchrepo.DefaultSchema()
	if cfg.Index.SubjectIndex != "" {
		s.SubjectIndex = cfg.Index.SubjectIndex
	}
	if cfg.Index.SegmentIndex != "" {
		s.SegmentIndex = cfg.Index.SegmentIndex
	}
	if cfg.Index.Language != "" {
		s.Language = cfg.Index.Language
	}
	if cfg.Embedding.Dimensions > 0 {
		s.VectorDim = cfg.Embedding.Dimensions
	}
	if cfg.Index.HNSWM > 0 {
		s.HNSW.M = cfg.Index.HNSWM
	}
	if cfg.Index.HNSWEFConstruct > 0 {
		s.HNSW.EFConstruct = cfg.Index.HNSWEFConstruct
	}
	return s
}

func openIndex(cfg config.IndexConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		return s, nil
	case config.DriverBleve:
		s, err := dbBleve.NewStore(dbBleve.Config{Dir: cfg.BlevePath})
		if err != nil {
			return nil, fmt.Errorf("create bleve store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// Returns nil when no provider is configured, and a nil tracker when no limit is set.
func buildEmbedder(
	ctx context.Context, cfg config.EmbeddingConfig, store db.Store, logger *zap.Logger,
) (domain.Embedder, *embeddinguc.BudgetTracker, error) {
	if !cfg.Enabled() {
		logger.Info("Embedding disabled, semantic search unavailable")
		return nil, nil, nil
	}

	action, err := embeddinguc.ParseBudgetAction(cfg.Budget.Action)
	if err != nil {
		return nil, nil, err
	}

	var tracker *embeddinguc.BudgetTracker
	// Pass nil interface (not typed nil pointer) when no limit is set.
	var budget embeddinguc.BudgetChecker
	if cfg.Budget.DailyTokenLimit > 0 || cfg.Budget.MonthlyTokenLimit > 0 {
		tracker = embeddinguc.NewBudgetTracker(embeddinguc.BudgetConfig{
			Provider:     cfg.Provider,
			DailyLimit:   cfg.Budget.DailyTokenLimit,
			MonthlyLimit: cfg.Budget.MonthlyTokenLimit,
			Action:       action,
		}, logger).WithStore(ctx, budgetrepo.New(store, budgetDailyTTL, budgetMonthlyTTL))
		budget = tracker
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.CacheTTLSec > 0 {
		embedder = embcache.New(base, store, cfg.Model,
			time.Duration(cfg.CacheTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	}
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, budget, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}

	logger.Info("Embedder created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
	)
	return embedder, tracker, nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
