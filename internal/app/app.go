package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoola/core/internal/config"
	"github.com/yoola/core/internal/middleware"
	"github.com/yoola/core/internal/modules/language"
	"github.com/yoola/core/internal/modules/summarizer"
	"github.com/yoola/core/internal/modules/summary"
	"github.com/yoola/core/internal/modules/summary/store/memstore"
	"github.com/yoola/core/internal/pkg/inflight"
	pkgredis "github.com/yoola/core/internal/pkg/redis"
	"go.uber.org/zap"
)

// App holds all application dependencies.
type App struct {
	cfg        *config.AppConfig
	router     *gin.Engine
	store      Store
	degraded   bool
	redis      *pkgredis.Client
	summarizer *summarizer.Client
	summaries  *summary.Service
	languages  *language.Service
	logger     *zap.Logger
	startedAt  time.Time
}

// New initializes the application: config → store → Redis → summarizer → routes.
// An unreachable durable store degrades to the in-memory matcher instead of
// failing startup.
func New(ctx context.Context, logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{cfg: cfg, logger: logger, startedAt: time.Now()}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		logger.Warn("durable store unavailable, running degraded with in-memory summaries",
			zap.String("driver", cfg.Database.Driver),
			zap.Error(err),
		)
		store = memstore.New()
	}
	a.store = store
	a.degraded = store.Kind() == config.DriverMemory

	opts := []summary.ServiceOption{
		summary.WithLogger(logger),
		summary.WithMaxAttempts(cfg.Summarizer.MaxAttempts),
		summary.WithMaxContentChars(cfg.Summarizer.MaxContentChars),
		summary.WithSummarizerTimeout(cfg.SummarizerTimeout()),
	}

	if cfg.Redis.Enable {
		rc, err := pkgredis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, coalescing misses in-process only", zap.Error(err))
		} else {
			a.redis = rc
			opts = append(opts, summary.WithInflightMarker(inflight.New(rc, inflight.WithTTL(2*cfg.SummarizerTimeout()))))
		}
	}

	var sum summary.Summarizer
	client, err := summarizer.New(cfg.Summarizer, summarizer.WithLogger(logger))
	if err != nil {
		logger.Warn("no summarizer configured, cache misses will fail", zap.Error(err))
	} else {
		a.summarizer = client
		sum = client
		logger.Info("summarizer ready",
			zap.String("provider", client.ProviderName()),
			zap.String("model", client.Model()),
		)
	}

	a.summaries = summary.NewService(store, sum, opts...)
	a.languages = language.NewService(store, logger)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(newCORS(cfg))

	a.router = router
	a.registerRoutes()

	logger.Info("summary store ready",
		zap.String("kind", store.Kind()),
		zap.Bool("degraded", a.degraded),
	)
	return a, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Degraded reports whether summaries live only in process memory.
func (a *App) Degraded() bool { return a.degraded }

// Shutdown closes the store and Redis connections.
func (a *App) Shutdown(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("store close failed", zap.Error(err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
}
