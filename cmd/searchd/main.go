package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studylab/lessonsearch/internal/analytics"
	"github.com/studylab/lessonsearch/internal/content"
	"github.com/studylab/lessonsearch/internal/querycache"
	"github.com/studylab/lessonsearch/internal/rebuild"
	"github.com/studylab/lessonsearch/internal/search"
	"github.com/studylab/lessonsearch/internal/server"
	"github.com/studylab/lessonsearch/pkg/config"
	"github.com/studylab/lessonsearch/pkg/health"
	"github.com/studylab/lessonsearch/pkg/kafka"
	"github.com/studylab/lessonsearch/pkg/logger"
	"github.com/studylab/lessonsearch/pkg/metrics"
	"github.com/studylab/lessonsearch/pkg/middleware"
	"github.com/studylab/lessonsearch/pkg/postgres"
	pkgredis "github.com/studylab/lessonsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting lesson search service",
		"port", cfg.Server.Port,
		"content_dir", cfg.Content.Dir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	loader := content.NewFileLoader(cfg.Content.Dir)
	engine := search.New(loader, search.Options{
		BuildWorkers: cfg.Index.BuildWorkers,
		MaxDistance:  cfg.Search.FuzzyMaxDistance,
		LoadAttempts: cfg.Index.LoadAttempts,
	})

	var queryCache *querycache.Cache[server.SearchResponse]
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = querycache.New[server.SearchResponse](redisClient, cfg.Redis.CacheTTL)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var queryLog *analytics.Store
	var pgClient *postgres.Client
	if cfg.Postgres.Enabled {
		pgClient, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, query analytics disabled", "error", err)
		} else {
			defer pgClient.Close()
			queryLog = analytics.NewStore(pgClient)
			slog.Info("query analytics enabled", "host", cfg.Postgres.Host)
		}
	}

	rebuildFn := func(ctx context.Context) error {
		tree, err := content.LoadTree(cfg.Content.TreePath)
		if err != nil {
			return fmt.Errorf("loading site tree: %w", err)
		}
		if err := engine.Rebuild(ctx, tree); err != nil {
			return err
		}
		if queryCache != nil {
			if err := queryCache.Invalidate(ctx); err != nil {
				slog.Error("cache invalidation after rebuild failed", "error", err)
			}
		}
		return nil
	}

	if cfg.Kafka.Enabled {
		consumer := rebuild.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.ContentTopic, rebuild.HandleMessage(rebuildFn)))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("rebuild consumer error", "error", err)
			}
		}()
		slog.Info("rebuild consumer enabled", "topic", cfg.Kafka.ContentTopic)
	}

	go buildIndex(ctx, engine, cfg.Content.TreePath, m)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if engine.Stats().Built {
			return health.ComponentHealth{Status: health.StatusUp}
		}
		return health.ComponentHealth{
			Status:  health.StatusDegraded,
			Message: fmt.Sprintf("building: %.0f%%", engine.Progress()*100),
		}
	})
	if redisClient != nil {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}
	if pgClient != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pgClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	handler := server.New(engine, queryCache, queryLog, rebuildFn, m, cfg.Search)
	mux := http.NewServeMux()
	handler.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

// buildIndex runs the initial build and keeps the progress gauge current
// while it is in flight.
func buildIndex(ctx context.Context, engine *search.Engine, treePath string, m *metrics.Metrics) {
	tree, err := content.LoadTree(treePath)
	if err != nil {
		slog.Error("loading site tree failed, search disabled", "path", treePath, "error", err)
		if m != nil {
			m.IndexBuildsTotal.WithLabelValues("error").Inc()
		}
		return
	}

	done := make(chan struct{})
	if m != nil {
		go func() {
			ticker := time.NewTicker(250 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					m.IndexProgress.Set(engine.Progress())
					return
				case <-ticker.C:
					m.IndexProgress.Set(engine.Progress())
				}
			}
		}()
	}

	start := time.Now()
	err = engine.Build(ctx, tree)
	close(done)
	if m != nil {
		m.IndexBuildDuration.Observe(time.Since(start).Seconds())
		stats := engine.Stats()
		m.DocsIndexedTotal.Add(float64(stats.Indexed))
		m.DocLoadFailures.Add(float64(stats.Attempted - stats.Indexed))
		status := "success"
		if err != nil {
			status = "error"
		}
		m.IndexBuildsTotal.WithLabelValues(status).Inc()
	}
	if err != nil {
		slog.Error("index build failed", "error", err)
	}
}
