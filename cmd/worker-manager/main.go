// cmd/worker-manager/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"scheme-matcher/internal/common/camunda"
	"scheme-matcher/internal/common/config"
	"scheme-matcher/internal/common/database"
	"scheme-matcher/internal/common/logger"
	"scheme-matcher/internal/common/observability"
	"scheme-matcher/internal/matching/amount"
	"scheme-matcher/internal/matching/pipeline"
	"scheme-matcher/internal/matching/rules"
	"scheme-matcher/internal/session"

	ap "scheme-matcher/internal/workers/schemes/analyze-profile"
	gsd "scheme-matcher/internal/workers/schemes/get-scheme-details"
	ms "scheme-matcher/internal/workers/schemes/match-schemes"
	ps "scheme-matcher/internal/workers/schemes/paginate-schemes"
	ss "scheme-matcher/internal/workers/schemes/search-schemes"
	"scheme-matcher/internal/workers/schemes/search-schemes/queries"
	sms "scheme-matcher/internal/workers/schemes/show-more-schemes"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// dependencies are the shared clients handed to worker constructors.
type dependencies struct {
	cfg    *config.Config
	zeebe  *camunda.Client
	engine *pipeline.Engine
	parser *amount.Parser
	es     *database.ElasticsearchClient
	redis  *database.RedisClient
	pg     *database.PostgresClient
	store  session.Store
	obs    *observability.Observability
	log    logger.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting scheme matcher", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs, err := observability.New(observability.Settings{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	if err != nil {
		log.Warn("observability partially disabled", map[string]interface{}{"error": err.Error()})
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, log, "zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	log.Info("zeebe client connected", nil)

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, log, "elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	log.Info("elasticsearch connected", nil)
	if missing, err := esClient.MissingIndices(ctx, cfg.Search.MSMEIndex, cfg.Search.FarmerIndex); err != nil {
		log.Warn("could not verify scheme indices", map[string]interface{}{"error": err.Error()})
	} else if len(missing) > 0 {
		log.Warn("scheme indices missing, searches against them will fail", map[string]interface{}{"indices": missing})
	}

	// --- Redis ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, log, "redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected", nil)

	// --- PostgreSQL catalog, optional ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Enabled() {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "postgres connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		if n, err := pg.CatalogSize(ctx); err != nil {
			log.Warn("scheme catalog not readable", map[string]interface{}{"error": err.Error()})
		} else {
			log.Info("postgres connected", map[string]interface{}{"schemes": n})
		}
	} else {
		log.Info("no scheme catalog configured, details come from session state only", nil)
	}

	// --- Matching engine ---
	tables, err := loadRules(cfg.Matching.RulesPath)
	if err != nil {
		zapLog.Fatal("rule tables failed to compile", zap.Error(err))
	}
	parser := amount.NewParser(tables,
		amount.WithPlainRupeeThreshold(cfg.Matching.PlainRupeeThreshold),
		amount.WithStrictUnits(cfg.Matching.StrictAmountUnits),
	)
	engine, err := pipeline.New(tables, parser, pipeline.Options{
		MinScore: cfg.Matching.MinSchemeScore,
		Amount: amount.Options{
			Tolerance:  cfg.Matching.AmountTolerance,
			MinResults: cfg.Matching.MinResults,
		},
	})
	if err != nil {
		zapLog.Fatal("matching engine init failed", zap.Error(err))
	}

	store := session.NewRedisStore(redisClient.Client,
		session.WithTTL(cfg.Pagination.SessionTTL),
		session.WithKeyPrefix(redisClient.Prefix),
	)

	deps := &dependencies{
		cfg:    cfg,
		zeebe:  zeebe,
		engine: engine,
		parser: parser,
		es:     esClient,
		redis:  redisClient,
		pg:     pg,
		store:  store,
		obs:    obs,
		log:    log,
	}
	workers := registerWorkers(zeebe, deps)
	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HealthPort),
		Handler:           healthMux(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping workers", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("health server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if err := zeebe.Close(); err != nil {
		log.Error("error closing zeebe client", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped gracefully", nil)
}

func loadRules(path string) (*rules.Tables, error) {
	if path == "" {
		return rules.Default()
	}
	return rules.Load(path)
}

func registerWorkers(zeebe *camunda.Client, d *dependencies) []*camunda.CamundaWorker {
	var started []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(d.cfg, taskType)
		if !wcfg.Enabled {
			d.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			return
		}
		started = append(started, camunda.NewWorker(zeebe.GetClient(), taskType, wcfg, handler, d.obs, d.log))
	}

	if wcfg := config.GetWorkerConfig(d.cfg, ss.TaskType); wcfg.Enabled {
		c := ss.LoadConfig()
		c.Timeout = timeoutOr(wcfg, c.Timeout)
		c.MSMEIndex = d.cfg.Search.MSMEIndex
		c.FarmerIndex = d.cfg.Search.FarmerIndex
		c.ExtraIndices = d.cfg.Search.ExtraIndices
		c.DefaultSize = d.cfg.Search.DefaultSize
		h := ss.NewHandler(c, queries.NewESSearcher(d.es.Client), d.parser, d.log)
		start(ss.TaskType, h.Handle)
	}

	if wcfg := config.GetWorkerConfig(d.cfg, ap.TaskType); wcfg.Enabled {
		c := ap.LoadConfig()
		c.Timeout = timeoutOr(wcfg, c.Timeout)
		h := ap.NewHandler(c, d.engine.Analyzer(), d.log)
		start(ap.TaskType, h.Handle)
	}

	if wcfg := config.GetWorkerConfig(d.cfg, ms.TaskType); wcfg.Enabled {
		c := ms.LoadConfig()
		c.Timeout = timeoutOr(wcfg, c.Timeout)
		h := ms.NewHandler(c, d.engine, d.obs, d.log)
		start(ms.TaskType, h.Handle)
	}

	if wcfg := config.GetWorkerConfig(d.cfg, ps.TaskType); wcfg.Enabled {
		c := ps.LoadConfig()
		c.Timeout = timeoutOr(wcfg, c.Timeout)
		c.SchemesPerPage = d.cfg.Pagination.SchemesPerPage
		c.MaxPages = d.cfg.Pagination.MaxPages
		h := ps.NewHandler(c, d.store, d.log)
		start(ps.TaskType, h.Handle)
	}

	if wcfg := config.GetWorkerConfig(d.cfg, sms.TaskType); wcfg.Enabled {
		c := sms.LoadConfig()
		c.Timeout = timeoutOr(wcfg, c.Timeout)
		c.SchemesPerPage = d.cfg.Pagination.SchemesPerPage
		c.MaxPages = d.cfg.Pagination.MaxPages
		h := sms.NewHandler(c, d.store, d.log)
		start(sms.TaskType, h.Handle)
	}

	if wcfg := config.GetWorkerConfig(d.cfg, gsd.TaskType); wcfg.Enabled {
		c := gsd.LoadConfig()
		c.Timeout = timeoutOr(wcfg, c.Timeout)
		c.SchemesPerPage = d.cfg.Pagination.SchemesPerPage
		c.MaxPages = d.cfg.Pagination.MaxPages
		c.CacheKeyPrefix = d.cfg.Database.Redis.KeyPrefix
		if wcfg.CacheTTL > 0 {
			c.CacheTTL = time.Duration(wcfg.CacheTTL) * time.Second
		}

		// Untyped nils so the handler sees the absence.
		var db *sql.DB
		if d.pg != nil {
			db = d.pg.DB
		}
		var rdb redis.Cmdable
		if d.redis != nil {
			rdb = d.redis.Client
		}
		h := gsd.NewHandler(c, db, rdb, d.store, d.log)
		start(gsd.TaskType, h.Handle)
	}

	return started
}

func timeoutOr(wcfg config.WorkerConfig, fallback time.Duration) time.Duration {
	if wcfg.Timeout > 0 {
		return config.GetDuration(wcfg.Timeout)
	}
	return fallback
}

func healthMux(d *dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"status": "ready", "zeebe": "ok", "redis": "ok", "elasticsearch": "ok"}
		code := http.StatusOK
		if err := d.zeebe.HealthCheck(ctx); err != nil {
			checks["zeebe"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := d.redis.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := d.es.Info(ctx); err != nil {
			checks["elasticsearch"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if d.pg != nil {
			checks["postgres"] = "ok"
			if err := d.pg.Ping(ctx); err != nil {
				checks["postgres"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if n, err := d.redis.ActiveSessions(ctx); err == nil {
			checks["sessions"] = strconv.Itoa(n)
		}
		if code != http.StatusOK {
			checks["status"] = "degraded"
		}
		writeStatus(w, code, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
