package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bryanwahyu/tumortrack/internal/application"
	appai "github.com/bryanwahyu/tumortrack/internal/application/ai"
	"github.com/bryanwahyu/tumortrack/internal/application/analysis"
	"github.com/bryanwahyu/tumortrack/internal/config"
	domai "github.com/bryanwahyu/tumortrack/internal/domain/ai"
	"github.com/bryanwahyu/tumortrack/internal/domain/analyst"
	"github.com/bryanwahyu/tumortrack/internal/domain/scanerrors"
	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
	openaiclient "github.com/bryanwahyu/tumortrack/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/tumortrack/internal/infra/db/mysql"
	"github.com/bryanwahyu/tumortrack/internal/infra/db/postgres"
	"github.com/bryanwahyu/tumortrack/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/tumortrack/internal/infra/storage"
	"github.com/bryanwahyu/tumortrack/internal/middleware"
)

type repositories struct {
	scans    scans.Repository
	analyses analyst.Repository
	errors   scanerrors.Repository
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	flag.StringVar(&path, "config", path, "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load error", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	if err := run(cfg, path); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ready := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	var (
		reports scans.ReportStore
		links   httpserver.ReportLinker
	)
	if cfg.Minio.Enabled {
		access, secret := cfg.Minio.Credentials()
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			access,
			secret,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		reports, links = store, store
		ready["storage"] = middleware.CheckFunc(store.Ping)
	}

	var narrator domai.Narrator
	if cfg.OpenAI.Enabled {
		key := cfg.OpenAI.APIKey()
		if key == "" {
			slog.Warn("openai enabled but api key is empty; narratives disabled", "env", cfg.OpenAI.APIKeyEnv)
		} else {
			narrator = openaiclient.NewClient(key, cfg.OpenAI.Model)
		}
	}

	metrics := middleware.NewMetrics()
	svc := &analysis.Service{
		Repo:         repos.scans,
		AnalysisRepo: repos.analyses,
		ErrorRepo:    repos.errors,
		Reports:      reports,
		Observer:     metrics,
		Clock:        application.SystemClock{},
		Log:          slog.Default(),
	}

	keys := middleware.NewKeySet(cfg.Auth.Keys())
	if keys.Len() == 0 {
		slog.Warn("no tenant api keys configured; every /v1 request will be rejected")
	}
	go func() {
		err := config.Watch(ctx, path, func(next *config.Config) {
			keys.Replace(next.Auth.Keys())
			slog.Info("config: api keys reloaded", "tenants", keys.Len())
		})
		if err != nil {
			slog.Error("config watch failed", "err", err)
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSecond)
	go limiter.RunCleanup(ctx.Done(), time.Minute, 10*time.Minute)

	handler := httpserver.NewRouter(httpserver.Deps{
		Analysis:    svc,
		Narratives:  appai.NewService(narrator, repos.analyses),
		Reports:     links,
		Keys:        keys,
		Metrics:     metrics,
		Limiter:     limiter,
		Ready:       ready,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config) (*sql.DB, repositories, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, repositories{}, fmt.Errorf("postgres connect: %w", err)
		}
		return db, repositories{
			scans:    postgres.NewScanRepository(db),
			analyses: postgres.NewAnalystRepository(db),
			errors:   postgres.NewScanErrorRepository(db),
		}, nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, repositories{}, fmt.Errorf("mysql connect: %w", err)
		}
		return db, repositories{
			scans:    mysqlp.NewScanRepository(db),
			analyses: mysqlp.NewAnalystRepository(db),
			errors:   mysqlp.NewScanErrorRepository(db),
		}, nil
	}
}
