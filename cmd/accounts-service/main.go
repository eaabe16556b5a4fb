package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/accounts-service/internal/cache"
	"github.com/pribylovaa/accounts-service/internal/config"
	apihttp "github.com/pribylovaa/accounts-service/internal/http"
	"github.com/pribylovaa/accounts-service/internal/http/handlers"
	"github.com/pribylovaa/accounts-service/internal/http/middleware"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/accounts-service/internal/service"
	"github.com/pribylovaa/accounts-service/internal/storage"
	"github.com/pribylovaa/accounts-service/internal/storage/memory"
	"github.com/pribylovaa/accounts-service/internal/storage/minio"
	"github.com/pribylovaa/accounts-service/internal/storage/postgres"
	"github.com/pribylovaa/accounts-service/internal/storage/s3"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	lg := log.New(cfg.Env)
	slog.SetDefault(lg)
	lg.Info("starting accounts-service", slog.String("env", cfg.Env))

	if err := run(cfg, lg); err != nil {
		lg.Error("service_failed", log.Err(err))
		os.Exit(1)
	}

	lg.Info("service_stopped")
}

func run(cfg *config.Config, lg *slog.Logger) error {
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()
	rootCtx = log.Into(rootCtx, lg)

	accounts, err := openStorage(rootCtx, cfg.DB, lg)
	if err != nil {
		return err
	}
	defer accounts.Close()

	media, err := openMedia(rootCtx, cfg.Media, lg)
	if err != nil {
		return err
	}

	svc := service.New(accounts, media, cfg.Auth)

	if cfg.Redis.URL != "" {
		redisCtx, redisCancel := context.WithTimeout(rootCtx, 5*time.Second)
		ac, err := cache.NewRedisCache(redisCtx, cfg.Redis.URL, cfg.Redis.Prefix)
		redisCancel()
		if err != nil {
			// Кэш необязателен: без него сервис работает напрямую с хранилищем.
			lg.Warn("redis_connect_failed", log.Err(err))
		} else {
			defer ac.Close()
			svc.SetAccountCache(ac, cfg.Redis.AccountTTL)
			lg.Info("redis_connected")
		}
	}
	lg.Info("service_initialized")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.RunJanitor(rootCtx, cfg.Auth.JanitorPeriod)
	}()

	var ready atomic.Bool
	opsSrv := &http.Server{
		Addr:              cfg.Ops.Addr(),
		Handler:           opsMux(&ready, storagePinger(accounts)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	apiSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: apihttp.NewRouter(svc, apihttp.Options{
			Logger:      lg,
			Timeout:     cfg.Timeouts.Request,
			BasePath:    cfg.HTTP.BasePath,
			CORSOrigins: cfg.HTTP.CORSOrigins,
			Handlers: handlers.Options{
				InsecureCookies: cfg.HTTP.InsecureCookies,
				MaxUploadBytes:  cfg.HTTP.MaxUploadBytes,
				TempDir:         cfg.Media.TempDir,
			},
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		lg.Info(name+"_listen_start", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("%s: %w", name, err)
		}
	}
	go serve("ops", opsSrv)
	go serve("http", apiSrv)

	ready.Store(true)

	var serveErr error
	select {
	case <-rootCtx.Done():
		lg.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		lg.Error("http_serve_failed", log.Err(serveErr))
	}

	ready.Store(false)
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http_force_stop", log.Err(err))
		_ = apiSrv.Close()
	}
	_ = opsSrv.Shutdown(shutdownCtx)

	wg.Wait()

	return serveErr
}

// openStorage выбирает хранилище аккаунтов по db.driver; для postgres
// предварительно применяет миграции (если не отключены).
func openStorage(ctx context.Context, cfg config.DBConfig, lg *slog.Logger) (storage.Storage, error) {
	if cfg.Driver == config.DBDriverMemory {
		lg.Warn("using_in_memory_storage")
		return memory.New(), nil
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
	defer dbCancel()

	if !cfg.SkipMigrations {
		if err := postgres.Migrate(dbCtx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		lg.Info("postgres_migrated")
	}

	st, err := postgres.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	lg.Info("postgres_connected")

	return st, nil
}

func openMedia(ctx context.Context, cfg config.MediaConfig, lg *slog.Logger) (storage.MediaUploader, error) {
	mctx, mcancel := context.WithTimeout(ctx, 10*time.Second)
	defer mcancel()

	switch cfg.Driver {
	case config.MediaDriverS3:
		m, err := s3.New(mctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 connect: %w", err)
		}
		lg.Info("s3_connected", slog.String("bucket", cfg.Bucket))
		return m, nil
	default:
		m, err := minio.New(mctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("minio connect: %w", err)
		}
		lg.Info("minio_connected", slog.String("bucket", cfg.Bucket))
		return m, nil
	}
}

// pinger — хранилище, умеющее проверить соединение (postgres).
type pinger interface {
	Ping(ctx context.Context) error
}

// storagePinger возвращает pinger, если хранилище его поддерживает.
func storagePinger(st storage.Storage) pinger {
	if p, ok := st.(pinger); ok {
		return p
	}
	return nil
}

const readinessTimeout = 2 * time.Second

// opsMux — служебные эндпойнты: liveness, readiness и метрики.
// /healthz дополнительно пингует БД, если db != nil.
func opsMux(ready *atomic.Bool, db pinger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()

			if err := db.Ping(ctx); err != nil {
				log.From(r.Context()).Warn("readiness_db_ping_failed", log.Err(err))
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	return middleware.Chain(mux, middleware.RequestID(), middleware.Recover())
}
