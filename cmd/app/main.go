package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tareas_api/internal/cache"
	"tareas_api/internal/config"
	"tareas_api/internal/db"
	httpServer "tareas_api/internal/http"
	"tareas_api/internal/http/handlers"
	"tareas_api/internal/logger"
	"tareas_api/internal/repository"
	"tareas_api/internal/repository/memory"
	"tareas_api/internal/service"
	"tareas_api/internal/ws"

	"github.com/gin-gonic/gin"
)

type stores struct {
	users  service.AccountStore
	tokens service.TokenStore
	tasks  service.TaskStore
	audit  service.AuditStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Check{}
	var st stores

	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			if err := db.Migrate(ctx, pool, db.MigrateUp); err != nil {
				logger.Fatal("failed to apply migrations", "error", err)
			}
		}

		st = stores{
			users:  repository.NewUserRepository(pool),
			tokens: repository.NewTokenRepository(pool),
			tasks:  repository.NewTaskRepository(pool),
			audit:  repository.NewAuditRepository(pool),
		}
		checks["database"] = pool.Ping
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		st = stores{
			users:  memory.NewUserRepository(),
			tokens: memory.NewTokenRepository(),
			tasks:  memory.NewTaskRepository(),
			audit:  memory.NewAuditRepository(),
		}
	}

	credOpts := []service.CredentialOption{service.WithTokenMaxAge(cfg.TokenMaxAge)}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// the cache is an optimisation; run without it
			logger.Warn("redis unavailable, token cache disabled", "error", err)
		} else {
			defer rdb.Close()
			credOpts = append(credOpts, service.WithTokenCache(cache.NewRedisTokenCache(rdb, cfg.TokenCacheTTL)))
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			logger.Info("token cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.TokenCacheTTL)
		}
	}

	hub := ws.NewHub()
	creds := service.NewCredentialService(st.users, st.tokens, service.NewPasswordHasher(cfg.BcryptCost), credOpts...)
	h := handlers.NewHandler(
		service.NewAccountService(st.users, creds),
		creds,
		service.NewTaskService(st.tasks, hub),
		service.NewAuditService(st.audit),
		hub,
	)

	r := gin.New()
	httpServer.Middleware(r, cfg.AllowedOrigins)
	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler:        h,
		Health:         handlers.NewHealthHandler(cfg.Version, checks),
		Hub:            hub,
		Tokens:         creds,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "storage", cfg.Storage, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
