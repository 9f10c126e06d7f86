package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/todolist/api/handler"
	"github.com/fastygo/todolist/internal/config"
	"github.com/fastygo/todolist/internal/infrastructure/buffer"
	"github.com/fastygo/todolist/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/todolist/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/todolist/internal/infrastructure/redis"
	"github.com/fastygo/todolist/internal/middleware"
	"github.com/fastygo/todolist/internal/router"
	"github.com/fastygo/todolist/internal/services"
	"github.com/fastygo/todolist/internal/services/lifecycle"
	"github.com/fastygo/todolist/pkg/httpcontext"
	"github.com/fastygo/todolist/pkg/logger"
	"github.com/fastygo/todolist/repository"
	"github.com/fastygo/todolist/repository/postgres"
	redisRepo "github.com/fastygo/todolist/repository/redis"
	"github.com/fastygo/todolist/repository/sqlite"
	authUC "github.com/fastygo/todolist/usecase/auth"
	profileUC "github.com/fastygo/todolist/usecase/profile"
	taskUC "github.com/fastygo/todolist/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		AppName:     cfg.AppName,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.Listen(context.Background())
	defer cancel()

	store, err := openStore(appCtx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("storage initialization failed", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	manager.Register("storage", func(ctx context.Context) error {
		return store.Close()
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	activityStore, err := buffer.Open(cfg.Activity.Path, "activity")
	if err != nil {
		zapLogger.Fatal("failed to open activity buffer", zap.Error(err))
	}
	manager.Register("activity_buffer", func(ctx context.Context) error {
		return activityStore.Close()
	})

	redisPing := monitor.PingFunc(func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	mon := monitor.New(store, redisPing, activityStore, 10*time.Second, zapLogger)
	mon.Refresh()
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	processor := services.NewActivityProcessor(
		activityStore,
		mon,
		store.Repositories().Events,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Activity.SyncInterval,
			BatchSize:  cfg.Activity.BatchSize,
			MaxRetries: cfg.Activity.MaxRetry,
			Retention:  time.Duration(cfg.Activity.RetentionHours) * time.Hour,
		},
	)
	processor.Start()
	manager.Register("activity_processor", processor.Stop)

	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.JWT.SessionTTL)

	authUseCase := authUC.New(store.Repositories().Users, sessionRepo, authUC.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		SessionTTL: cfg.JWT.SessionTTL,
		BcryptCost: cfg.JWT.BcryptCost,
	}, zapLogger)
	profileUseCase := profileUC.New(store, zapLogger)
	taskUseCase := taskUC.New(store, services.NewActivityBridge(processor), zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Profile: apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Task:    apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, cfg.Storage.Driver, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(authUseCase, cfg.Context.RequestTimeout, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// openStore connects the configured storage engine and applies its migrations.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path, log)
		if err != nil {
			return nil, err
		}
		if cfg.Migrations.Enabled {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, log); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
