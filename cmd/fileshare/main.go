// Точка входа fileshare — сервис временного обмена файлами.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL
// и хранилищу объектов, запускает sweeper, topologymetrics и HTTP-сервер
// с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/fileshare/internal/api/handlers"
	"github.com/bigkaa/fileshare/internal/api/middleware"
	"github.com/bigkaa/fileshare/internal/config"
	"github.com/bigkaa/fileshare/internal/database"
	"github.com/bigkaa/fileshare/internal/lock"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/server"
	"github.com/bigkaa/fileshare/internal/service"
	"github.com/bigkaa/fileshare/internal/storage/backend"
)

// sweepLockKey — ключ Redis, под которым экземпляры делят sweeper.
const sweepLockKey = "fileshare:sweep"

func main() {
	// 1. Конфигурация
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Логирование
	logger := config.SetupLogger(cfg)
	logger.Info("fileshare запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_backend", cfg.StorageBackend),
	)

	switch {
	case cfg.PublicBaseURL == "" && cfg.TrustForwardedHeaders:
		logger.Warn("FS_PUBLIC_BASE_URL не задан, ссылки строятся по X-Forwarded-*: прокси обязан их перезаписывать")
	case cfg.PublicBaseURL == "":
		logger.Warn("FS_PUBLIC_BASE_URL не задан, ссылки строятся по Host запроса")
	}

	// 3. Миграции
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. PostgreSQL
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Хранилище объектов
	objects, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища объектов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Repositories и кэш
	uploadRepo := repository.NewUploadRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	resolver := service.NewResolver(uploadRepo, cache)

	// 7. Services
	uploadSvc := service.NewUploadService(uploadRepo, objects.Store, logger)
	retrievalSvc := service.NewRetrievalService(resolver, uploadRepo, objects.Store, logger)
	deletionSvc := service.NewDeletionService(resolver, uploadRepo, objects.Store, logger)
	authSvc := service.NewAuthService(apiKeyRepo, logger)

	// 8. Sweeper. Блокировка Redis нужна, только если экземпляров несколько.
	var locker service.SweepLocker
	if cfg.RedisEnabled() {
		redisClient, err := lock.NewClient(ctx, lock.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Error("Ошибка подключения к Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		locker = lock.New(redisClient, sweepLockKey, cfg.SweepLockTTL)
		logger.Info("Распределённая блокировка sweeper включена",
			slog.String("redis_addr", cfg.RedisAddr),
			slog.String("lock_ttl", cfg.SweepLockTTL.String()),
		)
	}
	sweeperSvc := service.NewSweeperService(uploadRepo, objects.Store, resolver, locker, cfg.SweepInterval, logger)
	sweeperSvc.Start(ctx)

	// 9. topologymetrics
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthParams{
		ServiceID:             "fileshare",
		Group:                 cfg.DephealthGroup,
		DB:                    pgDB,
		PgConnURL:             cfg.DatabaseURL(),
		ObjectStoreURL:        objects.HealthURL,
		ObjectStoreHealthPath: objects.HealthPath,
		CheckInterval:         cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. Handlers
	publicURL := handlers.PublicURL{
		Configured:     cfg.PublicBaseURL,
		TrustForwarded: cfg.TrustForwardedHeaders,
	}
	h := server.Handlers{
		Health: handlers.NewHealthHandler(
			database.NewReadinessChecker(pool),
			handlers.NewStoreReadinessChecker(objects.Store, objects.Name),
		),
		Upload: handlers.NewUploadHandler(uploadSvc, cfg.MaxUploadSize, publicURL, logger),
		Files:  handlers.NewFilesHandler(retrievalSvc, deletionSvc, publicURL, logger),
		List:   handlers.NewListHandler(uploadSvc, publicURL, logger),
	}
	bearer := middleware.NewBearerAuth(authSvc, logger)

	// 11. HTTP-сервер
	srv := server.New(cfg, logger, server.NewRouter(logger, h, bearer.Middleware()))
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	sweeperSvc.Stop()

	logger.Info("fileshare остановлен")
}
