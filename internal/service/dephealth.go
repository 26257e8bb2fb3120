// dephealth.go — мониторинг зависимостей через topologymetrics SDK.
//
// Мониторятся:
//   - PostgreSQL — SQL checker через существующий pgxpool (critical)
//   - MinIO/S3 — HTTP checker к health endpoint, если задан (critical)
//
// Для локального бэкенда хранилища отдельной зависимости нет:
// доступность каталога проверяет /health/ready.
//
// Метрики app_dependency_* доступны на /metrics.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthParams — параметры мониторинга.
type DephealthParams struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (FS_DEPHEALTH_GROUP)
	Group string
	// DB — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PgConnURL — URL PostgreSQL для лейблов, не для подключения
	PgConnURL string
	// ObjectStoreURL — базовый URL MinIO/S3; пусто — не мониторится
	ObjectStoreURL string
	// ObjectStoreHealthPath — путь health endpoint хранилища объектов
	ObjectStoreHealthPath string
	CheckInterval         time.Duration
}

// DephealthService — сервис мониторинга зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис. Метрики — в глобальном registry.
func NewDephealthService(p DephealthParams, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(p, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(p DephealthParams, logger *slog.Logger, registerer prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(p, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(p DephealthParams, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	opts := make([]dephealth.Option, 0, 3+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		// PostgreSQL — connection pool mode через существующий pgxpool
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(p.DB)),
			dephealth.FromURL(p.PgConnURL),
			dephealth.CheckInterval(p.CheckInterval),
			dephealth.Critical(true),
		),
	)

	if p.ObjectStoreURL != "" {
		osOpts := []dephealth.DependencyOption{
			dephealth.FromURL(p.ObjectStoreURL),
			dephealth.WithHTTPHealthPath(p.ObjectStoreHealthPath),
			dephealth.CheckInterval(p.CheckInterval),
			dephealth.Critical(true),
		}
		if parsed, err := url.Parse(p.ObjectStoreURL); err == nil && parsed.Scheme == "https" {
			osOpts = append(osOpts, dephealth.WithHTTPTLSSkipVerify(false))
		}
		opts = append(opts, dephealth.HTTP("object-store", osOpts...))
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(p.ServiceID, p.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей (имя → ok).
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
