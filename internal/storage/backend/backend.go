// Пакет backend — выбор и инициализация хранилища объектов по конфигурации.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/fileshare/internal/config"
	"github.com/bigkaa/fileshare/internal/storage/blob"
	"github.com/bigkaa/fileshare/internal/storage/filestore"
	"github.com/bigkaa/fileshare/internal/storage/miniostore"
	"github.com/bigkaa/fileshare/internal/storage/s3store"
)

// Backend — инициализированное хранилище объектов.
type Backend struct {
	Store blob.Store
	// Name — local, minio или s3
	Name string
	// HealthURL и HealthPath — HTTP-проверка для topologymetrics, пусто — нет
	HealthURL  string
	HealthPath string
}

// Open создаёт хранилище для cfg.StorageBackend.
// Для MinIO бакет создаётся, если его нет.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendLocal:
		store, err := filestore.New(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("Хранилище объектов: локальная ФС", slog.String("data_dir", cfg.DataDir))
		return &Backend{Store: store, Name: cfg.StorageBackend}, nil

	case config.BackendMinio:
		store, err := miniostore.New(miniostore.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("Хранилище объектов: MinIO",
			slog.String("endpoint", cfg.S3Endpoint),
			slog.String("bucket", cfg.S3Bucket),
		)
		return &Backend{
			Store:      store,
			Name:       cfg.StorageBackend,
			HealthURL:  store.HealthURL(),
			HealthPath: miniostore.HealthPath,
		}, nil

	case config.BackendS3:
		store, err := s3store.New(ctx, s3store.Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Хранилище объектов: S3",
			slog.String("region", cfg.S3Region),
			slog.String("bucket", cfg.S3Bucket),
		)
		return &Backend{Store: store, Name: cfg.StorageBackend}, nil
	}

	return nil, fmt.Errorf("неизвестный бэкенд хранилища %q", cfg.StorageBackend)
}
