// Пакет miniostore — бэкенд объектного хранилища для MinIO и других
// S3-совместимых серверов через minio-go.
package miniostore

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bigkaa/fileshare/internal/storage/blob"
)

// Options — параметры подключения к MinIO.
type Options struct {
	// Endpoint — host:port без схемы
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// Store — объекты в бакете MinIO.
type Store struct {
	client   *minio.Client
	bucket   string
	endpoint string
	useSSL   bool
}

// New создаёт клиент MinIO. Сетевых запросов не выполняет.
func New(opts Options) (*Store, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("конфигурация MinIO неполная: нужны endpoint и bucket")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	return &Store{
		client:   client,
		bucket:   opts.Bucket,
		endpoint: opts.Endpoint,
		useSSL:   opts.UseSSL,
	}, nil
}

// EnsureBucket создаёт бакет, если его ещё нет.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("ошибка проверки бакета %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("ошибка создания бакета %s: %w", s.bucket, err)
	}
	return nil
}

// Put загружает объект. size < 0 — minio-go использует multipart upload.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка записи объекта %s: %w", key, err)
	}
	return info.Size, nil
}

// Get открывает объект. minio.Object поддерживает Seek.
func (s *Store) Get(ctx context.Context, key string) (*blob.Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(key, err)
	}

	// GetObject ленивый: ошибка отсутствия объекта появляется только на Stat/Read
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapError(key, err)
	}

	return &blob.Object{
		Body:        obj,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		ModTime:     stat.LastModified,
	}, nil
}

// Delete удаляет объект. S3 DELETE идемпотентен.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}

// Ping проверяет доступность бакета.
func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("MinIO недоступен: %w", err)
	}
	if !exists {
		return fmt.Errorf("бакет %s не существует", s.bucket)
	}
	return nil
}

// HealthURL возвращает базовый URL сервера для HTTP-проверки topologymetrics.
func (s *Store) HealthURL() string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return scheme + "://" + s.endpoint
}

// HealthPath — liveness endpoint MinIO.
const HealthPath = "/minio/health/live"

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func mapError(key string, err error) error {
	if isNotFound(err) {
		return blob.ErrNotFound
	}
	return fmt.Errorf("ошибка чтения объекта %s: %w", key, err)
}
