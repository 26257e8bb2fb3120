// retrieval.go — выдача по ключу: поток одиночного файла или листинг группы.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/storage/blob"
)

// downloadsTotal — запросы GET /f/{key} по результату.
var downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fs_downloads_total",
	Help: "Количество запросов на скачивание по результату",
}, []string{"result"})

// Download — открытый объект и его запись. Вызывающий код закрывает Object.Body.
type Download struct {
	Record *model.Upload
	Object *blob.Object
}

// Retrieval — ровно одно из полей заполнено.
type Retrieval struct {
	Download *Download
	Listing  *Listing
}

// RetrievalService — сервис выдачи файлов и листингов.
type RetrievalService struct {
	resolver *Resolver
	repo     repository.UploadRepository
	store    blob.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewRetrievalService создаёт сервис выдачи.
func NewRetrievalService(
	resolver *Resolver,
	repo repository.UploadRepository,
	store blob.Store,
	logger *slog.Logger,
) *RetrievalService {
	return &RetrievalService{
		resolver: resolver,
		repo:     repo,
		store:    store,
		logger:   logger.With(slog.String("component", "retrieval")),
		now:      time.Now,
	}
}

// Retrieve разрешает ключ. Для файла: проверка срока, открытие объекта,
// атомарный учёт обращения. Для группы: проверка срока и листинг без
// обращения к хранилищу объектов.
func (s *RetrievalService) Retrieve(ctx context.Context, key string) (*Retrieval, error) {
	res, err := s.resolver.Resolve(ctx, key)
	if err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := s.now()

	switch res.Kind {
	case ResolvedSingle:
		d, err := s.openSingle(ctx, res.Record, now)
		if err != nil {
			downloadsTotal.WithLabelValues(resultLabel(err)).Inc()
			return nil, err
		}
		downloadsTotal.WithLabelValues("file").Inc()
		return &Retrieval{Download: d}, nil

	case ResolvedGroup:
		if model.AnyExpired(res.Members, now) {
			downloadsTotal.WithLabelValues("gone").Inc()
			return nil, ErrGone
		}
		downloadsTotal.WithLabelValues("listing").Inc()
		return &Retrieval{Listing: &Listing{
			GroupID:   key,
			Members:   res.Members,
			ExpiresAt: model.GroupExpiry(res.Members),
		}}, nil

	default:
		downloadsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}
}

func (s *RetrievalService) openSingle(ctx context.Context, rec *model.Upload, now time.Time) (*Download, error) {
	if rec.IsExpired(now) {
		s.resolver.Forget(rec.FileID)
		return nil, ErrGone
	}

	obj, err := s.store.Get(ctx, rec.FileID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// Метаданные есть, объекта нет: источник истины — хранилище
			s.resolver.Forget(rec.FileID)
			s.logger.Warn("Объект отсутствует в хранилище при наличии метаданных",
				slog.String("file_id", rec.FileID),
			)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("открытие объекта %s: %w", rec.FileID, err)
	}

	count, err := s.repo.RecordAccess(ctx, rec.FileID)
	if err != nil {
		obj.Body.Close()
		if errors.Is(err, repository.ErrNotFound) {
			s.resolver.Forget(rec.FileID)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("учёт обращения %s: %w", rec.FileID, err)
	}

	s.logger.Debug("Файл выдан",
		slog.String("file_id", rec.FileID),
		slog.Int64("access_count", count),
	)

	if obj.Size == 0 && rec.Size > 0 {
		obj.Size = rec.Size
	}
	return &Download{Record: rec, Object: obj}, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrGone):
		return "gone"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
