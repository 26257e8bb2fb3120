// deletion.go — удаление файла или группы владельцем.
// Порядок для каждого файла: сначала объект, затем метаданные.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/storage/blob"
)

var deletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fs_deletions_total",
	Help: "Количество удалений по виду (file, group)",
}, []string{"kind"})

// BlobFailure — объект, который не удалось удалить.
type BlobFailure struct {
	FileID string
	Reason string
}

// DeleteReport — отчёт об удалении. Для группы удаление объектов
// best-effort: неудачи перечислены в Failed, строки удаляются все.
type DeleteReport struct {
	Kind ResolutionKind
	// FileID — для одиночного файла
	FileID string
	// GroupID — для группы
	GroupID   string
	Attempted int
	Succeeded int
	Failed    []BlobFailure
	// RowsDeleted — число удалённых строк метаданных
	RowsDeleted int64
}

// DeletionService — сервис удаления.
type DeletionService struct {
	resolver *Resolver
	repo     repository.UploadRepository
	store    blob.Store
	logger   *slog.Logger
}

// NewDeletionService создаёт сервис удаления.
func NewDeletionService(
	resolver *Resolver,
	repo repository.UploadRepository,
	store blob.Store,
	logger *slog.Logger,
) *DeletionService {
	return &DeletionService{
		resolver: resolver,
		repo:     repo,
		store:    store,
		logger:   logger.With(slog.String("component", "deletion")),
	}
}

// Delete удаляет файл (точный file_id) или группу (group_id) владельца.
// ErrNotFound — ключа нет или он чужой; ответы в этих случаях одинаковы.
func (s *DeletionService) Delete(ctx context.Context, key, ownerID string) (*DeleteReport, error) {
	res, err := s.resolver.ResolveOwned(ctx, key, ownerID)
	if err != nil {
		return nil, err
	}

	switch res.Kind {
	case ResolvedSingle:
		return s.deleteSingle(ctx, res)
	case ResolvedGroup:
		return s.deleteGroup(ctx, key, ownerID, res)
	default:
		return nil, ErrNotFound
	}
}

func (s *DeletionService) deleteSingle(ctx context.Context, res Resolution) (*DeleteReport, error) {
	fileID := res.Record.FileID
	report := &DeleteReport{Kind: ResolvedSingle, FileID: fileID, Attempted: 1}

	if err := s.store.Delete(ctx, fileID); err != nil {
		return nil, fmt.Errorf("удаление объекта %s: %w", fileID, err)
	}
	report.Succeeded = 1
	s.resolver.Forget(fileID)

	if err := s.repo.Delete(ctx, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("удаление метаданных %s: %w", fileID, err)
	}
	report.RowsDeleted = 1

	deletionsTotal.WithLabelValues("file").Inc()
	s.logger.Info("Файл удалён", slog.String("file_id", fileID))
	return report, nil
}

func (s *DeletionService) deleteGroup(ctx context.Context, groupID, ownerID string, res Resolution) (*DeleteReport, error) {
	report := &DeleteReport{Kind: ResolvedGroup, GroupID: groupID}

	for _, m := range res.Members {
		report.Attempted++
		s.resolver.Forget(m.FileID)

		if err := s.store.Delete(ctx, m.FileID); err != nil {
			report.Failed = append(report.Failed, BlobFailure{FileID: m.FileID, Reason: err.Error()})
			s.logger.Error("Не удалось удалить объект группы",
				slog.String("group_id", groupID),
				slog.String("file_id", m.FileID),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.Succeeded++
	}

	n, err := s.repo.DeleteByGroupAndOwner(ctx, groupID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("удаление метаданных группы %s: %w", groupID, err)
	}
	report.RowsDeleted = n

	deletionsTotal.WithLabelValues("group").Inc()
	s.logger.Info("Группа удалена",
		slog.String("group_id", groupID),
		slog.Int64("rows", n),
		slog.Int("blobs_deleted", report.Succeeded),
		slog.Int("blobs_failed", len(report.Failed)),
	)
	return report, nil
}
