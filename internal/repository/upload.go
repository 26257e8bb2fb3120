package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// UploadRepository — доступ к таблице uploads.
type UploadRepository interface {
	// Create вставляет запись. ErrConflict — file_id уже занят.
	Create(ctx context.Context, u *model.Upload) error
	// GetByFileID возвращает запись по точному file_id.
	GetByFileID(ctx context.Context, fileID string) (*model.Upload, error)
	// GetByFileIDAndOwner возвращает запись по file_id, только если она принадлежит владельцу.
	GetByFileIDAndOwner(ctx context.Context, fileID, ownerID string) (*model.Upload, error)
	// ListByGroup возвращает все записи группы, упорядоченные по пути (или имени).
	ListByGroup(ctx context.Context, groupID string) ([]*model.Upload, error)
	// ListByGroupAndOwner — то же, но только записи владельца.
	ListByGroupAndOwner(ctx context.Context, groupID, ownerID string) ([]*model.Upload, error)
	// ListByOwner возвращает записи владельца, новые первыми. limit <= 0 — без ограничения.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.Upload, error)
	// RecordAccess атомарно увеличивает access_count и ставит last_accessed_at.
	// Возвращает новое значение счётчика.
	RecordAccess(ctx context.Context, fileID string) (int64, error)
	// Delete удаляет запись по file_id. ErrNotFound — записи уже нет.
	Delete(ctx context.Context, fileID string) error
	// DeleteByGroupAndOwner удаляет все записи группы владельца одним запросом.
	DeleteByGroupAndOwner(ctx context.Context, groupID, ownerID string) (int64, error)
	// ListExpired возвращает до limit записей с expires_at <= now. Сначала
	// старейшие без неудачных попыток очистки, затем давно не пробованные.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Upload, error)
	// MarkSweepFailed отмечает неудачную попытку очистки записи.
	MarkSweepFailed(ctx context.Context, fileID string) error
}

type uploadRepo struct {
	db DBTX
}

// NewUploadRepository создаёт репозиторий загрузок.
func NewUploadRepository(db DBTX) UploadRepository {
	return &uploadRepo{db: db}
}

const uploadColumns = `id, file_id, group_id, original_name, relative_path, size,
	content_type, api_key_id, uploaded_at, last_accessed_at, access_count, expires_at`

// groupOrder — порядок членов группы в листинге.
const groupOrder = `ORDER BY COALESCE(relative_path, original_name), file_id`

func scanUpload(row pgx.Row) (*model.Upload, error) {
	u := &model.Upload{}
	err := row.Scan(
		&u.ID, &u.FileID, &u.GroupID, &u.OriginalName, &u.RelativePath, &u.Size,
		&u.ContentType, &u.APIKeyID, &u.UploadedAt, &u.LastAccessedAt, &u.AccessCount, &u.ExpiresAt,
	)
	return u, err
}

func collectUploads(rows pgx.Rows) ([]*model.Upload, error) {
	defer rows.Close()

	var result []*model.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи загрузки: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по записям загрузок: %w", err)
	}
	return result, nil
}

func (r *uploadRepo) Create(ctx context.Context, u *model.Upload) error {
	if u.ContentType == "" {
		u.ContentType = model.DefaultContentType
	}

	query := `
		INSERT INTO uploads (file_id, group_id, original_name, relative_path, size,
			content_type, api_key_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, uploaded_at, access_count`

	err := r.db.QueryRow(ctx, query,
		u.FileID, u.GroupID, u.OriginalName, u.RelativePath, u.Size,
		u.ContentType, u.APIKeyID, u.ExpiresAt,
	).Scan(&u.ID, &u.UploadedAt, &u.AccessCount)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: file_id %s уже существует", ErrConflict, u.FileID)
		}
		return fmt.Errorf("ошибка создания записи загрузки: %w", err)
	}
	return nil
}

func (r *uploadRepo) GetByFileID(ctx context.Context, fileID string) (*model.Upload, error) {
	query := fmt.Sprintf(`SELECT %s FROM uploads WHERE file_id = $1`, uploadColumns)
	u, err := scanUpload(r.db.QueryRow(ctx, query, fileID))
	if err != nil {
		return nil, wrapQueryErr(err, "ошибка получения загрузки")
	}
	return u, nil
}

func (r *uploadRepo) GetByFileIDAndOwner(ctx context.Context, fileID, ownerID string) (*model.Upload, error) {
	query := fmt.Sprintf(`SELECT %s FROM uploads WHERE file_id = $1 AND api_key_id = $2`, uploadColumns)
	u, err := scanUpload(r.db.QueryRow(ctx, query, fileID, ownerID))
	if err != nil {
		return nil, wrapQueryErr(err, "ошибка получения загрузки владельца")
	}
	return u, nil
}

func (r *uploadRepo) ListByGroup(ctx context.Context, groupID string) ([]*model.Upload, error) {
	query := fmt.Sprintf(`SELECT %s FROM uploads WHERE group_id = $1 %s`, uploadColumns, groupOrder)
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения группы: %w", err)
	}
	return collectUploads(rows)
}

func (r *uploadRepo) ListByGroupAndOwner(ctx context.Context, groupID, ownerID string) ([]*model.Upload, error) {
	query := fmt.Sprintf(`SELECT %s FROM uploads WHERE group_id = $1 AND api_key_id = $2 %s`,
		uploadColumns, groupOrder)
	rows, err := r.db.Query(ctx, query, groupID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения группы владельца: %w", err)
	}
	return collectUploads(rows)
}

func (r *uploadRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.Upload, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM uploads
		WHERE api_key_id = $1
		ORDER BY uploaded_at DESC, file_id`, uploadColumns)
	query, args := paginate(query, []any{ownerID}, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка загрузок: %w", err)
	}
	return collectUploads(rows)
}

func (r *uploadRepo) RecordAccess(ctx context.Context, fileID string) (int64, error) {
	query := `
		UPDATE uploads
		SET access_count = access_count + 1, last_accessed_at = now()
		WHERE file_id = $1
		RETURNING access_count`

	var count int64
	if err := r.db.QueryRow(ctx, query, fileID).Scan(&count); err != nil {
		return 0, wrapQueryErr(err, "ошибка обновления счётчика доступа")
	}
	return count, nil
}

func (r *uploadRepo) Delete(ctx context.Context, fileID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM uploads WHERE file_id = $1`, fileID)
	return requireAffected(tag, err, "ошибка удаления загрузки")
}

func (r *uploadRepo) DeleteByGroupAndOwner(ctx context.Context, groupID, ownerID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM uploads WHERE group_id = $1 AND api_key_id = $2`, groupID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления группы: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *uploadRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Upload, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM uploads
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY sweep_failed_at NULLS FIRST, expires_at, file_id
		LIMIT $2`, uploadColumns)

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска истёкших загрузок: %w", err)
	}
	return collectUploads(rows)
}

func (r *uploadRepo) MarkSweepFailed(ctx context.Context, fileID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE uploads SET sweep_failed_at = now() WHERE file_id = $1`, fileID)
	return requireAffected(tag, err, "ошибка отметки неудачной очистки")
}
