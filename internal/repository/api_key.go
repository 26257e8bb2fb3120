package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// APIKeyRepository — доступ к таблице api_keys.
type APIKeyRepository interface {
	// Create создаёт ключ. ErrConflict — такой секрет уже существует.
	Create(ctx context.Context, k *model.APIKey) error
	// Authenticate находит активный ключ по секрету и обновляет last_used
	// одним запросом. ErrNotFound — ключа нет или он неактивен.
	Authenticate(ctx context.Context, key string) (*model.APIKey, error)
	// List возвращает все ключи, новые первыми.
	List(ctx context.Context) ([]*model.APIKey, error)
	// Deactivate выключает ключ. ErrNotFound — ключа с таким id нет.
	Deactivate(ctx context.Context, id string) error
}

type apiKeyRepo struct {
	db DBTX
}

// NewAPIKeyRepository создаёт репозиторий API-ключей.
func NewAPIKeyRepository(db DBTX) APIKeyRepository {
	return &apiKeyRepo{db: db}
}

const apiKeyColumns = `id, key, name, created_at, last_used, is_active`

func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	k := &model.APIKey{}
	err := row.Scan(&k.ID, &k.Key, &k.Name, &k.CreatedAt, &k.LastUsed, &k.IsActive)
	return k, err
}

func (r *apiKeyRepo) Create(ctx context.Context, k *model.APIKey) error {
	query := `
		INSERT INTO api_keys (id, key, name, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query, k.ID, k.Key, k.Name, k.IsActive).Scan(&k.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: API-ключ уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания API-ключа: %w", err)
	}
	return nil
}

func (r *apiKeyRepo) Authenticate(ctx context.Context, key string) (*model.APIKey, error) {
	query := fmt.Sprintf(`
		UPDATE api_keys
		SET last_used = now()
		WHERE key = $1 AND is_active
		RETURNING %s`, apiKeyColumns)

	k, err := scanAPIKey(r.db.QueryRow(ctx, query, key))
	if err != nil {
		return nil, wrapQueryErr(err, "ошибка проверки API-ключа")
	}
	return k, nil
}

func (r *apiKeyRepo) List(ctx context.Context) ([]*model.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys ORDER BY created_at DESC`, apiKeyColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка API-ключей: %w", err)
	}
	defer rows.Close()

	var result []*model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования API-ключа: %w", err)
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

func (r *apiKeyRepo) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE api_keys SET is_active = FALSE WHERE id = $1`, id)
	return requireAffected(tag, err, "ошибка деактивации API-ключа")
}
