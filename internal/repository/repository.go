// Пакет repository — метаданные загрузок и API-ключей в PostgreSQL.
// Запросы пишутся вручную поверх pgx; репозитории принимают DBTX,
// поэтому работают и с пулом, и внутри транзакции.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound — строки нет (или она не принадлежит владельцу).
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — нарушение уникальности file_id или key.
	ErrConflict = errors.New("запись уже существует")
)

// pgUniqueViolation — SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

// DBTX — общий набор методов *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// wrapQueryErr превращает pgx.ErrNoRows в ErrNotFound, остальное
// оборачивает с описанием операции.
func wrapQueryErr(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// requireAffected возвращает ErrNotFound, если команда не затронула ни одной строки.
func requireAffected(tag pgconn.CommandTag, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// paginate дописывает LIMIT и OFFSET с очередными номерами параметров.
// Неположительные значения не добавляются.
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
