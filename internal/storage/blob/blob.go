// Пакет blob — контракт объектного хранилища: запись, чтение и удаление
// байтов по ключу (file_id). Реализации: filestore, miniostore, s3store.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound — объекта с таким ключом нет в хранилище.
var ErrNotFound = errors.New("объект не найден в хранилище")

// Object — открытый для чтения объект. Вызывающий код обязан закрыть Body.
// Если Body реализует io.ReadSeeker, HTTP-слой отдаёт его с поддержкой Range.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store — объектное хранилище.
type Store interface {
	// Put записывает объект и возвращает фактически записанное число байт.
	// size < 0 — размер неизвестен заранее.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	// Get открывает объект. ErrNotFound — ключа нет.
	Get(ctx context.Context, key string) (*Object, error)
	// Delete удаляет объект. Отсутствующий ключ не считается ошибкой.
	Delete(ctx context.Context, key string) error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}
