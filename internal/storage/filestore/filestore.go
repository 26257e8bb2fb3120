// Пакет filestore — бэкенд объектного хранилища на локальном диске.
// Ключ объекта отображается в путь внутри dataDir; запись идёт через
// временный файл с fsync и атомарным rename.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/fileshare/internal/storage/blob"
)

// FileStore — объекты как файлы на диске.
type FileStore struct {
	// dataDir — корневая директория хранения (FS_DATA_DIR)
	dataDir string
}

// New создаёт FileStore. Создаёт директорию, если она не существует.
func New(dataDir string) (*FileStore, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("некорректный путь директории данных %s: %w", dataDir, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", abs, err)
	}

	return &FileStore{dataDir: abs}, nil
}

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// resolve переводит ключ в абсолютный путь и не выпускает его за пределы dataDir.
func (fs *FileStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("пустой ключ объекта")
	}
	full := filepath.Join(fs.dataDir, filepath.FromSlash(key))
	if full == fs.dataDir || !strings.HasPrefix(full, fs.dataDir+string(filepath.Separator)) {
		return "", fmt.Errorf("ключ %q выходит за пределы директории данных", key)
	}
	return full, nil
}

// Put записывает данные из r в файл по ключу.
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (int64, error) {
	fullPath, err := fs.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return 0, fmt.Errorf("ошибка создания директории для %s: %w", key, err)
	}

	tmpPath := fullPath + "." + uuid.New().String()[:8] + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return size, nil
}

// Get открывает файл по ключу. Body — *os.File, поддерживает Seek.
func (fs *FileStore) Get(_ context.Context, key string) (*blob.Object, error) {
	fullPath, err := fs.resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", key, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, blob.ErrNotFound
	}

	return &blob.Object{
		Body:        f,
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(fullPath)),
		ModTime:     info.ModTime(),
	}, nil
}

// Delete удаляет файл и пустые родительские директории.
// Возвращает nil, если файла уже нет.
func (fs *FileStore) Delete(_ context.Context, key string) error {
	fullPath, err := fs.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", key, err)
	}

	fs.pruneEmptyDirs(filepath.Dir(fullPath))
	return nil
}

// pruneEmptyDirs удаляет пустые директории вверх до dataDir.
// os.Remove не удаляет непустую директорию, на этом подъём прекращается.
func (fs *FileStore) pruneEmptyDirs(dir string) {
	for dir != fs.dataDir && strings.HasPrefix(dir, fs.dataDir) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Ping проверяет, что директория данных доступна.
func (fs *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(fs.dataDir)
	if err != nil {
		return fmt.Errorf("директория данных недоступна: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s не является директорией", fs.dataDir)
	}
	return nil
}

// contextReader прерывает копирование при отмене контекста запроса.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
