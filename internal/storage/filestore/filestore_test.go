package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bigkaa/fileshare/internal/storage/blob"
)

// TestNew_CreatesDirectory проверяет создание директории данных.
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	fs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	if fs.DataDir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, fs.DataDir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
	if err := fs.Ping(context.Background()); err != nil {
		t.Errorf("Ping() ошибка: %v", err)
	}
}

// TestPutGet проверяет запись вложенного ключа и чтение того же содержимого.
func TestPutGet(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	ctx := context.Background()

	content := []byte("Hello, World! Тестовые данные.")
	n, err := fs.Put(ctx, "G/folder/b/c.txt", bytes.NewReader(content), int64(len(content)), "text/plain")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	if n != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), n)
	}

	obj, err := fs.Get(ctx, "G/folder/b/c.txt")
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatalf("ошибка чтения тела: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое не совпадает")
	}
	if obj.Size != int64(len(content)) {
		t.Errorf("Size: ожидалось %d, получено %d", len(content), obj.Size)
	}
	if _, ok := obj.Body.(io.ReadSeeker); !ok {
		t.Error("Body должен поддерживать Seek")
	}

	// Временных файлов не осталось
	entries, _ := os.ReadDir(filepath.Join(fs.DataDir(), "G", "folder", "b"))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("остался временный файл %s", e.Name())
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	if _, err := fs.Get(context.Background(), "missing"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("ожидалась blob.ErrNotFound, получено %v", err)
	}
}

// TestGet_DirectoryIsNotObject — директория группы не отдаётся как объект.
func TestGet_DirectoryIsNotObject(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	ctx := context.Background()

	if _, err := fs.Put(ctx, "G/a.txt", strings.NewReader("a"), 1, ""); err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	if _, err := fs.Get(ctx, "G"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("ожидалась blob.ErrNotFound для директории, получено %v", err)
	}
}

func TestDelete_PrunesEmptyDirs(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	ctx := context.Background()

	if _, err := fs.Put(ctx, "G/folder/a.txt", strings.NewReader("a"), 1, ""); err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}
	if err := fs.Delete(ctx, "G/folder/a.txt"); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fs.DataDir(), "G")); !os.IsNotExist(err) {
		t.Error("пустая директория группы должна быть удалена")
	}
	if _, err := os.Stat(fs.DataDir()); err != nil {
		t.Error("корневая директория данных не должна удаляться")
	}

	// Повторное удаление — не ошибка
	if err := fs.Delete(ctx, "G/folder/a.txt"); err != nil {
		t.Errorf("повторное удаление: ожидался nil, получено %v", err)
	}
}

func TestResolve_RejectsEscape(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	for _, key := range []string{"", "../outside", "a/../../outside", "."} {
		if _, err := fs.Put(context.Background(), key, strings.NewReader("x"), 1, ""); err == nil {
			t.Errorf("Put(%q): ожидалась ошибка выхода за пределы", key)
		}
	}
}

func TestPut_CancelledContext(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fs.Put(ctx, "x", strings.NewReader("data"), 4, ""); err == nil {
		t.Fatal("ожидалась ошибка при отменённом контексте")
	}
	if _, err := fs.Get(context.Background(), "x"); !errors.Is(err, blob.ErrNotFound) {
		t.Error("после неудачной записи объекта быть не должно")
	}
}
