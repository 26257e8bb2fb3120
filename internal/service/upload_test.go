package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/fileshare/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memFile создаёт UploadFile с содержимым из строки.
func memFile(name, contentType, content string) UploadFile {
	return UploadFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func newTestUploadService(repo *testutil.UploadRepo, store *testutil.BlobStore) *UploadService {
	svc := NewUploadService(repo, store, testLogger())
	svc.newID = func() string { return "G" }
	return svc
}

func TestParseExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		want    *time.Time
		wantErr bool
	}{
		{name: "пусто — бессрочно", raw: ""},
		{name: "пробелы — бессрочно", raw: "   "},
		{
			name: "RFC3339 с зоной",
			raw:  "2026-03-02T12:00:00Z",
			want: ptrTime(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)),
		},
		{
			name: "смещение приводится к UTC",
			raw:  "2026-03-02T15:00:00+03:00",
			want: ptrTime(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)),
		},
		{
			name: "без зоны трактуется как UTC",
			raw:  "2026-03-05T08:30:00",
			want: ptrTime(time.Date(2026, 3, 5, 8, 30, 0, 0, time.UTC)),
		},
		{
			name: "ровно 30 дней допустимо",
			raw:  "2026-03-31T12:00:00Z",
			want: ptrTime(time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)),
		},
		{name: "больше 30 дней", raw: "2026-03-31T12:00:01Z", wantErr: true},
		{name: "ровно сейчас", raw: "2026-03-01T12:00:00Z", wantErr: true},
		{name: "в прошлом", raw: "2026-02-01T00:00:00Z", wantErr: true},
		{name: "мусор", raw: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExpiry(tt.raw, now)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ожидалась ErrValidation, получили %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("хотели nil, получили %v", got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("хотели %v, получили %v", tt.want, got)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestPlan_SingleFile(t *testing.T) {
	svc := newTestUploadService(testutil.NewUploadRepo(), testutil.NewBlobStore())

	plan, err := svc.Plan(UploadRequest{Files: []UploadFile{memFile("a.txt", "", "hi")}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.IsDirectory {
		t.Error("одиночный файл не должен быть директорией")
	}
	pf := plan.Files[0]
	if pf.FileID != "G" {
		t.Errorf("FileID: хотели G, получили %q", pf.FileID)
	}
	if pf.RelativePath != "" {
		t.Errorf("RelativePath: хотели пусто, получили %q", pf.RelativePath)
	}
	if pf.OriginalName != "a.txt" {
		t.Errorf("OriginalName: хотели a.txt, получили %q", pf.OriginalName)
	}
	if pf.ContentType != "application/octet-stream" {
		t.Errorf("ContentType: хотели тип по умолчанию, получили %q", pf.ContentType)
	}
}

func TestPlan_DirectoryRule(t *testing.T) {
	tests := []struct {
		name      string
		req       UploadRequest
		wantDir   bool
		wantFirst string
	}{
		{
			name:      "явный флаг",
			req:       UploadRequest{Directory: true, Files: []UploadFile{memFile("a.txt", "", "x")}},
			wantDir:   true,
			wantFirst: "G/a.txt",
		},
		{
			name:      "несколько файлов",
			req:       UploadRequest{Files: []UploadFile{memFile("a.txt", "", "x"), memFile("b.txt", "", "y")}},
			wantDir:   true,
			wantFirst: "G/a.txt",
		},
		{
			name:      "вложенный путь у одного файла",
			req:       UploadRequest{Files: []UploadFile{memFile(`docs\readme.md`, "", "x")}},
			wantDir:   true,
			wantFirst: "G/docs/readme.md",
		},
		{
			name:      "обход каталога отбрасывается",
			req:       UploadRequest{Files: []UploadFile{memFile("../../etc/passwd", "", "x")}},
			wantDir:   true,
			wantFirst: "G/etc/passwd",
		},
		{
			name:      "плоское имя",
			req:       UploadRequest{Files: []UploadFile{memFile("/a.txt", "", "x")}},
			wantDir:   false,
			wantFirst: "G",
		},
	}

	svc := newTestUploadService(testutil.NewUploadRepo(), testutil.NewBlobStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := svc.Plan(tt.req)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if plan.IsDirectory != tt.wantDir {
				t.Errorf("IsDirectory: хотели %v, получили %v", tt.wantDir, plan.IsDirectory)
			}
			if plan.Files[0].FileID != tt.wantFirst {
				t.Errorf("FileID: хотели %q, получили %q", tt.wantFirst, plan.Files[0].FileID)
			}
		})
	}
}

func TestPlan_EmptyNameFallback(t *testing.T) {
	svc := newTestUploadService(testutil.NewUploadRepo(), testutil.NewBlobStore())

	plan, err := svc.Plan(UploadRequest{Files: []UploadFile{
		memFile("..", "", "x"),
		memFile("ok.txt", "", "y"),
	}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Files[0].FileID != "G/file-1" {
		t.Errorf("хотели G/file-1, получили %q", plan.Files[0].FileID)
	}
	if plan.Files[0].OriginalName != "file-1" {
		t.Errorf("OriginalName: хотели file-1, получили %q", plan.Files[0].OriginalName)
	}
}

func TestPlan_Rejections(t *testing.T) {
	svc := newTestUploadService(testutil.NewUploadRepo(), testutil.NewBlobStore())

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{name: "нет файлов", req: UploadRequest{}},
		{name: "дубликат пути", req: UploadRequest{Files: []UploadFile{
			memFile("d/a.txt", "", "1"),
			memFile("d/./a.txt", "", "2"),
		}}},
		{name: "файл и одноимённый каталог", req: UploadRequest{Files: []UploadFile{
			memFile("a", "", "1"),
			memFile("a/b", "", "2"),
		}}},
		{name: "глубокий предок", req: UploadRequest{Files: []UploadFile{
			memFile("x/y/z/c.txt", "", "1"),
			memFile("a-b", "", "2"),
			memFile("x/y", "", "3"),
		}}},
		{name: "плохой срок", req: UploadRequest{
			Files:     []UploadFile{memFile("a.txt", "", "1")},
			ExpiresAt: "not-a-date",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Plan(tt.req); !errors.Is(err, ErrValidation) {
				t.Errorf("ожидалась ErrValidation, получили %v", err)
			}
		})
	}
}

func TestUpload_RejectedBeforeAnyWrite(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	svc := newTestUploadService(repo, store)

	opened := false
	f := memFile("a.txt", "", "x")
	f.Open = func() (io.ReadCloser, error) {
		opened = true
		return io.NopCloser(strings.NewReader("x")), nil
	}

	_, err := svc.Upload(context.Background(), UploadRequest{
		Files:     []UploadFile{f},
		ExpiresAt: "2000-01-01T00:00:00Z",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидалась ErrValidation, получили %v", err)
	}
	if opened || store.PutCalls != 0 || repo.Len() != 0 {
		t.Errorf("запись не должна начинаться: opened=%v puts=%d rows=%d", opened, store.PutCalls, repo.Len())
	}
}

func TestUpload_ShadowedPathNothingWritten(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	svc := newTestUploadService(repo, store)

	_, err := svc.Upload(context.Background(), UploadRequest{
		Files: []UploadFile{memFile("a", "", "1"), memFile("a/b", "", "2")},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидалась ErrValidation, получили %v", err)
	}
	if store.PutCalls != 0 || repo.Len() != 0 {
		t.Errorf("ничего не должно записаться: puts=%d rows=%d", store.PutCalls, repo.Len())
	}
}

func TestPlan_SiblingPrefixAllowed(t *testing.T) {
	svc := newTestUploadService(testutil.NewUploadRepo(), testutil.NewBlobStore())

	plan, err := svc.Plan(UploadRequest{Files: []UploadFile{
		memFile("a", "", "1"),
		memFile("ab/c", "", "2"),
		memFile("a-b", "", "3"),
	}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Files) != 3 {
		t.Errorf("хотели 3 файла, получили %d", len(plan.Files))
	}
}

func TestUpload_SingleFile(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	svc := newTestUploadService(repo, store)

	res, err := svc.Upload(context.Background(), UploadRequest{
		Files:   []UploadFile{memFile("a.txt", "text/plain", "hi")},
		OwnerID: "owner-1",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if res.PrimaryFileID() != "G" {
		t.Errorf("PrimaryFileID: хотели G, получили %q", res.PrimaryFileID())
	}
	if res.TotalSize != 2 {
		t.Errorf("TotalSize: хотели 2, получили %d", res.TotalSize)
	}
	if string(store.Data("G")) != "hi" {
		t.Errorf("в хранилище %q, хотели hi", store.Data("G"))
	}

	rec := repo.Get("G")
	if rec == nil {
		t.Fatal("запись не сохранена")
	}
	if rec.GroupID != "G" || rec.RelativePath != nil || rec.APIKeyID != "owner-1" {
		t.Errorf("неожиданная запись: %+v", rec)
	}
	if rec.Size != 2 || rec.ContentType != "text/plain" {
		t.Errorf("Size/ContentType: получили %d/%q", rec.Size, rec.ContentType)
	}
}

func TestUpload_DirectoryBatch(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	svc := newTestUploadService(repo, store)

	res, err := svc.Upload(context.Background(), UploadRequest{
		Files: []UploadFile{
			memFile("folder/a.txt", "text/plain", "aaa"),
			memFile("folder/b/c.txt", "", "cccc"),
		},
		Directory: true,
		ExpiresAt: time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		OwnerID:   "owner-1",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if !res.IsDirectory || res.PrimaryFileID() != "G" {
		t.Errorf("ожидалась группа G, получили dir=%v id=%q", res.IsDirectory, res.PrimaryFileID())
	}
	if res.TotalSize != 7 {
		t.Errorf("TotalSize: хотели 7, получили %d", res.TotalSize)
	}
	if repo.Len() != 2 {
		t.Fatalf("хотели 2 записи, получили %d", repo.Len())
	}

	for _, key := range []string{"G/folder/a.txt", "G/folder/b/c.txt"} {
		if !store.Has(key) {
			t.Errorf("объект %s не записан", key)
		}
		rec := repo.Get(key)
		if rec == nil {
			t.Fatalf("запись %s не найдена", key)
		}
		if rec.GroupID != "G" {
			t.Errorf("%s: GroupID %q", key, rec.GroupID)
		}
		if rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(*res.ExpiresAt) {
			t.Errorf("%s: срок должен совпадать с группой", key)
		}
	}

	c := repo.Get("G/folder/b/c.txt")
	if c.OriginalName != "c.txt" || c.RelativePath == nil || *c.RelativePath != "folder/b/c.txt" {
		t.Errorf("неожиданные имя/путь: %q %v", c.OriginalName, c.RelativePath)
	}
}

func TestUpload_PartialFailureKeepsWritten(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	svc := newTestUploadService(repo, store)

	broken := memFile("d/b.txt", "", "")
	broken.Open = func() (io.ReadCloser, error) { return nil, errors.New("диск недоступен") }

	_, err := svc.Upload(context.Background(), UploadRequest{
		Files: []UploadFile{memFile("d/a.txt", "", "a"), broken},
	})
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("ошибка хранилища не должна быть ErrValidation")
	}
	if repo.Get("G/d/a.txt") == nil || !store.Has("G/d/a.txt") {
		t.Error("уже записанный файл должен остаться")
	}
}

func TestListOwned(t *testing.T) {
	repo := testutil.NewUploadRepo()
	svc := newTestUploadService(repo, testutil.NewBlobStore())

	var ids []string
	for i := 0; i < 3; i++ {
		svc.newID = func() string { return "G" + string(rune('0'+i)) }
		res, err := svc.Upload(context.Background(), UploadRequest{
			Files:   []UploadFile{memFile("f.txt", "", "x")},
			OwnerID: "me",
		})
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		ids = append(ids, res.GroupID)
	}
	svc.newID = func() string { return "other" }
	if _, err := svc.Upload(context.Background(), UploadRequest{
		Files: []UploadFile{memFile("f.txt", "", "x")}, OwnerID: "someone",
	}); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	all, err := svc.ListOwned(context.Background(), "me", 0, 0)
	if err != nil {
		t.Fatalf("ListOwned: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("хотели 3, получили %d", len(all))
	}
	if all[0].FileID != ids[2] {
		t.Errorf("новые первыми: хотели %s, получили %s", ids[2], all[0].FileID)
	}

	page, err := svc.ListOwned(context.Background(), "me", 1, 1)
	if err != nil {
		t.Fatalf("ListOwned: %v", err)
	}
	if len(page) != 1 || page[0].FileID != ids[1] {
		t.Errorf("страница: получили %+v", page)
	}
}
