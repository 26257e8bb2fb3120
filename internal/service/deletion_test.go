package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/testutil"
)

func seedGroup(repo *testutil.UploadRepo, store *testutil.BlobStore, groupID, owner string, names ...string) {
	for _, n := range names {
		id := groupID + "/" + n
		repo.Put(&model.Upload{FileID: id, GroupID: groupID, OriginalName: n, RelativePath: strPtr(n), APIKeyID: owner})
		store.Seed(id, []byte(n), "")
	}
}

func newTestDeletion(repo *testutil.UploadRepo, store *testutil.BlobStore, cache *CacheService) *DeletionService {
	return NewDeletionService(NewResolver(repo, cache), repo, store, testLogger())
}

func TestDelete_SingleFile(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	repo.Put(&model.Upload{FileID: "f1", GroupID: "f1", APIKeyID: "owner"})
	store.Seed("f1", []byte("x"), "")

	report, err := newTestDeletion(repo, store, nil).Delete(context.Background(), "f1", "owner")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if report.Kind != ResolvedSingle || report.FileID != "f1" || report.RowsDeleted != 1 {
		t.Errorf("неожиданный отчёт: %+v", report)
	}
	if store.Has("f1") || repo.Get("f1") != nil {
		t.Error("объект и запись должны быть удалены")
	}
}

func TestDelete_SingleBlobFailureKeepsMetadata(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	repo.Put(&model.Upload{FileID: "f1", GroupID: "f1", APIKeyID: "owner"})
	store.Seed("f1", []byte("x"), "")
	store.DeleteFailFor = map[string]error{"f1": errors.New("timeout")}

	_, err := newTestDeletion(repo, store, nil).Delete(context.Background(), "f1", "owner")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась внутренняя ошибка, получили %v", err)
	}
	if repo.Get("f1") == nil {
		t.Error("метаданные не удаляются, если объект удалить не удалось")
	}
}

func TestDelete_GroupRemovesAll(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	seedGroup(repo, store, "G", "owner", "a.txt", "b/c.txt", "d.txt")

	svc := newTestDeletion(repo, store, nil)
	report, err := svc.Delete(context.Background(), "G", "owner")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if report.Kind != ResolvedGroup || report.Attempted != 3 || report.Succeeded != 3 || report.RowsDeleted != 3 {
		t.Errorf("неожиданный отчёт: %+v", report)
	}
	if store.Len() != 0 || repo.Len() != 0 {
		t.Errorf("должно быть пусто: objects=%d rows=%d", store.Len(), repo.Len())
	}

	retrieval := newTestRetrieval(repo, store, nil)
	for _, key := range []string{"G", "G/a.txt", "G/b/c.txt"} {
		if _, err := retrieval.Retrieve(context.Background(), key); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: после удаления ожидалась ErrNotFound, получили %v", key, err)
		}
	}
}

func TestDelete_GroupBestEffort(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	seedGroup(repo, store, "G", "owner", "a", "b", "c")
	store.DeleteFailFor = map[string]error{"G/b": errors.New("access denied")}

	report, err := newTestDeletion(repo, store, nil).Delete(context.Background(), "G", "owner")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if report.Attempted != 3 || report.Succeeded != 2 {
		t.Errorf("Attempted/Succeeded: получили %d/%d", report.Attempted, report.Succeeded)
	}
	if len(report.Failed) != 1 || report.Failed[0].FileID != "G/b" || report.Failed[0].Reason == "" {
		t.Errorf("Failed: получили %+v", report.Failed)
	}
	if report.RowsDeleted != 3 || repo.Len() != 0 {
		t.Errorf("все строки группы удаляются: rows=%d left=%d", report.RowsDeleted, repo.Len())
	}
}

func TestDelete_OtherOwnerLooksLikeMissing(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	repo.Put(&model.Upload{FileID: "f1", GroupID: "f1", APIKeyID: "owner"})
	store.Seed("f1", []byte("x"), "")
	seedGroup(repo, store, "G", "owner", "a")

	svc := newTestDeletion(repo, store, nil)
	for _, key := range []string{"f1", "G", "does-not-exist"} {
		_, err := svc.Delete(context.Background(), key, "intruder")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: ожидалась ErrNotFound, получили %v", key, err)
		}
	}
	if !store.Has("f1") || repo.Get("f1") == nil || repo.Get("G/a") == nil {
		t.Error("чужие данные не должны пострадать")
	}
	if store.DeleteCalls != 0 {
		t.Errorf("хранилище не должно вызываться, вызовов: %d", store.DeleteCalls)
	}
}

func TestDelete_MemberByExactID(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	seedGroup(repo, store, "G", "owner", "a", "b")

	report, err := newTestDeletion(repo, store, nil).Delete(context.Background(), "G/a", "owner")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if report.Kind != ResolvedSingle {
		t.Errorf("ожидалось удаление одного файла, получили %v", report.Kind)
	}
	if repo.Get("G/b") == nil {
		t.Error("остальные члены группы остаются")
	}
}

func TestDelete_InvalidatesCache(t *testing.T) {
	repo := testutil.NewUploadRepo()
	store := testutil.NewBlobStore()
	repo.Put(&model.Upload{FileID: "f1", GroupID: "f1", APIKeyID: "owner"})
	store.Seed("f1", []byte("x"), "")

	cache := NewCacheService(10, time.Minute)
	resolver := NewResolver(repo, cache)
	retrieval := NewRetrievalService(resolver, repo, store, testLogger())
	deletion := NewDeletionService(resolver, repo, store, testLogger())

	res, err := retrieval.Retrieve(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	res.Download.Object.Body.Close()

	if _, err := deletion.Delete(context.Background(), "f1", "owner"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if cache.Len() != 0 {
		t.Error("кэш должен быть сброшен")
	}
	if _, err := retrieval.Retrieve(context.Background(), "f1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получили %v", err)
	}
}
