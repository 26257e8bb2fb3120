// Пакет testutil — in-memory реализации репозиториев и хранилища объектов
// для unit-тестов сервисов и HTTP-обработчиков.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
)

// UploadRepo — потокобезопасный in-memory repository.UploadRepository.
// Поля *Err позволяют подменить ответ конкретного метода.
type UploadRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*model.Upload

	CreateErr       error
	GetErr          error
	ListErr         error
	RecordAccessErr error
	DeleteErr       error
	ListExpiredErr  error

	// DeleteFailFor — file_id, удаление которых завершается ошибкой
	DeleteFailFor map[string]error

	// sweepFailed — порядковый номер последней неудачной очистки по file_id
	sweepFailed map[string]int64
	failSeq     int64
}

var _ repository.UploadRepository = (*UploadRepo)(nil)

// NewUploadRepo создаёт пустой репозиторий.
func NewUploadRepo() *UploadRepo {
	return &UploadRepo{
		rows:        make(map[string]*model.Upload),
		sweepFailed: make(map[string]int64),
	}
}

// Put вставляет запись напрямую, минуя проверки.
func (r *UploadRepo) Put(u *model.Upload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	cp := *u
	cp.ID = r.nextID
	if cp.UploadedAt.IsZero() {
		cp.UploadedAt = time.Now().UTC()
	}
	r.rows[cp.FileID] = &cp
}

// Get возвращает копию записи или nil.
func (r *UploadRepo) Get(fileID string) *model.Upload {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[fileID]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// Len возвращает число записей.
func (r *UploadRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *UploadRepo) Create(_ context.Context, u *model.Upload) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[u.FileID]; ok {
		return fmt.Errorf("%w: file_id %s", repository.ErrConflict, u.FileID)
	}
	r.nextID++
	u.ID = r.nextID
	u.UploadedAt = time.Now().UTC()
	cp := *u
	r.rows[u.FileID] = &cp
	return nil
}

func (r *UploadRepo) GetByFileID(_ context.Context, fileID string) (*model.Upload, error) {
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	if u := r.Get(fileID); u != nil {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *UploadRepo) GetByFileIDAndOwner(_ context.Context, fileID, ownerID string) (*model.Upload, error) {
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	if u := r.Get(fileID); u != nil && u.APIKeyID == ownerID {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *UploadRepo) filter(keep func(*model.Upload) bool) []*model.Upload {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Upload
	for _, u := range r.rows {
		if keep(u) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out
}

func sortGroup(members []*model.Upload) {
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i].DisplayName(), members[j].DisplayName()
		if a != b {
			return a < b
		}
		return members[i].FileID < members[j].FileID
	})
}

func (r *UploadRepo) ListByGroup(_ context.Context, groupID string) ([]*model.Upload, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := r.filter(func(u *model.Upload) bool { return u.GroupID == groupID })
	sortGroup(out)
	return out, nil
}

func (r *UploadRepo) ListByGroupAndOwner(_ context.Context, groupID, ownerID string) ([]*model.Upload, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := r.filter(func(u *model.Upload) bool { return u.GroupID == groupID && u.APIKeyID == ownerID })
	sortGroup(out)
	return out, nil
}

func (r *UploadRepo) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]*model.Upload, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := r.filter(func(u *model.Upload) bool { return u.APIKeyID == ownerID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *UploadRepo) RecordAccess(_ context.Context, fileID string) (int64, error) {
	if r.RecordAccessErr != nil {
		return 0, r.RecordAccessErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[fileID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	now := time.Now().UTC()
	u.AccessCount++
	u.LastAccessedAt = &now
	return u.AccessCount, nil
}

func (r *UploadRepo) Delete(_ context.Context, fileID string) error {
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	if err := r.DeleteFailFor[fileID]; err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[fileID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, fileID)
	delete(r.sweepFailed, fileID)
	return nil
}

func (r *UploadRepo) DeleteByGroupAndOwner(_ context.Context, groupID, ownerID string) (int64, error) {
	if r.DeleteErr != nil {
		return 0, r.DeleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, u := range r.rows {
		if u.GroupID == groupID && u.APIKeyID == ownerID {
			delete(r.rows, id)
			delete(r.sweepFailed, id)
			n++
		}
	}
	return n, nil
}

func (r *UploadRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*model.Upload, error) {
	if r.ListExpiredErr != nil {
		return nil, r.ListExpiredErr
	}
	out := r.filter(func(u *model.Upload) bool { return u.IsExpired(now) })

	r.mu.Lock()
	failed := make(map[string]int64, len(r.sweepFailed))
	for id, seq := range r.sweepFailed {
		failed[id] = seq
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		fi, fj := failed[out[i].FileID], failed[out[j].FileID]
		if fi != fj {
			// 0 — попыток не было, такие записи первыми
			if fi == 0 || fj == 0 {
				return fi == 0
			}
			return fi < fj
		}
		if !out[i].ExpiresAt.Equal(*out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *UploadRepo) MarkSweepFailed(_ context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[fileID]; !ok {
		return repository.ErrNotFound
	}
	r.failSeq++
	r.sweepFailed[fileID] = r.failSeq
	return nil
}

// SweepFailed сообщает, отмечалась ли запись как неудачно очищенная.
func (r *UploadRepo) SweepFailed(fileID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepFailed[fileID] != 0
}

// APIKeyRepo — in-memory repository.APIKeyRepository.
type APIKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*model.APIKey

	// AuthErr — ошибка, возвращаемая Authenticate
	AuthErr error
}

var _ repository.APIKeyRepository = (*APIKeyRepo)(nil)

// NewAPIKeyRepo создаёт репозиторий с переданными ключами.
func NewAPIKeyRepo(keys ...*model.APIKey) *APIKeyRepo {
	r := &APIKeyRepo{keys: make(map[string]*model.APIKey)}
	for _, k := range keys {
		cp := *k
		r.keys[k.ID] = &cp
	}
	return r
}

// Get возвращает копию ключа по id или nil.
func (r *APIKeyRepo) Get(id string) *model.APIKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return nil
	}
	cp := *k
	return &cp
}

func (r *APIKeyRepo) Create(_ context.Context, k *model.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.keys {
		if existing.Key == k.Key {
			return repository.ErrConflict
		}
	}
	k.CreatedAt = time.Now().UTC()
	cp := *k
	r.keys[k.ID] = &cp
	return nil
}

func (r *APIKeyRepo) Authenticate(_ context.Context, key string) (*model.APIKey, error) {
	if r.AuthErr != nil {
		return nil, r.AuthErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.Key == key && k.IsActive {
			now := time.Now().UTC()
			k.LastUsed = &now
			cp := *k
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *APIKeyRepo) List(_ context.Context) ([]*model.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.APIKey, 0, len(r.keys))
	for _, k := range r.keys {
		cp := *k
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *APIKeyRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return repository.ErrNotFound
	}
	k.IsActive = false
	return nil
}
