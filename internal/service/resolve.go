// resolve.go — разрешение ключа запроса в одиночный файл или группу.
// Используется и при скачивании, и при удалении.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
)

// ResolutionKind — результат разрешения ключа.
type ResolutionKind int

const (
	// ResolvedNotFound — ни файла, ни группы с таким ключом
	ResolvedNotFound ResolutionKind = iota
	// ResolvedSingle — ключ совпал с file_id
	ResolvedSingle
	// ResolvedGroup — ключ совпал с group_id
	ResolvedGroup
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolvedSingle:
		return "single"
	case ResolvedGroup:
		return "group"
	default:
		return "not_found"
	}
}

// Resolution — размеченный результат: Record заполнен для ResolvedSingle,
// Members (непустой) — для ResolvedGroup.
type Resolution struct {
	Kind    ResolutionKind
	Record  *model.Upload
	Members []*model.Upload
}

// Resolver — двухшаговый поиск: сначала точный file_id, затем group_id.
type Resolver struct {
	repo  repository.UploadRepository
	cache *CacheService
}

// NewResolver создаёт Resolver. cache может быть nil.
func NewResolver(repo repository.UploadRepository, cache *CacheService) *Resolver {
	return &Resolver{repo: repo, cache: cache}
}

// Resolve ищет ключ без учёта владельца (публичное скачивание).
// Одиночные записи берутся из кэша, если он есть.
func (r *Resolver) Resolve(ctx context.Context, key string) (Resolution, error) {
	if rec, ok := r.cache.Get(key); ok {
		return Resolution{Kind: ResolvedSingle, Record: rec}, nil
	}

	rec, err := r.repo.GetByFileID(ctx, key)
	switch {
	case err == nil:
		r.cache.Set(key, rec)
		return Resolution{Kind: ResolvedSingle, Record: rec}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return Resolution{}, fmt.Errorf("поиск файла %s: %w", key, err)
	}

	members, err := r.repo.ListByGroup(ctx, key)
	if err != nil {
		return Resolution{}, fmt.Errorf("поиск группы %s: %w", key, err)
	}
	if len(members) == 0 {
		return Resolution{Kind: ResolvedNotFound}, nil
	}
	return Resolution{Kind: ResolvedGroup, Members: members}, nil
}

// ResolveOwned ищет ключ только среди записей владельца. Чужой ключ
// неотличим от несуществующего. Кэш не используется.
func (r *Resolver) ResolveOwned(ctx context.Context, key, ownerID string) (Resolution, error) {
	rec, err := r.repo.GetByFileIDAndOwner(ctx, key, ownerID)
	switch {
	case err == nil:
		return Resolution{Kind: ResolvedSingle, Record: rec}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return Resolution{}, fmt.Errorf("поиск файла владельца %s: %w", key, err)
	}

	members, err := r.repo.ListByGroupAndOwner(ctx, key, ownerID)
	if err != nil {
		return Resolution{}, fmt.Errorf("поиск группы владельца %s: %w", key, err)
	}
	if len(members) == 0 {
		return Resolution{Kind: ResolvedNotFound}, nil
	}
	return Resolution{Kind: ResolvedGroup, Members: members}, nil
}

// Forget сбрасывает закэшированные записи.
func (r *Resolver) Forget(fileIDs ...string) {
	if r == nil {
		return
	}
	for _, id := range fileIDs {
		r.cache.Delete(id)
	}
}
