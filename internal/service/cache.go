// cache.go — LRU-кэш записей одиночных файлов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш записей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша записей.",
	})
)

// CacheService — кэш записей по file_id. Кэш у каждой реплики свой;
// группы не кэшируются, листинг строится на каждый запрос.
type CacheService struct {
	cache *expirable.LRU[string, *model.Upload]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	return &CacheService{cache: expirable.NewLRU[string, *model.Upload](maxSize, nil, ttl)}
}

// Get возвращает запись из кэша по fileID.
func (c *CacheService) Get(fileID string) (*model.Upload, bool) {
	if c == nil {
		return nil, false
	}
	val, ok := c.cache.Get(fileID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(fileID string, record *model.Upload) {
	if c == nil {
		return
	}
	c.cache.Add(fileID, record)
}

// Delete удаляет запись из кэша (удаление, истечение, расхождение с хранилищем).
func (c *CacheService) Delete(fileID string) {
	if c == nil {
		return
	}
	c.cache.Remove(fileID)
}

// Len возвращает текущее количество записей.
func (c *CacheService) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
