// Пакет lock — распределённая блокировка на Redis, чтобы при нескольких
// репликах сервиса очистку выполняла только одна.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript удаляет ключ, только если он всё ещё принадлежит владельцу токена.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLock — аренда ключа в Redis с TTL (SET NX PX).
type RedisLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// Options — параметры подключения к Redis.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient создаёт клиент Redis и проверяет подключение.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// New создаёт блокировку на ключе key. ttl ограничивает время удержания,
// если держатель упал, не освободив её.
func New(client redis.UniversalClient, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, key: key, ttl: ttl}
}

// TryAcquire пытается занять блокировку без ожидания.
// acquired=false без ошибки — блокировку держит другой процесс.
// release освобождает блокировку, только если она всё ещё наша.
func (l *RedisLock) TryAcquire(ctx context.Context) (release func(), acquired bool, err error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("ошибка захвата блокировки %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		// Контекст запроса мог быть уже отменён — освобождаем независимо
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return release, true, nil
}
