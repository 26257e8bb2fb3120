package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis запускает Redis в контейнере через testcontainers.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Не удалось запустить Redis контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Не удалось получить endpoint контейнера: %v", err)
	}

	client, err := NewClient(ctx, Options{Addr: endpoint})
	if err != nil {
		t.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLock_Exclusive(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	first := New(client, "fileshare:test:lock", time.Minute)
	second := New(client, "fileshare:test:lock", time.Minute)

	release, ok, err := first.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("первый TryAcquire: хотели успех, получили ok=%v err=%v", ok, err)
	}

	if _, ok, err := second.TryAcquire(ctx); err != nil || ok {
		t.Fatalf("второй TryAcquire: хотели отказ, получили ok=%v err=%v", ok, err)
	}

	release()

	release2, ok, err := second.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("TryAcquire после release: хотели успех, получили ok=%v err=%v", ok, err)
	}
	release2()
}

// TestRedisLock_ReleaseForeign — release не снимает чужую блокировку,
// захваченную после истечения TTL.
func TestRedisLock_ReleaseForeign(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	short := New(client, "fileshare:test:ttl", 100*time.Millisecond)
	staleRelease, ok, err := short.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("TryAcquire: ok=%v err=%v", ok, err)
	}

	time.Sleep(300 * time.Millisecond)

	other := New(client, "fileshare:test:ttl", time.Minute)
	_, ok, err = other.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("TryAcquire после TTL: ok=%v err=%v", ok, err)
	}

	staleRelease()

	exists, err := client.Exists(ctx, "fileshare:test:ttl").Result()
	if err != nil {
		t.Fatalf("Exists ошибка: %v", err)
	}
	if exists != 1 {
		t.Error("устаревший release не должен снимать чужую блокировку")
	}
}
