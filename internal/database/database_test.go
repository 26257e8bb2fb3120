package database

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/fileshare/internal/config"
)

// setupTestDB запускает PostgreSQL в Docker-контейнере через testcontainers.
func setupTestDB(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("fileshare_test"),
		postgres.WithUsername("fileshare"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}
	portNum, _ := strconv.Atoi(port.Port())

	return &config.Config{
		DBHost:     host,
		DBPort:     portNum,
		DBName:     "fileshare_test",
		DBUser:     "fileshare",
		DBPassword: "test-password",
		DBSSLMode:  "disable",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg := setupTestDB(t)
	logger := testLogger()

	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("первый Migrate() ошибка: %v", err)
	}
	// Повторное применение — ErrNoChange не считается ошибкой
	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("повторный Migrate() ошибка: %v", err)
	}

	ctx := context.Background()
	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() ошибка: %v", err)
	}
	defer pool.Close()

	for _, table := range []string{"api_keys", "uploads"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		if err != nil {
			t.Fatalf("проверка таблицы %s: %v", table, err)
		}
		if !exists {
			t.Errorf("таблица %s не создана", table)
		}
	}

	for _, index := range []string{"idx_uploads_expires_at", "idx_uploads_sweep_order"} {
		var indexDef string
		err = pool.QueryRow(ctx,
			`SELECT indexdef FROM pg_indexes WHERE indexname = $1`, index,
		).Scan(&indexDef)
		if err != nil {
			t.Fatalf("индекс %s не найден: %v", index, err)
		}
	}

	checker := NewReadinessChecker(pool)
	if status, msg := checker.CheckReady(); status != "ok" {
		t.Errorf("CheckReady: хотели ok, получили %s (%s)", status, msg)
	}
}

func TestPoolStatus(t *testing.T) {
	tests := []struct {
		acquired, limit int32
		want            string
	}{
		{0, 4, "ok"},
		{3, 4, "ok"},
		{4, 4, "degraded"},
		{0, 0, "ok"},
	}
	for _, tt := range tests {
		if got, _ := poolStatus(tt.acquired, tt.limit); got != tt.want {
			t.Errorf("poolStatus(%d, %d): хотели %s, получили %s", tt.acquired, tt.limit, tt.want, got)
		}
	}
}
