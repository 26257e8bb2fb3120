// Пакет config — загрузка и валидация конфигурации fileshare
// из переменных окружения (префикс FS_).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые бэкенды объектного хранилища.
const (
	BackendLocal = "local"
	BackendMinio = "minio"
	BackendS3    = "s3"
)

// Config содержит все параметры конфигурации fileshare.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Публичный базовый URL для ссылок на файлы.
	// Пустое значение — URL вычисляется из запроса.
	PublicBaseURL string
	// Учитывать X-Forwarded-Proto/X-Forwarded-Host при пустом PublicBaseURL.
	// Включать только за доверенным прокси.
	TrustForwardedHeaders bool

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Объектное хранилище ---

	// Бэкенд: local, minio, s3
	StorageBackend string
	// Корневая директория для бэкенда local
	DataDir string
	// Endpoint S3-совместимого хранилища (host:port для minio, URL для s3)
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	// Path-style адресация бакета (нужна для большинства self-hosted S3)
	S3PathStyle bool

	// --- Загрузка ---

	// Максимальный размер тела multipart-запроса в байтах
	MaxUploadSize int64

	// --- Очистка ---

	// Период встроенного sweeper. 0 — отключён, очистка только через CLI.
	SweepInterval time.Duration
	// Redis для распределённой блокировки sweeper (опционально)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// TTL блокировки sweeper в Redis
	SweepLockTTL time.Duration

	// --- Кэш ---

	CacheSize int
	CacheTTL  time.Duration

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("FS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("FS_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("FS_PORT: порт %d вне диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FS_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("FS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FS_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.PublicBaseURL = strings.TrimRight(os.Getenv("FS_PUBLIC_BASE_URL"), "/")
	if cfg.PublicBaseURL != "" {
		u, parseErr := url.Parse(cfg.PublicBaseURL)
		if parseErr != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("FS_PUBLIC_BASE_URL: некорректный URL %q", cfg.PublicBaseURL)
		}
	}
	cfg.TrustForwardedHeaders, err = getEnvBool("FS_TRUST_FORWARDED_HEADERS", false)
	if err != nil {
		return nil, fmt.Errorf("FS_TRUST_FORWARDED_HEADERS: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("FS_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("FS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("FS_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("FS_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("FS_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("FS_DB_PASSWORD"); err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("FS_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("FS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Объектное хранилище ---

	cfg.StorageBackend = strings.ToLower(getEnvDefault("FS_STORAGE_BACKEND", BackendLocal))
	cfg.DataDir = getEnvDefault("FS_DATA_DIR", "/var/lib/fileshare")
	cfg.S3Endpoint = os.Getenv("FS_S3_ENDPOINT")
	cfg.S3Region = getEnvDefault("FS_S3_REGION", "us-east-1")
	cfg.S3Bucket = os.Getenv("FS_S3_BUCKET")
	cfg.S3AccessKey = os.Getenv("FS_S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("FS_S3_SECRET_KEY")
	cfg.S3UseSSL, err = getEnvBool("FS_S3_USE_SSL", true)
	if err != nil {
		return nil, fmt.Errorf("FS_S3_USE_SSL: %w", err)
	}
	cfg.S3PathStyle, err = getEnvBool("FS_S3_PATH_STYLE", false)
	if err != nil {
		return nil, fmt.Errorf("FS_S3_PATH_STYLE: %w", err)
	}

	switch cfg.StorageBackend {
	case BackendLocal:
	case BackendMinio:
		if cfg.S3Endpoint == "" {
			return nil, fmt.Errorf("FS_S3_ENDPOINT: обязателен для бэкенда %s", BackendMinio)
		}
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("FS_S3_BUCKET: обязателен для бэкенда %s", BackendMinio)
		}
	case BackendS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("FS_S3_BUCKET: обязателен для бэкенда %s", BackendS3)
		}
	default:
		return nil, fmt.Errorf("FS_STORAGE_BACKEND: недопустимое значение %q, допустимые: local, minio, s3", cfg.StorageBackend)
	}

	// --- Загрузка ---

	cfg.MaxUploadSize, err = getEnvInt64("FS_MAX_UPLOAD_SIZE", 1<<30)
	if err != nil {
		return nil, fmt.Errorf("FS_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("FS_MAX_UPLOAD_SIZE: значение должно быть > 0")
	}

	// --- Очистка ---

	cfg.SweepInterval, err = getEnvDuration("FS_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FS_SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepInterval < 0 {
		return nil, fmt.Errorf("FS_SWEEP_INTERVAL: значение не может быть отрицательным")
	}
	cfg.RedisAddr = os.Getenv("FS_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("FS_REDIS_PASSWORD")
	cfg.RedisDB, err = getEnvInt("FS_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("FS_REDIS_DB: %w", err)
	}
	cfg.SweepLockTTL, err = getEnvDuration("FS_SWEEP_LOCK_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FS_SWEEP_LOCK_TTL: %w", err)
	}

	// --- Кэш ---

	cfg.CacheSize, err = getEnvInt("FS_CACHE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("FS_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("FS_CACHE_SIZE: значение должно быть > 0")
	}
	cfg.CacheTTL, err = getEnvDuration("FS_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_CACHE_TTL: %w", err)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("FS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_HTTP_READ_TIMEOUT: %w", err)
	}
	// 0 — без ограничения: большие файлы стримятся дольше любого разумного таймаута
	cfg.HTTPWriteTimeout, err = getEnvDuration("FS_HTTP_WRITE_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("FS_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("FS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_HTTP_IDLE_TIMEOUT: %w", err)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("FS_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("FS_DEPHEALTH_GROUP", "fileshare")
	cfg.DephealthCheckInterval, err = getEnvDuration("FS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// RedisEnabled сообщает, настроена ли распределённая блокировка sweeper.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
