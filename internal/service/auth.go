// auth.go — проверка bearer-ключей и их администрирование.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
)

// KeyPrefix — префикс выдаваемых секретов.
const KeyPrefix = "fs_"

// keyEntropyBytes — длина случайной части секрета.
const keyEntropyBytes = 32

// AuthService — сервис API-ключей.
type AuthService struct {
	repo   repository.APIKeyRepository
	logger *slog.Logger
}

// NewAuthService создаёт сервис API-ключей.
func NewAuthService(repo repository.APIKeyRepository, logger *slog.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		logger: logger.With(slog.String("component", "auth")),
	}
}

// Authenticate проверяет секрет и отмечает время использования ключа.
// ErrInvalidToken — ключа нет или он выключен.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.APIKey, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	key, err := s.repo.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("проверка API-ключа: %w", err)
	}
	return key, nil
}

// CreateKey выпускает новый активный ключ. Секрет возвращается только здесь.
func (s *AuthService) CreateKey(ctx context.Context, name string) (*model.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: имя ключа не может быть пустым", ErrValidation)
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}

	key := &model.APIKey{
		ID:       uuid.NewString(),
		Key:      secret,
		Name:     name,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("создание API-ключа: %w", err)
	}

	s.logger.Info("API-ключ создан",
		slog.String("key_id", key.ID),
		slog.String("name", key.Name),
	)
	return key, nil
}

// ListKeys возвращает все ключи.
func (s *AuthService) ListKeys(ctx context.Context) ([]*model.APIKey, error) {
	keys, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("список API-ключей: %w", err)
	}
	return keys, nil
}

// DeactivateKey выключает ключ по id. Загрузки ключа остаются.
func (s *AuthService) DeactivateKey(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: некорректный id ключа %q", ErrValidation, id)
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("деактивация API-ключа: %w", err)
	}
	s.logger.Info("API-ключ деактивирован", slog.String("key_id", id))
	return nil
}

// MaskKey скрывает секрет для вывода: префикс и последние 4 символа.
func MaskKey(secret string) string {
	if len(secret) <= len(KeyPrefix)+4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:len(KeyPrefix)] + "…" + secret[len(secret)-4:]
}

func generateSecret() (string, error) {
	buf := make([]byte, keyEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("генерация секрета: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}
