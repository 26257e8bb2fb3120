// auth.go — проверка bearer-ключа для операций загрузки, удаления и списка.
// Нет заголовка или неверный формат — 401, неизвестный или выключенный
// ключ — 403, ошибка хранилища — 500.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/service"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyAPIKey — ключ для аутентифицированного *model.APIKey в контексте.
const ContextKeyAPIKey contextKey = "api_key"

// Authenticator проверяет секрет. ErrInvalidToken — ключ недействителен.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.APIKey, error)
}

// BearerAuth — middleware аутентификации по API-ключу.
type BearerAuth struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewBearerAuth создаёт middleware.
func NewBearerAuth(auth Authenticator, logger *slog.Logger) *BearerAuth {
	return &BearerAuth{
		auth:   auth,
		logger: logger.With(slog.String("component", "bearer_auth")),
	}
}

// Middleware возвращает HTTP middleware. Ключ помещается в контекст запроса.
func (b *BearerAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(w, r)
			if !ok {
				return
			}

			key, err := b.auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrInvalidToken) {
					b.logger.Debug("Недействительный API-ключ",
						slog.String("remote_addr", r.RemoteAddr),
					)
					apierrors.Forbidden(w, "Недействительный API-ключ")
					return
				}
				b.logger.Error("Ошибка проверки API-ключа",
					slog.String("error", err.Error()),
				)
				apierrors.InternalError(w, "Внутренняя ошибка сервера")
				return
			}

			ctx := WithAPIKey(r.Context(), key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken извлекает токен из Authorization. При ошибке пишет 401.
func bearerToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		apierrors.Unauthorized(w, "Пустой Bearer token")
		return "", false
	}
	return token, true
}

// APIKeyFromContext возвращает ключ, помещённый BearerAuth.
func APIKeyFromContext(ctx context.Context) (*model.APIKey, bool) {
	key, ok := ctx.Value(ContextKeyAPIKey).(*model.APIKey)
	return key, ok && key != nil
}

// WithAPIKey помещает ключ в контекст.
func WithAPIKey(ctx context.Context, key *model.APIKey) context.Context {
	return context.WithValue(ctx, ContextKeyAPIKey, key)
}
