// respond.go — общие функции ответа: JSON, сопоставление ошибок сервисного
// слоя с HTTP-статусами, вычисление публичного базового URL.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
	"github.com/bigkaa/fileshare/internal/service"
)

// notFoundMessage — одинаковый ответ для несуществующего и чужого ключа.
const notFoundMessage = "Файл не найден или доступ запрещён"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError пишет ответ по ошибке сервисного слоя. Ошибки
// хранилищ логируются целиком, клиент получает только общий текст.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrTooLarge):
		apierrors.FileTooLarge(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, notFoundMessage)
	case errors.Is(err, service.ErrGone):
		apierrors.Gone(w, "Срок хранения файла истёк")
	case errors.Is(err, service.ErrInvalidToken):
		apierrors.Forbidden(w, "Недействительный API-ключ")
	default:
		logger.Error("Ошибка выполнения операции",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// PublicURL определяет публичный базовый URL для ссылок в ответах.
type PublicURL struct {
	// Configured — FS_PUBLIC_BASE_URL; если задан, запрос не учитывается.
	Configured string
	// TrustForwarded разрешает X-Forwarded-Proto/X-Forwarded-Host.
	// Включать только за прокси, который перезаписывает эти заголовки.
	TrustForwarded bool
}

// Base возвращает базовый URL: настроенный, либо вычисленный из запроса
// (TLS и Host, а при TrustForwarded ещё и заголовки прокси).
// Вычисляется один раз на запрос и передаётся в сервисный слой.
func (p PublicURL) Base(r *http.Request) string {
	if p.Configured != "" {
		return strings.TrimRight(p.Configured, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if p.TrustForwarded {
		if proto := firstHeaderValue(r, "X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}
		if fwd := firstHeaderValue(r, "X-Forwarded-Host"); fwd != "" {
			host = fwd
		}
	}
	return scheme + "://" + host
}

// firstHeaderValue — первое значение списка через запятую, в нижнем регистре.
func firstHeaderValue(r *http.Request, name string) string {
	v := r.Header.Get(name)
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
