// list.go — GET /list: загрузки владельца с вычисленными URL и сроком.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
	"github.com/bigkaa/fileshare/internal/api/middleware"
	"github.com/bigkaa/fileshare/internal/service"
)

// ListHandler — список загрузок владельца.
type ListHandler struct {
	svc       *service.UploadService
	publicURL PublicURL
	logger    *slog.Logger
	now       func() time.Time
}

// NewListHandler создаёт обработчик списка.
func NewListHandler(svc *service.UploadService, publicURL PublicURL, logger *slog.Logger) *ListHandler {
	return &ListHandler{
		svc:       svc,
		publicURL: publicURL,
		logger:    logger.With(slog.String("component", "list_handler")),
		now:       time.Now,
	}
}

type listItem struct {
	URL            string     `json:"url"`
	FileID         string     `json:"fileId"`
	GroupID        string     `json:"groupId"`
	OriginalName   string     `json:"originalName"`
	RelativePath   *string    `json:"relativePath,omitempty"`
	Size           int64      `json:"size"`
	ContentType    string     `json:"contentType"`
	UploadedAt     time.Time  `json:"uploadedAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
	AccessCount    int64      `json:"accessCount"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	ExpiresIn      string     `json:"expiresIn,omitempty"`
}

type listResponse struct {
	Files []listItem `json:"files"`
	Count int        `json:"count"`
}

// List — GET /list[?limit=N&offset=M]. Без limit возвращаются все записи.
func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	key, ok := middleware.APIKeyFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется API-ключ")
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		apierrors.ValidationError(w, "Некорректный limit")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		apierrors.ValidationError(w, "Некорректный offset")
		return
	}

	records, err := h.svc.ListOwned(r.Context(), key.ID, limit, offset)
	if err != nil {
		writeServiceError(w, h.logger, err, "list")
		return
	}

	baseURL := h.publicURL.Base(r)
	now := h.now()
	resp := listResponse{Files: make([]listItem, 0, len(records)), Count: len(records)}
	for _, rec := range records {
		resp.Files = append(resp.Files, listItem{
			URL:            service.FileURL(baseURL, rec.FileID),
			FileID:         rec.FileID,
			GroupID:        rec.GroupID,
			OriginalName:   rec.OriginalName,
			RelativePath:   rec.RelativePath,
			Size:           rec.Size,
			ContentType:    rec.ContentType,
			UploadedAt:     rec.UploadedAt,
			LastAccessedAt: rec.LastAccessedAt,
			AccessCount:    rec.AccessCount,
			ExpiresAt:      rec.ExpiresAt,
			ExpiresIn:      service.FormatRemaining(rec.ExpiresAt, now),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// queryInt разбирает неотрицательный целый параметр; отсутствие — 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
