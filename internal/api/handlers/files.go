// files.go — GET /f/{key} (файл или листинг группы) и DELETE /f/{key}.
package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
	"github.com/bigkaa/fileshare/internal/api/middleware"
	"github.com/bigkaa/fileshare/internal/service"
)

// filesPrefix — префикс маршрута файлов.
const filesPrefix = "/f/"

// FilesHandler — выдача и удаление по ключу.
type FilesHandler struct {
	retrieval *service.RetrievalService
	deletion  *service.DeletionService
	publicURL PublicURL
	logger    *slog.Logger
	now       func() time.Time
}

// NewFilesHandler создаёт обработчик.
func NewFilesHandler(
	retrieval *service.RetrievalService,
	deletion *service.DeletionService,
	publicURL PublicURL,
	logger *slog.Logger,
) *FilesHandler {
	return &FilesHandler{
		retrieval: retrieval,
		deletion:  deletion,
		publicURL: publicURL,
		logger:    logger.With(slog.String("component", "files_handler")),
		now:       time.Now,
	}
}

// requestKey извлекает ключ из пути. Ключ декодируется ровно один раз:
// %2F становится "/", %252F остаётся "%2F".
func requestKey(r *http.Request) (string, bool) {
	escaped := r.URL.EscapedPath()
	if !strings.HasPrefix(escaped, filesPrefix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(escaped, filesPrefix))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// Get — GET /f/{key}.
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := requestKey(r)
	if !ok {
		apierrors.NotFound(w, notFoundMessage)
		return
	}

	res, err := h.retrieval.Retrieve(r.Context(), key)
	if err != nil {
		writeServiceError(w, h.logger, err, "retrieve")
		return
	}

	if res.Listing != nil {
		h.writeListing(w, r, res.Listing)
		return
	}
	h.writeDownload(w, r, res.Download)
}

func (h *FilesHandler) writeListing(w http.ResponseWriter, r *http.Request, l *service.Listing) {
	var buf bytes.Buffer
	if err := service.RenderListing(r.Context(), &buf, l, h.publicURL.Base(r), h.now()); err != nil {
		writeServiceError(w, h.logger, err, "render_listing")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *FilesHandler) writeDownload(w http.ResponseWriter, r *http.Request, d *service.Download) {
	defer d.Object.Body.Close()

	rec := d.Record
	header := w.Header()
	header.Set("Content-Type", rec.ContentType)
	header.Set("Content-Disposition", service.ContentDisposition(rec.ContentType, rec.OriginalName))
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Content-Security-Policy", "sandbox")
	header.Set("Cache-Control", "no-store")

	if rs, ok := d.Object.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, "", d.Object.ModTime, rs)
		return
	}

	if d.Object.Size >= 0 {
		header.Set("Content-Length", strconv.FormatInt(d.Object.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, d.Object.Body); err != nil {
		h.logger.Warn("Передача файла прервана",
			slog.String("file_id", rec.FileID),
			slog.String("error", err.Error()),
		)
	}
}

type deleteFailure struct {
	FileID string `json:"fileId"`
	Reason string `json:"reason"`
}

type deleteResponse struct {
	Success        bool            `json:"success"`
	FileID         string          `json:"fileId,omitempty"`
	GroupID        string          `json:"groupId,omitempty"`
	DeletedCount   int64           `json:"deletedCount"`
	BlobsAttempted int             `json:"blobsAttempted"`
	BlobsDeleted   int             `json:"blobsDeleted"`
	Failed         []deleteFailure `json:"failed,omitempty"`
}

// Delete — DELETE /f/{key}. Только владелец.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := middleware.APIKeyFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется API-ключ")
		return
	}

	key, ok := requestKey(r)
	if !ok {
		apierrors.NotFound(w, notFoundMessage)
		return
	}

	report, err := h.deletion.Delete(r.Context(), key, apiKey.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "delete")
		return
	}

	resp := deleteResponse{
		Success:        true,
		FileID:         report.FileID,
		GroupID:        report.GroupID,
		DeletedCount:   report.RowsDeleted,
		BlobsAttempted: report.Attempted,
		BlobsDeleted:   report.Succeeded,
	}
	for _, f := range report.Failed {
		// Причина уже в логе сервиса, клиенту — только факт
		resp.Failed = append(resp.Failed, deleteFailure{FileID: f.FileID, Reason: "не удалось удалить объект"})
	}

	writeJSON(w, http.StatusOK, resp)
}
