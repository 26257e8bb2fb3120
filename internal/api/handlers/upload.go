// upload.go — POST /upload: multipart с частями "file", полями
// expires_at и directory_upload.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/bigkaa/fileshare/internal/api/errors"
	"github.com/bigkaa/fileshare/internal/api/middleware"
	"github.com/bigkaa/fileshare/internal/service"
)

// multipartMemory — сколько данных формы держать в памяти, остальное во временных файлах.
const multipartMemory = 32 << 20

// UploadHandler — обработчик загрузки.
type UploadHandler struct {
	svc           *service.UploadService
	maxUploadSize int64
	publicURL     PublicURL
	logger        *slog.Logger
}

// NewUploadHandler создаёт обработчик загрузки.
func NewUploadHandler(svc *service.UploadService, maxUploadSize int64, publicURL PublicURL, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		svc:           svc,
		maxUploadSize: maxUploadSize,
		publicURL:     publicURL,
		logger:        logger.With(slog.String("component", "upload_handler")),
	}
}

type uploadFileResponse struct {
	URL          string `json:"url"`
	FileID       string `json:"fileId"`
	OriginalName string `json:"originalName"`
	RelativePath string `json:"relativePath,omitempty"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
}

type uploadResponse struct {
	URL         string               `json:"url"`
	FileID      string               `json:"fileId"`
	GroupID     string               `json:"groupId"`
	Size        int64                `json:"size"`
	ExpiresAt   *time.Time           `json:"expiresAt,omitempty"`
	IsDirectory bool                 `json:"isDirectory,omitempty"`
	Files       []uploadFileResponse `json:"files,omitempty"`
}

// Upload — POST /upload.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key, ok := middleware.APIKeyFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется API-ключ")
		return
	}

	if h.maxUploadSize > 0 {
		if r.ContentLength > h.maxUploadSize {
			h.tooLarge(w)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			h.tooLarge(w)
			return
		}
		apierrors.ValidationError(w, "Ожидается multipart/form-data: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, service.UploadFile{
			Name:        rawFilename(fh),
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	directory, err := parseFlag(formValue(r.MultipartForm, "directory_upload"))
	if err != nil {
		apierrors.ValidationError(w, "Некорректное значение directory_upload")
		return
	}

	result, err := h.svc.Upload(r.Context(), service.UploadRequest{
		Files:     files,
		Directory: directory,
		ExpiresAt: formValue(r.MultipartForm, "expires_at"),
		OwnerID:   key.ID,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "upload")
		return
	}

	baseURL := h.publicURL.Base(r)
	resp := uploadResponse{
		URL:         service.FileURL(baseURL, result.PrimaryFileID()),
		FileID:      result.PrimaryFileID(),
		GroupID:     result.GroupID,
		Size:        result.TotalSize,
		ExpiresAt:   result.ExpiresAt,
		IsDirectory: result.IsDirectory,
	}
	if result.IsDirectory {
		resp.Files = make([]uploadFileResponse, 0, len(result.Records))
		for _, rec := range result.Records {
			item := uploadFileResponse{
				URL:          service.FileURL(baseURL, rec.FileID),
				FileID:       rec.FileID,
				OriginalName: rec.OriginalName,
				Size:         rec.Size,
				ContentType:  rec.ContentType,
			}
			if rec.RelativePath != nil {
				item.RelativePath = *rec.RelativePath
			}
			resp.Files = append(resp.Files, item)
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *UploadHandler) tooLarge(w http.ResponseWriter) {
	err := fmt.Errorf("%w: лимит %d байт", service.ErrTooLarge, h.maxUploadSize)
	writeServiceError(w, h.logger, err, "upload")
}

// rawFilename возвращает имя файла из Content-Disposition части как есть.
// multipart.FileHeader.Filename обрезан до базового имени, а путь внутри
// директории нужен для группы.
func rawFilename(fh *multipart.FileHeader) string {
	if cd := fh.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name, ok := params["filename"]; ok {
				return name
			}
		}
	}
	return fh.Filename
}

func formValue(form *multipart.Form, name string) string {
	if vs := form.Value[name]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// parseFlag разбирает булев флаг формы: пусто — false, "on" — true.
func parseFlag(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "":
		return false, nil
	case "on", "yes":
		return true, nil
	}
	return strconv.ParseBool(v)
}
