// upload.go — планирование и выполнение загрузки: одиночный файл или
// группа-директория, ключи объектов, проверка срока хранения.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/domain/keypath"
	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/storage/blob"
)

// MaxExpiry — максимальный горизонт срока хранения.
const MaxExpiry = 30 * 24 * time.Hour

// Prometheus-метрики загрузки.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_uploads_total",
		Help: "Количество вызовов загрузки по результату",
	}, []string{"result"})

	uploadFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_upload_files_total",
		Help: "Количество сохранённых файлов",
	})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_upload_bytes_total",
		Help: "Объём сохранённых данных в байтах",
	})
)

// UploadFile — одна часть multipart-запроса.
type UploadFile struct {
	// Name — имя файла от клиента, может содержать путь
	Name string
	// ContentType — объявленный MIME-тип, пусто — application/octet-stream
	ContentType string
	// Size — объявленный размер, -1 если неизвестен
	Size int64
	// Open открывает поток данных; вызывается только после успешной валидации
	Open func() (io.ReadCloser, error)
}

// UploadRequest — параметры вызова загрузки.
type UploadRequest struct {
	Files []UploadFile
	// Directory — явный признак загрузки директории
	Directory bool
	// ExpiresAt — срок хранения в ISO-8601, пусто — бессрочно
	ExpiresAt string
	OwnerID   string
}

// PlannedFile — файл с вычисленным ключом.
type PlannedFile struct {
	FileID string
	// RelativePath — путь внутри группы, пусто для одиночной загрузки
	RelativePath string
	OriginalName string
	ContentType  string
	Source       UploadFile
}

// UploadPlan — план загрузки: все решения приняты до первой записи.
type UploadPlan struct {
	GroupID     string
	IsDirectory bool
	ExpiresAt   *time.Time
	Files       []PlannedFile
}

// UploadResult — итог загрузки.
type UploadResult struct {
	GroupID     string
	IsDirectory bool
	// TotalSize — сумма фактических размеров всех файлов
	TotalSize int64
	ExpiresAt *time.Time
	// Records — сохранённые записи в порядке входных файлов
	Records []*model.Upload
}

// PrimaryFileID — ключ, по которому доступна загрузка целиком:
// group_id для директории, file_id для одиночного файла.
func (r *UploadResult) PrimaryFileID() string {
	if !r.IsDirectory && len(r.Records) == 1 {
		return r.Records[0].FileID
	}
	return r.GroupID
}

// UploadService — сервис загрузки файлов.
type UploadService struct {
	repo   repository.UploadRepository
	store  blob.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewUploadService создаёт сервис загрузки.
func NewUploadService(repo repository.UploadRepository, store blob.Store, logger *slog.Logger) *UploadService {
	return &UploadService{
		repo:   repo,
		store:  store,
		logger: logger.With(slog.String("component", "upload")),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ParseExpiry разбирает срок хранения. Пустая строка — бессрочно.
// Срок должен быть строго в будущем и не дальше MaxExpiry от now.
func ParseExpiry(raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var (
		t   time.Time
		err error
	)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		t, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: некорректный expires_at %q, ожидается ISO-8601", ErrValidation, raw)
	}

	t = t.UTC()
	if !t.After(now) {
		return nil, fmt.Errorf("%w: expires_at должен быть в будущем", ErrValidation)
	}
	if t.After(now.Add(MaxExpiry)) {
		return nil, fmt.Errorf("%w: expires_at не может быть дальше чем через 30 дней", ErrValidation)
	}
	return &t, nil
}

// Plan проверяет запрос и вычисляет ключи. Ничего не пишет.
func (s *UploadService) Plan(req UploadRequest) (*UploadPlan, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: не передано ни одного файла", ErrValidation)
	}

	expiresAt, err := ParseExpiry(req.ExpiresAt, s.now())
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(req.Files))
	isDirectory := req.Directory || len(req.Files) > 1
	for i, f := range req.Files {
		paths[i] = keypath.Sanitize(f.Name)
		if keypath.IsNested(paths[i]) {
			isDirectory = true
		}
	}

	plan := &UploadPlan{
		GroupID:     s.newID(),
		IsDirectory: isDirectory,
		ExpiresAt:   expiresAt,
		Files:       make([]PlannedFile, 0, len(req.Files)),
	}

	seen := make(map[string]bool, len(req.Files))
	for i, f := range req.Files {
		rel := paths[i]
		if rel == "" {
			rel = "file-" + strconv.Itoa(i+1)
		}

		pf := PlannedFile{
			OriginalName: keypath.Leaf(rel),
			ContentType:  f.ContentType,
			Source:       f,
		}
		if pf.ContentType == "" {
			pf.ContentType = model.DefaultContentType
		}

		if isDirectory {
			if seen[rel] {
				return nil, fmt.Errorf("%w: путь %q встречается в загрузке дважды", ErrValidation, rel)
			}
			seen[rel] = true
			pf.RelativePath = rel
			pf.FileID = plan.GroupID + "/" + rel
		} else {
			pf.OriginalName = rel
			pf.FileID = plan.GroupID
		}

		plan.Files = append(plan.Files, pf)
	}

	if isDirectory {
		if dir, file, ok := pathShadowed(seen); ok {
			return nil, fmt.Errorf("%w: путь %q одновременно файл и каталог для %q", ErrValidation, dir, file)
		}
	}

	return plan, nil
}

// pathShadowed ищет путь, который является каталогом-предком другого
// пути той же загрузки (a и a/b). Такой пакет нельзя разложить по ключам.
func pathShadowed(paths map[string]bool) (dir, file string, ok bool) {
	for p := range paths {
		for i := strings.LastIndexByte(p, '/'); i > 0; i = strings.LastIndexByte(p[:i], '/') {
			if paths[p[:i]] {
				return p[:i], p, true
			}
		}
	}
	return "", "", false
}

// Upload выполняет загрузку: для каждого файла по очереди сначала объект,
// затем запись метаданных. Уже записанные файлы при ошибке не откатываются.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	plan, err := s.Plan(req)
	if err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	result := &UploadResult{
		GroupID:     plan.GroupID,
		IsDirectory: plan.IsDirectory,
		ExpiresAt:   plan.ExpiresAt,
		Records:     make([]*model.Upload, 0, len(plan.Files)),
	}

	for _, pf := range plan.Files {
		rec, err := s.storeOne(ctx, pf, plan, req.OwnerID)
		if err != nil {
			uploadsTotal.WithLabelValues("failed").Inc()
			s.logger.Error("Загрузка прервана, записанные файлы сохранены",
				slog.String("group_id", plan.GroupID),
				slog.String("file_id", pf.FileID),
				slog.Int("stored", len(result.Records)),
				slog.Int("total", len(plan.Files)),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		result.Records = append(result.Records, rec)
		result.TotalSize += rec.Size
	}

	uploadsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Загрузка завершена",
		slog.String("group_id", plan.GroupID),
		slog.Bool("directory", plan.IsDirectory),
		slog.Int("files", len(result.Records)),
		slog.Int64("size", result.TotalSize),
	)

	return result, nil
}

// storeOne записывает объект и его метаданные.
func (s *UploadService) storeOne(ctx context.Context, pf PlannedFile, plan *UploadPlan, ownerID string) (*model.Upload, error) {
	r, err := pf.Source.Open()
	if err != nil {
		return nil, fmt.Errorf("открытие файла %s: %w", pf.FileID, err)
	}
	defer r.Close()

	written, err := s.store.Put(ctx, pf.FileID, r, pf.Source.Size, pf.ContentType)
	if err != nil {
		return nil, fmt.Errorf("запись объекта %s: %w", pf.FileID, err)
	}

	rec := &model.Upload{
		FileID:       pf.FileID,
		GroupID:      plan.GroupID,
		OriginalName: pf.OriginalName,
		Size:         written,
		ContentType:  pf.ContentType,
		APIKeyID:     ownerID,
		ExpiresAt:    plan.ExpiresAt,
	}
	if pf.RelativePath != "" {
		rel := pf.RelativePath
		rec.RelativePath = &rel
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("запись метаданных %s: %w", pf.FileID, err)
	}

	uploadFilesTotal.Inc()
	uploadBytesTotal.Add(float64(written))
	return rec, nil
}

// ListOwned возвращает записи владельца. limit <= 0 — все записи.
func (s *UploadService) ListOwned(ctx context.Context, ownerID string, limit, offset int) ([]*model.Upload, error) {
	records, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("список загрузок владельца: %w", err)
	}
	return records, nil
}
