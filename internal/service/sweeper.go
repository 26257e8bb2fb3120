// sweeper.go — фоновая очистка записей с истёкшим сроком хранения.
//
// Один запуск обрабатывает не более SweepBatchSize записей: для каждой
// сначала удаляется объект, затем строка метаданных. Ошибка по одной
// записи не прерывает пакет; запись отмечается как неудачная и уходит
// в конец очереди, чтобы не загораживать остальные просроченные записи.
//
// Запускается горутиной с тикером (FS_SWEEP_INTERVAL) либо вручную
// командой fileshare-admin sweep.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/storage/blob"
)

// SweepBatchSize — максимум записей за один запуск.
const SweepBatchSize = 100

// Prometheus-метрики очистки.
var (
	sweeperRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fs_sweeper_runs_total",
		Help: "Количество запусков очистки по результату",
	}, []string{"result"})

	sweeperRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_sweeper_removed_total",
		Help: "Количество полностью удалённых просроченных записей",
	})

	sweeperErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_sweeper_errors_total",
		Help: "Количество ошибок при удалении просроченных записей",
	})

	sweeperDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fs_sweeper_duration_seconds",
		Help:    "Длительность запуска очистки в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// SweepLocker — распределённая блокировка, исключающая одновременную
// очистку на нескольких репликах.
type SweepLocker interface {
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}

// SweepResult — результат одного запуска.
type SweepResult struct {
	// Selected — сколько просроченных записей выбрано
	Selected int
	// Removed — сколько записей удалено полностью (объект и метаданные)
	Removed int
	// Errors — сколько записей не удалось удалить
	Errors int
	// Skipped — запуск пропущен: блокировка у другой реплики
	Skipped bool
	// Duration — длительность выполнения
	Duration time.Duration
}

// SweeperService — сервис очистки просроченных записей.
type SweeperService struct {
	repo     repository.UploadRepository
	store    blob.Store
	resolver *Resolver
	locker   SweepLocker
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeperService создаёт сервис очистки. locker и resolver могут быть nil.
func NewSweeperService(
	repo repository.UploadRepository,
	store blob.Store,
	resolver *Resolver,
	locker SweepLocker,
	interval time.Duration,
	logger *slog.Logger,
) *SweeperService {
	return &SweeperService{
		repo:     repo,
		store:    store,
		resolver: resolver,
		locker:   locker,
		interval: interval,
		logger:   logger.With(slog.String("component", "sweeper")),
		now:      time.Now,
	}
}

// Start запускает фоновую горутину с периодическим тикером.
// При interval <= 0 ничего не делает.
func (s *SweeperService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Фоновая очистка отключена")
		return
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(sweepCtx)

	s.logger.Info("Фоновая очистка запущена",
		slog.String("interval", s.interval.String()),
	)
}

// Stop останавливает фоновую горутину и ждёт завершения текущего запуска.
func (s *SweeperService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Фоновая очистка остановлена")
}

// run — основной цикл фоновой горутины.
func (s *SweeperService) run(ctx context.Context) {
	defer close(s.done)

	// Первый запуск — сразу после старта
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один запуск очистки. Потокобезопасен.
// Ошибка возвращается, только если не удалось получить пакет или блокировку.
func (s *SweeperService) RunOnce(ctx context.Context) (*SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	if s.locker != nil {
		release, acquired, err := s.locker.TryAcquire(ctx)
		if err != nil {
			sweeperRunsTotal.WithLabelValues("error").Inc()
			s.logger.Error("Не удалось получить блокировку очистки",
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		if !acquired {
			result.Skipped = true
			sweeperRunsTotal.WithLabelValues("skipped").Inc()
			s.logger.Debug("Очистка выполняется другой репликой, запуск пропущен")
			return result, nil
		}
		defer release()
	}

	expired, err := s.repo.ListExpired(ctx, s.now().UTC(), SweepBatchSize)
	if err != nil {
		sweeperRunsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Не удалось выбрать просроченные записи",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	result.Selected = len(expired)

	for _, rec := range expired {
		if ctx.Err() != nil {
			break
		}
		s.resolver.Forget(rec.FileID)

		if err := s.store.Delete(ctx, rec.FileID); err != nil {
			result.Errors++
			s.logger.Error("Очистка: ошибка удаления объекта",
				slog.String("file_id", rec.FileID),
				slog.String("error", err.Error()),
			)
			s.markFailed(ctx, rec.FileID)
			continue
		}

		if err := s.repo.Delete(ctx, rec.FileID); err != nil {
			// Запись уже удалена параллельным DELETE: не ошибка, но и не наша заслуга
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			result.Errors++
			s.logger.Error("Очистка: ошибка удаления метаданных",
				slog.String("file_id", rec.FileID),
				slog.String("error", err.Error()),
			)
			s.markFailed(ctx, rec.FileID)
			continue
		}

		s.logger.Debug("Очистка: запись удалена",
			slog.String("file_id", rec.FileID),
			slog.String("group_id", rec.GroupID),
		)
		result.Removed++
	}

	result.Duration = time.Since(start)

	sweeperRunsTotal.WithLabelValues("ok").Inc()
	sweeperRemovedTotal.Add(float64(result.Removed))
	sweeperErrorsTotal.Add(float64(result.Errors))
	sweeperDurationSeconds.Observe(result.Duration.Seconds())

	s.logger.Info("Очистка завершена",
		slog.Int("selected", result.Selected),
		slog.Int("removed", result.Removed),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

func (s *SweeperService) markFailed(ctx context.Context, fileID string) {
	if err := s.repo.MarkSweepFailed(ctx, fileID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Очистка: не удалось отметить неудачную попытку",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}
