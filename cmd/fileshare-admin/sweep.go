package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bigkaa/fileshare/internal/lock"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/service"
	"github.com/bigkaa/fileshare/internal/storage/backend"
)

// sweepLockKey совпадает с ключом сервера, чтобы CLI и сервер не чистили одновременно.
const sweepLockKey = "fileshare:sweep"

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Удалить просроченные файлы (один проход)",
		Long: `Один проход очистки: до 100 просроченных записей, сначала объекты,
затем метаданные. Если задан FS_REDIS_ADDR, проход берёт ту же
блокировку, что и встроенный sweeper сервера.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			objects, err := backend.Open(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}

			var locker service.SweepLocker
			if e.cfg.RedisEnabled() {
				client, err := lock.NewClient(ctx, lock.Options{
					Addr:     e.cfg.RedisAddr,
					Password: e.cfg.RedisPassword,
					DB:       e.cfg.RedisDB,
				})
				if err != nil {
					return err
				}
				defer client.Close()
				locker = lock.New(client, sweepLockKey, e.cfg.SweepLockTTL)
			}

			// У CLI нет своего кэша, resolver не нужен
			sweeper := service.NewSweeperService(
				repository.NewUploadRepository(e.pool), objects.Store, nil, locker, 0, e.logger,
			)
			result, err := sweeper.RunOnce(ctx)
			if err != nil {
				return err
			}
			printSweepResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func printSweepResult(w io.Writer, r *service.SweepResult) {
	if r.Skipped {
		fmt.Fprintln(w, "Очистка пропущена: блокировку держит другой процесс")
		return
	}
	fmt.Fprintf(w, "Найдено: %d, удалено: %d, ошибок: %d, время: %s\n",
		r.Selected, r.Removed, r.Errors, r.Duration)
}
