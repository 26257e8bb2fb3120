// Точка входа fileshare-admin — операторские команды: управление
// API-ключами, разовый запуск очистки, применение миграций.
// Конфигурация берётся из тех же переменных FS_, что и у сервера.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/bigkaa/fileshare/internal/config"
	"github.com/bigkaa/fileshare/internal/database"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "fileshare-admin",
		Short:        "Администрирование fileshare",
		Version:      config.Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newMigrateCmd())

	return rootCmd
}

// env — общее окружение команд: конфигурация, логгер, пул PostgreSQL.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
}

func (e *env) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// loadEnv загружает конфигурацию и подключается к PostgreSQL.
func loadEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("конфигурация: %w", err)
	}
	logger := config.SetupLogger(cfg)

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, pool: pool}, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции БД",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("конфигурация: %w", err)
			}
			if err := database.Migrate(cfg, config.SetupLogger(cfg)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Миграции применены")
			return nil
		},
	}
}
