package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigkaa/fileshare/internal/domain/model"
	"github.com/bigkaa/fileshare/internal/repository"
	"github.com/bigkaa/fileshare/internal/service"
)

func newKeysCmd() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Управление API-ключами",
		Long: `Создание, просмотр и деактивация API-ключей.

Примеры:
  fileshare-admin keys create --name ci-bot
  fileshare-admin keys list
  fileshare-admin keys deactivate 3f2b...`,
	}

	var name string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Создать ключ (секрет выводится один раз)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuth(cmd, func(svc *service.AuthService) error {
				key, err := svc.CreateKey(cmd.Context(), name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "id:     %s\n", key.ID)
				fmt.Fprintf(out, "name:   %s\n", key.Name)
				fmt.Fprintf(out, "secret: %s\n", key.Key)
				fmt.Fprintln(out, "Сохраните секрет: повторно он не показывается.")
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "Имя ключа (обязательно)")
	_ = createCmd.MarkFlagRequired("name")
	keysCmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Список ключей",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuth(cmd, func(svc *service.AuthService) error {
				keys, err := svc.ListKeys(cmd.Context())
				if err != nil {
					return err
				}
				return printKeys(cmd.OutOrStdout(), keys)
			})
		},
	}
	keysCmd.AddCommand(listCmd)

	deactivateCmd := &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Деактивировать ключ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd, func(svc *service.AuthService) error {
				if err := svc.DeactivateKey(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ключ %s деактивирован\n", args[0])
				return nil
			})
		},
	}
	keysCmd.AddCommand(deactivateCmd)

	return keysCmd
}

// withAuth подключается к БД и передаёт сервис ключей в fn.
func withAuth(cmd *cobra.Command, fn func(svc *service.AuthService) error) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	return fn(service.NewAuthService(repository.NewAPIKeyRepository(e.pool), e.logger))
}

// printKeys выводит таблицу ключей; секреты маскируются.
func printKeys(w io.Writer, keys []*model.APIKey) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKEY\tACTIVE\tCREATED\tLAST USED")
	for _, k := range keys {
		lastUsed := "-"
		if k.LastUsed != nil {
			lastUsed = k.LastUsed.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
			k.ID, k.Name, service.MaskKey(k.Key), k.IsActive,
			k.CreatedAt.UTC().Format(time.RFC3339), lastUsed,
		)
	}
	return tw.Flush()
}
