package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/infrastructure/config"
	"house-rent-service/internal/infrastructure/database"
	"house-rent-service/pkg/logger"
)

// opener 返回数据库连接、配置与释放函数
type opener func() (*gorm.DB, *config.Config, func(), error)

func openFromEnv() (*gorm.DB, *config.Config, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger.SetLevel(cfg.LogLevel)

	pool, err := database.NewConnectionPool(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("无法连接数据库: %w", err)
	}
	return pool.GetDB(), cfg, func() { _ = pool.Close() }, nil
}

func newRootCmd(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rentctl",
		Short:         "House rent service maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		migrateCmd(open),
		sendRemindersCmd(open),
		sendOverdueCmd(open),
		recomputeOccupancyCmd(open),
		bulkChargesCmd(open),
	)
	return rootCmd
}

// withContainer 打开数据库并创建服务容器，通知同步发送以免进程退出时丢失
func withContainer(open opener, fn func(c *container.ServiceContainer) error) error {
	db, cfg, closeFn, err := open()
	if err != nil {
		return err
	}
	defer closeFn()

	c := container.NewServiceContainer(db, cfg, container.Options{SyncNotifications: true})
	defer c.Close()
	return fn(c)
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	d, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式应为 YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func migrateCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			mode, _ := cmd.Flags().GetString("mode")
			if mode == "" {
				mode = cfg.DBMigrationMode
			}
			if err := database.Migrate(db, mode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migration completed (mode=%s)\n", mode)
			return nil
		},
	}
	cmd.Flags().String("mode", "", "Migration mode: auto or drop (defaults to DB_MIGRATION_MODE)")
	return cmd
}

func printReminderResult(cmd *cobra.Command, result *services.ReminderResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "checked=%d sent=%d skipped=%d failed=%d\n",
		result.Checked, result.Sent, result.Skipped, result.Failed)
}

func sendRemindersCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send-reminders",
		Short: "Send rent due reminders for the given day",
		RunE: func(cmd *cobra.Command, args []string) error {
			dateStr, _ := cmd.Flags().GetString("date")
			owner, _ := cmd.Flags().GetUint("owner")
			today, err := parseDate(dateStr)
			if err != nil {
				return err
			}
			return withContainer(open, func(c *container.ServiceContainer) error {
				reminders := c.GetService("reminder").(services.InterfaceReminderService)
				result, err := reminders.SendDailyRentReminders(cmd.Context(), owner, today)
				if err != nil {
					return err
				}
				printReminderResult(cmd, result)
				return nil
			})
		},
	}
	cmd.Flags().String("date", "", "Day to evaluate as YYYY-MM-DD (defaults to today)")
	cmd.Flags().Uint("owner", 0, "Only this landlord account (0 = all)")
	return cmd
}

func sendOverdueCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send-overdue",
		Short: "Send overdue notices for unpaid rent charges",
		RunE: func(cmd *cobra.Command, args []string) error {
			dateStr, _ := cmd.Flags().GetString("date")
			owner, _ := cmd.Flags().GetUint("owner")
			today, err := parseDate(dateStr)
			if err != nil {
				return err
			}
			return withContainer(open, func(c *container.ServiceContainer) error {
				reminders := c.GetService("reminder").(services.InterfaceReminderService)
				result, err := reminders.SendOverdueNotices(cmd.Context(), owner, today)
				if err != nil {
					return err
				}
				printReminderResult(cmd, result)
				return nil
			})
		},
	}
	cmd.Flags().String("date", "", "Day to evaluate as YYYY-MM-DD (defaults to today)")
	cmd.Flags().Uint("owner", 0, "Only this landlord account (0 = all)")
	return cmd
}

func recomputeOccupancyCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute-occupancy",
		Short: "Repair house occupancy flags from active tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			buildingID, _ := cmd.Flags().GetUint("building")
			return withContainer(open, func(c *container.ServiceContainer) error {
				occupancy := c.GetService("occupancy").(services.InterfaceOccupancyService)
				var (
					changed int
					err     error
				)
				if buildingID != 0 {
					changed, err = occupancy.RecomputeBuilding(cmd.Context(), buildingID)
				} else {
					changed, err = occupancy.RecomputeAll(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "changed=%d\n", changed)
				return nil
			})
		},
	}
	cmd.Flags().Uint("building", 0, "Only houses of this building (0 = all)")
	return cmd
}

func bulkChargesCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk-charges",
		Short: "Create monthly rent charges for every occupying tenant of a landlord",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetUint("owner")
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			return withContainer(open, func(c *container.ServiceContainer) error {
				ledger := c.GetService("ledger").(services.InterfaceLedgerService)
				result, err := ledger.BulkCreateRentCharges(cmd.Context(), owner, services.BulkRentChargeRequest{
					Year:  year,
					Month: month,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created=%d skipped=%d failed=%d\n", result.Created, result.Skipped, result.Failed)
				for _, msg := range result.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint("owner", 0, "Landlord account id")
	cmd.Flags().Int("year", 0, "Charge year")
	cmd.Flags().Int("month", 0, "Charge month (1-12)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}
