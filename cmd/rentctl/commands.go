package main

import (
	"fmt"
	"os"

	"rentbook/internal/database"
	"rentbook/internal/models"
	"rentbook/internal/services"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func migrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, closeFn, err := openDB(v)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

func notifyCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Run the notification rules once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, closeFn, err := openDB(v)
			if err != nil {
				return err
			}
			defer closeFn()

			today := services.Today()
			if raw, _ := cmd.Flags().GetString("date"); raw != "" {
				if today, err = models.ParseDate(raw); err != nil {
					return fmt.Errorf("invalid --date %q, use YYYY-MM-DD", raw)
				}
			}

			rules := services.NewNotificationRules(db, database.GetLocker(), nil, cfg.Scheduler.LockTTL)
			report, err := rules.Sweep(cmd.Context(), today)
			if err != nil {
				return err
			}
			if report.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: another sweep is running, skipped\n", report.Date)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: contract_starting=%d contract_ending=%d overdue_payment=%d\n",
				report.Date, report.ContractStarting, report.ContractEnding, report.OverduePayments)
			return nil
		},
	}
	cmd.Flags().String("date", "", "evaluate the rules as of this day (YYYY-MM-DD), defaults to today")
	return cmd
}

func ledgerCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Rent ledger maintenance",
	}

	regenerate := &cobra.Command{
		Use:   "regenerate",
		Short: "Create missing monthly payment rows for one or all tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, closeFn, err := openDB(v)
			if err != nil {
				return err
			}
			defer closeFn()

			tenantID, _ := cmd.Flags().GetUint("tenant-id")
			created, err := services.NewLedgerService(db).Regenerate(tenantID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d payment rows.\n", created)
			return nil
		},
	}
	regenerate.Flags().Uint("tenant-id", 0, "only this tenant (default: all tenants)")

	cmd.AddCommand(regenerate)
	return cmd
}

func seedCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, apartments, tenants and payments from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			fixtures, err := readFixtures(path)
			if err != nil {
				return err
			}

			_, db, closeFn, err := openDB(v)
			if err != nil {
				return err
			}
			defer closeFn()

			if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
				if err := database.Migrate(db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			report, err := services.NewFixtureLoader(db).Load(fixtures)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users=%d delegations=%d apartments=%d tenants=%d payments=%d marked_paid=%d\n",
				report.Users, report.Delegations, report.Apartments, report.Tenants, report.Payments, report.MarkedPaid)
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "fixtures YAML file")
	cmd.Flags().Bool("migrate", false, "run migrations before loading")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readFixtures 解析 YAML 数据文件
func readFixtures(path string) (*services.Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures services.Fixtures
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return &fixtures, nil
}
