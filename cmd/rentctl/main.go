package main

import (
	"fmt"
	"os"
	"strings"

	"rentbook/internal/database"
	"rentbook/internal/services"
	"rentbook/pkg/config"
	"rentbook/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd 命令行入口；--db-driver 等参数可由 RENTCTL_DB_DRIVER 等环境变量提供
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("rentctl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "rentctl",
		Short:         "rentbook maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.String("db-driver", "", "database driver (postgres or sqlite), overrides DB_DRIVER")
	flags.String("db-dsn", "", "database DSN, overrides DB_DSN")
	flags.String("timezone", "", "business timezone used for \"today\", overrides TZ_NAME")
	_ = v.BindPFlags(flags)

	rootCmd.AddCommand(
		migrateCmd(v),
		notifyCmd(v),
		ledgerCmd(v),
		seedCmd(v),
	)
	return rootCmd
}

// loadConfig 读取服务配置并应用命令行覆盖
func loadConfig(v *viper.Viper) *config.Config {
	cfg := config.GetConfig()
	if driver := v.GetString("db-driver"); driver != "" {
		cfg.Database.Driver = driver
	}
	if dsn := v.GetString("db-dsn"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if tz := v.GetString("timezone"); tz != "" {
		cfg.Timezone = tz
	}
	return cfg
}

// openDB 初始化日志与数据库，返回关闭函数
func openDB(v *viper.Viper) (*config.Config, *gorm.DB, func(), error) {
	cfg := loadConfig(v)
	logger.Logger = logger.New(&cfg.Log)
	services.SetLocation(cfg.Location())

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = database.CloseLocker()
	}
	return cfg, db, closeFn, nil
}
