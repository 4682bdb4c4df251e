package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"cvBuilder/internal/config"
	"cvBuilder/internal/database"
)

// app 汇总命令运行所需的外部依赖，测试中替换 openDB 与输出。
type app struct {
	openDB func(cfg config.DatabaseConfig) (*gorm.DB, error)
	stdout io.Writer
	logger *slog.Logger
}

func defaultApp() *app {
	return &app{
		openDB: database.InitDatabase,
		stdout: os.Stdout,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
}

// dbFlags 覆盖环境变量中的数据库配置，便于对任意实例执行一次性操作。
type dbFlags struct {
	host     string
	port     int
	name     string
	user     string
	password string
	sslMode  string
}

func (f dbFlags) apply(cfg config.DatabaseConfig) config.DatabaseConfig {
	if v := strings.TrimSpace(f.host); v != "" {
		cfg.Host = v
	}
	if f.port > 0 {
		cfg.Port = f.port
	}
	if v := strings.TrimSpace(f.name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(f.user); v != "" {
		cfg.User = v
	}
	if f.password != "" {
		cfg.Password = f.password
	}
	if v := strings.TrimSpace(f.sslMode); v != "" {
		cfg.SSLMode = v
	}
	return cfg
}

func newRootCmd(a *app) *cobra.Command {
	var db dbFlags

	cmd := &cobra.Command{
		Use:          "cvctl",
		Short:        "在命令行组装、渲染与导出 CV",
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&db.host, "db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
	pf.IntVar(&db.port, "db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
	pf.StringVar(&db.name, "db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
	pf.StringVar(&db.user, "db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
	pf.StringVar(&db.password, "db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
	pf.StringVar(&db.sslMode, "db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")

	cmd.AddCommand(
		renderCmd(a, &db),
		sectionsCmd(a, &db),
		migrateCmd(a, &db),
	)
	return cmd
}

// connect 读取配置并按命令行覆盖项打开数据库。
func (a *app) connect(flags *dbFlags) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Database = flags.apply(cfg.Database)

	db, err := a.openDB(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	return cfg, db, nil
}

func migrateCmd(a *app, flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新 CV 相关数据表",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := a.connect(flags)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "database migrated")
			return nil
		},
	}
}
