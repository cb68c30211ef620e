package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studytrack/internal/config"
	"studytrack/internal/db"
	"studytrack/internal/logging"
	"studytrack/internal/store"
)

var (
	portFlag        string
	databaseURLFlag string

	rootCmd = &cobra.Command{
		Use:           "studytrack",
		Short:         "Study progress tracker API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API (default)",
		RunE:  runServe,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and sync the achievement catalog",
		RunE:  runMigrate,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&portFlag, "port", "", "listen port (overrides PORT)")
	rootCmd.PersistentFlags().StringVar(&databaseURLFlag, "database-url", "", "postgres URL (overrides DATABASE_URL)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads config with flag overrides and builds the logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if databaseURLFlag != "" {
		cfg.DatabaseURL = databaseURLFlag
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// openDB connects and migrates. Every command needs an up-to-date schema.
func openDB(ctx context.Context, cfg config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	conn, err := store.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	logger.Info("database ready")
	return conn, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	conn, err := openDB(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	return conn.Close()
}
