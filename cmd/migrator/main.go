package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quiz-practice/db/migrations"
	"github.com/gokatarajesh/quiz-practice/internal/config"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Apply quiz-practice database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded set")

	cmd.AddCommand(
		migrateCmd("up", "Apply all pending migrations", &dir, goose.Up),
		migrateCmd("down", "Roll back the latest migration", &dir, goose.Down),
		migrateCmd("status", "Print migration status", &dir, goose.Status),
	)
	return cmd
}

type gooseFunc func(db *sql.DB, dir string, opts ...goose.OptionsFunc) error

func migrateCmd(name, short string, dir *string, run gooseFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			migrationDir, err := configureSource(*dir)
			if err != nil {
				return err
			}
			if err := run(db, migrationDir); err != nil {
				return fmt.Errorf("goose %s: %w", name, err)
			}
			log.Info().Str("command", name).Msg("migration command finished")
			return nil
		},
	}
}

func openDB() (*sql.DB, error) {
	pg, err := config.LoadPostgres()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", pg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Str("host", pg.Host).
		Int("port", pg.Port).
		Str("database", pg.Database).
		Msg("connected to database")
	return db, nil
}

// configureSource points goose at the embedded migrations, or at dir when set.
func configureSource(dir string) (string, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return "", err
	}
	goose.SetTableName("goose_db_version")

	if dir == "" {
		goose.SetBaseFS(migrations.FS)
		return ".", nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve migration directory: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("migration directory: %w", err)
	}
	goose.SetBaseFS(nil)
	return abs, nil
}
