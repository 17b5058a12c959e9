package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"escape-rose/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const keyDir = "dir"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	var v *viper.Viper
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or create SQL migrations for the escape-rose database.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			v, err = config.NewViper(cmd.Flags())
			return err
		},
	}
	pf := cmd.PersistentFlags()
	pf.String(config.KeyDatabaseURL, "", "postgres DSN (env: DATABASE_URL)")
	pf.String(keyDir, filepath.Join("db", "migrations"), "migrations directory")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(v)
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("database migration failed: %w", err)
			}
			logrus.Info("database migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(v)
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("database rollback failed: %w", err)
			}
			logrus.WithField("steps", steps).Info("database migrations rolled back")
			return nil
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Write an empty up/down migration pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createMigration(v.GetString(keyDir), args[0], time.Now().UTC())
		},
	}

	cmd.AddCommand(up, down, create)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

func open(v *viper.Viper) (*migrate.Migrate, error) {
	dsn := v.GetString(config.KeyDatabaseURL)
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	m, err := migrate.New("file://"+filepath.ToSlash(v.GetString(keyDir)), dsn)
	if err != nil {
		return nil, fmt.Errorf("migration setup failed: %w", err)
	}
	return m, nil
}

func createMigration(dir, name string, now time.Time) error {
	if name == "" || strings.ContainsAny(name, " /") {
		return fmt.Errorf("invalid migration name %q", name)
	}
	base := fmt.Sprintf("%s_%s", now.Format("20060102150405"), name)
	upPath := filepath.Join(dir, base+".up.sql")
	downPath := filepath.Join(dir, base+".down.sql")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create migrations dir: %w", err)
	}
	if err := writeFile(upPath, "-- up migration\n"); err != nil {
		return fmt.Errorf("create up migration: %w", err)
	}
	if err := writeFile(downPath, "-- down migration\n"); err != nil {
		return fmt.Errorf("create down migration: %w", err)
	}
	logrus.WithFields(logrus.Fields{"up": upPath, "down": downPath}).Info("migration created")
	return nil
}

func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
