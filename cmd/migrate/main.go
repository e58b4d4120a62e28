package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/bryanwahyu/tumortrack/internal/config"
)

func main() {
	_ = godotenv.Load()

	var (
		databaseURL    string
		migrationsPath string
		command        string
		configPath     string
	)
	flag.StringVar(&databaseURL, "database", "", "database URL (default: DATABASE_URL, then config.yaml)")
	flag.StringVar(&migrationsPath, "path", "", "migrations directory (default: migrations/<driver>)")
	flag.StringVar(&command, "command", "up", "migration command: up, down, version, force")
	flag.StringVar(&configPath, "config", "config.yaml", "config file used when no URL is given")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	driver := ""
	if databaseURL == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			fatal("database URL is required: use -database, DATABASE_URL or a config file", err)
		}
		databaseURL = cfg.MigrateURL()
		driver = cfg.Database.Driver
	}
	if migrationsPath == "" {
		if driver == "" {
			driver = driverOf(databaseURL)
		}
		migrationsPath = "migrations/" + driver
	}
	slog.Info("migrate: connecting", "path", migrationsPath)

	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		fatal("failed to create migration instance", err)
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("migrate: database is up to date")
			return
		}
		if err != nil {
			fatal("failed to run migrations", err)
		}
		slog.Info("migrate: up completed")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal("failed to roll back migrations", err)
		}
		slog.Info("migrate: rollback completed")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			fatal("failed to read version", err)
		}
		slog.Info("migrate: current version", "version", version, "dirty", dirty)

	case "force":
		if flag.NArg() < 1 {
			fatal("force requires a version number", errors.New("usage: -command force <version>"))
		}
		version, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			fatal("invalid version number", err)
		}
		if err := m.Force(version); err != nil {
			fatal("failed to force version", err)
		}
		slog.Info("migrate: forced version", "version", version)

	default:
		fatal("unknown command", fmt.Errorf("%q (use: up, down, version, force)", command))
	}
}

// driverOf picks the migrations directory from the URL scheme.
func driverOf(u string) string {
	if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") {
		return "postgres"
	}
	return "mysql"
}

func fatal(msg string, err error) {
	slog.Error("migrate: "+msg, "err", err)
	os.Exit(1)
}
