package db

import (
	"embed"
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	// registers the postgres database driver for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/naumangoraya/sos/internal/config"
	"github.com/naumangoraya/sos/internal/logger"
	"github.com/naumangoraya/sos/internal/models"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var coreTables = []string{"users", "customers", "suppliers", "stores", "items", "sale_invoices", "purchase_invoices"}

// Migrate brings the schema up to date. With app.migrations on a postgres
// database the versioned SQL files are applied; otherwise GORM AutoMigrate
// derives the schema from the models.
func Migrate(conn *gorm.DB, cfg *config.Config) error {
	log := logger.WithComponent("migrate")
	if cfg.App.Migrations && cfg.Database.Driver == "postgres" {
		log.Info().Msg("applying sql migrations")
		url := cfg.Database.DSN
		if url == "" {
			url = cfg.Database.URL()
		}
		if err := RunSQLMigrations(ToURLDSN(NormalizeDSN(url))); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		log.Info().Msg("running automigrate")
		if err := AutoMigrate(conn); err != nil {
			return err
		}
	}
	for _, table := range coreTables {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

func AutoMigrate(conn *gorm.DB) error {
	for _, m := range models.All() {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// RunSQLMigrations applies the embedded migrations to the database at url.
func RunSQLMigrations(url string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
