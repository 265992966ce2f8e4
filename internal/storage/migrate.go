package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaVersion describes the migration state of a database file.
type SchemaVersion struct {
	Version uint
	Dirty   bool
}

func (v SchemaVersion) String() string {
	if v.Dirty {
		return fmt.Sprintf("%d (dirty)", v.Version)
	}
	return fmt.Sprintf("%d", v.Version)
}

// withMigrator opens a dedicated connection for golang-migrate and hands the
// migrator to fn. The main repository connection is never shared with it.
func withMigrator(dbPath string, fn func(m *migrate.Migrate) error) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	migrateDB, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	return fn(m)
}

// RunMigrations applies every pending migration and returns the resulting
// schema version.
func RunMigrations(dbPath string) (SchemaVersion, error) {
	var v SchemaVersion
	err := withMigrator(dbPath, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		var err error
		v, err = version(m)
		return err
	})
	return v, err
}

// RollbackMigrations reverts the last steps migrations.
func RollbackMigrations(dbPath string, steps int) (SchemaVersion, error) {
	if steps < 1 {
		return SchemaVersion{}, fmt.Errorf("rollback steps must be positive, got %d", steps)
	}
	var v SchemaVersion
	err := withMigrator(dbPath, func(m *migrate.Migrate) error {
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("rollback migrations: %w", err)
		}
		var err error
		v, err = version(m)
		return err
	})
	return v, err
}

// MigrationStatus reports the current schema version without changing it.
func MigrationStatus(dbPath string) (SchemaVersion, error) {
	var v SchemaVersion
	err := withMigrator(dbPath, func(m *migrate.Migrate) error {
		var err error
		v, err = version(m)
		return err
	})
	return v, err
}

func version(m *migrate.Migrate) (SchemaVersion, error) {
	ver, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaVersion{}, nil
	}
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("read schema version: %w", err)
	}
	return SchemaVersion{Version: ver, Dirty: dirty}, nil
}
