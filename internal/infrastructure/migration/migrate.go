package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// VersionTable records the applied schema version
const VersionTable = "schema_migrations"

// statementTimeout bounds a single migration statement so a blocked ALTER on
// a busy ledger table fails instead of queueing writers behind it
const statementTimeout = 5 * time.Minute

// Status is the applied schema version. Dirty means a migration failed half
// way and the version has to be forced before anything else runs.
type Status struct {
	Version uint
	Dirty   bool
}

// Migrator runs the ledger schema migrations against Postgres
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New reads migrations from a directory on disk
func New(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	src, err := (&file.File{}).Open("file://" + dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations dir %s: %w", dir, err)
	}
	return open(db, "file", src, logger)
}

// NewFromFS reads migrations from fsys, typically the embedded migrations.FS
func NewFromFS(db *sql.DB, fsys fs.FS, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return open(db, "iofs", src, logger)
}

func open(db *sql.DB, sourceName string, src source.Driver, logger *zap.Logger) (*Migrator, error) {
	target, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable:  VersionTable,
		StatementTimeout: statementTimeout,
	})
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance(sourceName, src, "postgres", target)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return &Migrator{m: m, logger: logger.Named("migrate")}, nil
}

// changed drops ErrNoChange and reports whether anything ran
func changed(err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	return err == nil, err
}

// apply runs step and logs the resulting version when it moved
func (m *Migrator) apply(what string, step func() error) error {
	moved, err := changed(step())
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if !moved {
		m.logger.Info("Schema already current", zap.String("op", what))
		return nil
	}
	st, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info("Schema migrated", zap.String("op", what), zap.Uint("version", st.Version))
	return nil
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	return m.apply("up", m.m.Up)
}

// Down rolls every migration back
func (m *Migrator) Down() error {
	return m.apply("down", m.m.Down)
}

// Steps applies n migrations; negative n rolls back
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps %d", n), func() error { return m.m.Steps(n) })
}

func (m *Migrator) GoTo(version uint) error {
	return m.apply(fmt.Sprintf("goto %d", version), func() error { return m.m.Migrate(version) })
}

// Status returns the applied version, zero on an empty database
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Force sets the version without running anything
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing schema version", zap.Int("version", version))
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every object in the database, ledger rows included
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping all schema objects")
	if err := m.m.Drop(); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}
