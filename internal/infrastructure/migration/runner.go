// Package migration wraps golang-migrate with the schema lifecycle the
// shelfwise migrate CLI exposes: apply, roll back, step and inspect.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Runner applies versioned SQL migration pairs from a directory.
type Runner struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New creates a Runner bound to an open database handle.
func New(db *sql.DB, dir string, logger *zap.Logger) (*Runner, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration: postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration: source %s: %w", dir, err)
	}

	return &Runner{m: m, logger: logger.Named("migration")}, nil
}

// Up applies every pending migration.
func (r *Runner) Up() error {
	return r.finish("up", r.m.Up())
}

// Down rolls back every applied migration.
func (r *Runner) Down() error {
	return r.finish("down", r.m.Down())
}

// Steps applies n migrations; a negative n rolls back.
func (r *Runner) Steps(n int) error {
	return r.finish(fmt.Sprintf("steps %d", n), r.m.Steps(n))
}

// finish normalizes the no-change case and logs the resulting version.
func (r *Runner) finish(action string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("Schema already current", zap.String("action", action))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s: %w", action, err)
	}

	version, dirty, err := r.Version()
	if err != nil {
		return err
	}
	r.logger.Info("Schema migrated",
		zap.String("action", action),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Version reports the current schema version; a fresh database reports zero.
func (r *Runner) Version() (uint, bool, error) {
	version, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded version without running any SQL. Only for
// recovering a dirty schema.
func (r *Runner) Force(version int) error {
	r.logger.Warn("Forcing schema version", zap.Int("version", version))
	if err := r.m.Force(version); err != nil {
		return fmt.Errorf("migration force %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles.
func (r *Runner) Close() error {
	srcErr, dbErr := r.m.Close()
	if srcErr != nil {
		return fmt.Errorf("migration close source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration close database: %w", dbErr)
	}
	return nil
}
