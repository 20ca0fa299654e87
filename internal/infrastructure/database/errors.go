package database

import "errors"

var (
	// ErrMigrationMissing means schema_migrations names a version that the
	// migration filesystem no longer carries.
	ErrMigrationMissing = errors.New("database: applied migration not found")

	// ErrIrreversible means the latest migration ships no .down.sql file.
	ErrIrreversible = errors.New("database: migration has no down script")
)
