package database

import (
	"fmt"
	"io/fs"
	"sort"

	dbsql "palmcosmic/pkg/database/sql"
	"palmcosmic/pkg/logging"
)

// EnsureSchema applies the embedded schema files in name order. The
// DDL is written idempotent (CREATE TABLE IF NOT EXISTS) so running it
// on every startup is safe.
func EnsureSchema(db PostgresConn, logger logging.Logger) error {
	entries, err := fs.Glob(dbsql.Content, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list schema files: %w", err)
	}
	sort.Strings(entries)

	for _, name := range entries {
		ddl, err := dbsql.Content.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read schema file %s: %w", name, err)
		}
		if _, err := db.Exec(string(ddl)); err != nil {
			return fmt.Errorf("failed to apply schema file %s: %w", name, err)
		}
		logger.WithField("file", name).Debug("Applied schema file")
	}
	return nil
}
