// Package chanmapdb records channel map snapshots in SQLite so that a
// numbering can be compared against an earlier, known-good one.
package chanmapdb

import (
	"database/sql"
	"fmt"

	"github.com/marcmengel/larcorealg/internal/monitoring"
	"github.com/marcmengel/larcorealg/internal/timeutil"

	_ "modernc.org/sqlite"
)

// DB wraps the snapshot database.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

var pragmas = []string{
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// OpenDB opens (creating if needed) the database at path and migrates it
// to the latest schema. Use ":memory:" for a throwaway database.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	monitoring.Logf("[chanmapdb] opened %s", path)
	return db, nil
}

// SetClock replaces the clock used to stamp new snapshots.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}
