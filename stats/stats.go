// Package stats persists batch outcomes in a sqlite database so runs
// can be compared over time without grepping log files.
package stats

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/geobatch/tilepyramid/batch"
	"github.com/geobatch/tilepyramid/mathhelp"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS tiling_outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name TEXT NOT NULL,
	translate_ms INTEGER NOT NULL,
	tiling_ms INTEGER NOT NULL,
	max_zoom INTEGER NOT NULL,
	clamped INTEGER NOT NULL,
	error TEXT,
	created_at TEXT NOT NULL
)`

const insertSQL = `INSERT INTO tiling_outcomes
	(file_name, translate_ms, tiling_ms, max_zoom, clamped, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// DB records outcomes, one row per processed file per run. Rows are
// never updated or deleted.
type DB struct {
	handle *sql.DB
}

// Open creates the database file and its schema when needed.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening stats database %s: %w", path, err)
	}
	if _, err = handle.Exec(createTableSQL); err != nil {
		handle.Close()
		return nil, fmt.Errorf("creating outcome table: %w", err)
	}
	return &DB{handle: handle}, nil
}

func (db *DB) Record(o batch.Outcome) error {
	_, err := db.handle.Exec(insertSQL,
		o.FileName,
		o.TranslateDuration.Milliseconds(),
		o.TilingDuration.Milliseconds(),
		o.MaxZoom,
		mathhelp.Bool2int(o.Clamped),
		nullable(o.Err),
		o.Timestamp.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("recording outcome for %s: %w", o.FileName, err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.handle.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
