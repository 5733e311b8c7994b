package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/storage"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const archiveSchema = `CREATE TABLE IF NOT EXISTS results (
	simulation_id TEXT PRIMARY KEY,
	roster        TEXT NOT NULL DEFAULT '',
	days          INTEGER NOT NULL,
	rounds        INTEGER NOT NULL,
	winner        TEXT NOT NULL DEFAULT '',
	rows_json     TEXT NOT NULL,
	finished_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS results_finished_at ON results (finished_at DESC);`

// SQLiteArchive records finished simulations in a SQLite file.
type SQLiteArchive struct {
	db *sql.DB
}

var _ storage.Archive = (*SQLiteArchive)(nil)

// OpenArchive opens (creating if needed) the archive at path.
func OpenArchive(path string) (*SQLiteArchive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("archive path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping archive: %w", err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}
	return &SQLiteArchive{db: db}, nil
}

// Ping checks the archive database is reachable.
func (a *SQLiteArchive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *SQLiteArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Record stores one result. Recording the same simulation twice returns
// storage.ErrAlreadyArchived.
func (a *SQLiteArchive) Record(ctx context.Context, res storage.Result) error {
	if res.SimulationID == uuid.Nil {
		return errors.New("simulation id is required")
	}
	rows, err := json.Marshal(res.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal summary rows: %w", err)
	}
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO results (simulation_id, roster, days, rounds, winner, rows_json, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.SimulationID.String(),
		res.Roster,
		res.Days,
		res.Rounds,
		res.Winner,
		string(rows),
		finished.UTC().UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyArchived
		}
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first. A limit <= 0 returns
// everything.
func (a *SQLiteArchive) Recent(ctx context.Context, limit int) ([]storage.Result, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT simulation_id, roster, days, rounds, winner, rows_json, finished_at
		 FROM results ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []storage.Result
	for rows.Next() {
		var (
			res      storage.Result
			id       string
			rowsJSON string
			finished int64
		)
		if err := rows.Scan(&id, &res.Roster, &res.Days, &res.Rounds, &res.Winner, &rowsJSON, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if res.SimulationID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid simulation id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(rowsJSON), &res.Rows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary rows: %w", err)
		}
		res.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
