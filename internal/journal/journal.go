// Package journal keeps a SQLite history of publish attempts.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ironsheep/logistics-bot/internal/materials"
	"github.com/ironsheep/logistics-bot/internal/publish"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sync_records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		checkpoint TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL,
		dispatch_ready INTEGER NOT NULL DEFAULT 0,
		damaged INTEGER NOT NULL DEFAULT 0,
		e_waste INTEGER NOT NULL DEFAULT 0,
		raw_materials INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sync_records_timestamp ON sync_records (timestamp_ms);
`

// Journal stores SyncRecords in a SQLite database. It implements
// publish.Journal.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path. Use ":memory:" for a
// throwaway journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure journal: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record implements publish.Journal.
func (j *Journal) Record(ctx context.Context, rec publish.SyncRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sync_records
			(id, kind, checkpoint, timestamp_ms, dispatch_ready, damaged, e_waste, raw_materials, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.Checkpoint, rec.Timestamp.UnixMilli(),
		rec.Counts.DispatchReady, rec.Counts.Damaged, rec.Counts.EWaste, rec.Counts.RawMaterials,
		string(rec.Status))
	if err != nil {
		return fmt.Errorf("failed to insert sync record %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]publish.SyncRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, checkpoint, timestamp_ms, dispatch_ready, damaged, e_waste, raw_materials, status
		FROM sync_records
		ORDER BY timestamp_ms DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync records: %w", err)
	}
	defer rows.Close()

	records := make([]publish.SyncRecord, 0)
	for rows.Next() {
		var (
			rec         publish.SyncRecord
			kind, state string
			ms          int64
			c           materials.Counts
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Checkpoint, &ms,
			&c.DispatchReady, &c.Damaged, &c.EWaste, &c.RawMaterials, &state); err != nil {
			return nil, fmt.Errorf("failed to scan sync record: %w", err)
		}
		rec.Kind = publish.Kind(kind)
		rec.Status = publish.Status(state)
		rec.Timestamp = time.UnixMilli(ms)
		rec.Counts = c
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sync records: %w", err)
	}
	return records, nil
}

// CountByStatus returns how many records have each status.
func (j *Journal) CountByStatus(ctx context.Context) (map[publish.Status]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync records: %w", err)
	}
	defer rows.Close()

	counts := make(map[publish.Status]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[publish.Status(state)] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
