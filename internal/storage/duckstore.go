// Package storage provides the DuckDB-backed spill store for formatted
// record sequences too large to keep fully hot. Pagination pages are served
// straight from the store, so the exact gap-free page guarantee holds even
// for datasets in the millions of records.
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marcboeker/go-duckdb"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/log-grapher/backend/internal/models"
)

// insertBatchSize is the number of records per insert transaction.
const insertBatchSize = 50000

// recordPayload is the msgpack shape stored per record alongside the
// indexed timestamp column.
type recordPayload struct {
	Values    map[string]float64 `msgpack:"v"`
	Originals map[string]string  `msgpack:"o,omitempty"`
}

// SpillStore stores formatted records in a temporary DuckDB file, in
// chronological order keyed by a dense index column.
type SpillStore struct {
	db     *sql.DB
	dbPath string
	count  int
}

// NewSpillStore creates a spill store in the given temp directory.
func NewSpillStore(tempDir, datasetID string) (*SpillStore, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("dataset_%s.duckdb", datasetID))

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='512MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.Exec(`
		CREATE TABLE records (
			idx     INTEGER PRIMARY KEY,
			ts      BIGINT NOT NULL,
			payload BLOB NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create records table: %w", err)
	}

	return &SpillStore{db: db, dbPath: dbPath}, nil
}

// WriteAll inserts the full chronological record sequence in batches.
func (s *SpillStore) WriteAll(records []models.FormattedRecord) error {
	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.writeBatch(records[start:end], start); err != nil {
			return err
		}
	}
	s.count = len(records)
	return nil
}

func (s *SpillStore) writeBatch(records []models.FormattedRecord, baseIdx int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO records (idx, ts, payload) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		payload, err := msgpack.Marshal(recordPayload{Values: r.Values, Originals: r.Originals})
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode record %d: %w", baseIdx+i, err)
		}
		if _, err := stmt.Exec(baseIdx+i, r.TimestampMillis, payload); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert record %d: %w", baseIdx+i, err)
		}
	}
	return tx.Commit()
}

// Len returns the number of stored records.
func (s *SpillStore) Len() int {
	return s.count
}

// GetRange returns records with index in [start, end), in order.
func (s *SpillStore) GetRange(ctx context.Context, start, end int) ([]models.FormattedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ts, payload FROM records WHERE idx >= ? AND idx < ? ORDER BY idx", start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := make([]models.FormattedRecord, 0, end-start)
	for rows.Next() {
		var ts int64
		var payload []byte
		if err := rows.Scan(&ts, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var p recordPayload
		if err := msgpack.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, models.FormattedRecord{
			TimestampMillis: ts,
			Values:          p.Values,
			Originals:       p.Originals,
		})
	}
	return out, rows.Err()
}

// Close closes the database and removes the backing file.
func (s *SpillStore) Close() error {
	err := s.db.Close()
	if rmErr := os.Remove(s.dbPath); err == nil {
		err = rmErr
	}
	return err
}
