//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"equilibria/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSimulation(ctx context.Context, record model.SimulationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSimulation(record)
	if err != nil {
		return err
	}

	return retryOp(ctx, defaultRetryConfig, func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO simulations (id, created_at_utc, status, schema_version, codec_version, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				created_at_utc = excluded.created_at_utc,
				status = excluded.status,
				schema_version = excluded.schema_version,
				codec_version = excluded.codec_version,
				payload = excluded.payload
		`, record.ID, record.CreatedAtUTC, record.Status, record.SchemaVersion, record.CodecVersion, payload)
		return err
	})
}

func (s *SQLiteStore) GetSimulation(ctx context.Context, id string) (model.SimulationRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.SimulationRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM simulations WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SimulationRecord{}, false, nil
		}
		return model.SimulationRecord{}, false, err
	}

	record, err := DecodeSimulation(payload)
	if err != nil {
		return model.SimulationRecord{}, false, fmt.Errorf("decode simulation %s: %w", id, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListSimulations(ctx context.Context, limit int) ([]model.SimulationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, payload FROM simulations
		ORDER BY created_at_utc DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SimulationRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		record, err := DecodeSimulation(payload)
		if err != nil {
			return nil, fmt.Errorf("decode simulation %s: %w", id, err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		PRAGMA busy_timeout = 5000;
		CREATE TABLE IF NOT EXISTS simulations (
			id TEXT PRIMARY KEY,
			created_at_utc TEXT NOT NULL,
			status TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS simulations_created ON simulations (created_at_utc);
	`)
	return err
}
