// Package store provides a SQLite-backed cache of computed distance tables,
// keyed by model name, parameter values, and table range, so repeated CLI
// invocations with the same cosmology skip the quadrature.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/astrika/gocosmo/internal/model"
)

// Run describes one cached distance table.
type Run struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Params    map[string]float64 `json:"params"`
	ZMax      float64            `json:"zmax"`
	CreatedAt time.Time          `json:"created_at"`
}

// Sample is one (z, D_C) row of a cached table. DC is dimensionless
// (Hubble-radius units), matching distance.Distance.Comoving.
type Sample struct {
	Z  float64 `json:"z"`
	DC float64 `json:"dc"`
}

// Store caches distance tables in a SQLite database under dir.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// Open creates or opens the cache database at dir/cache.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, "cache.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			model      TEXT NOT NULL,
			params     TEXT NOT NULL,
			zmax       REAL NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			z      REAL NOT NULL,
			dc     REAL NOT NULL,
			PRIMARY KEY (run_id, z)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
	`)
	return err
}

// Key computes the cache key for a model configuration: a SHA-256 over the
// model name, the sorted parameter snapshot, and the table range.
func Key(modelName string, params map[string]float64, zMax float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%.17g", modelName, zMax)
	for _, k := range model.SortedKeys(params) {
		fmt.Fprintf(h, "|%s=%.17g", k, params[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PutTable stores a distance table, replacing any existing entry under the
// same key. Returns the run ID.
func (s *Store) PutTable(ctx context.Context, modelName string, params map[string]float64, zMax float64, samples []Sample) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := Key(modelName, params, zMax)
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("replace run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, model, params, zmax, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, modelName, string(paramsJSON), zMax, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO samples (run_id, z, dc) VALUES (?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()
	for _, smp := range samples {
		if _, err := stmt.ExecContext(ctx, id, smp.Z, smp.DC); err != nil {
			return "", fmt.Errorf("insert sample z = %g: %w", smp.Z, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// GetTable returns the cached table under key, reporting whether it exists.
func (s *Store) GetTable(ctx context.Context, key string) ([]Sample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, key).Scan(&exists)
	if err != nil {
		return nil, false, fmt.Errorf("query run: %w", err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT z, dc FROM samples WHERE run_id = ? ORDER BY z`, key)
	if err != nil {
		return nil, false, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var smp Sample
		if err := rows.Scan(&smp.Z, &smp.DC); err != nil {
			return nil, false, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate samples: %w", err)
	}
	return out, true, nil
}

// ListRuns returns all cached runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, params, zmax, created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var paramsJSON, created string
		if err := rows.Scan(&r.ID, &r.Model, &paramsJSON, &r.ZMax, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params for run %s: %w", r.ID, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Clear removes all cached runs and samples.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
