// Package sqlite persists timetable snapshots to a single SQLite table, one
// JSON payload per bucket.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	sqldocs "timetable/docs/schema/sql"
	"timetable/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the sink interface.
var _ domain.SnapshotSink = (*Store)(nil)

// DefaultPath is used when NewStore receives an empty path.
const DefaultPath = "timetable.db"

// Store writes bucket payloads to the state table.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the SQLite database at path and ensures
// the state table exists.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range sqldocs.SplitStatements(sqldocs.SQLite) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create state table: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Load reads every known bucket. Missing buckets are left at their zero value
// so the memory store applies defaults.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot domain.Snapshot
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Snapshot{}, fmt.Errorf("scan: %w", err)
		}
		if !knownBucket(bucket) {
			continue
		}
		if err := domain.DecodeBucket(&snapshot, domain.Bucket(bucket), payload); err != nil {
			return domain.Snapshot{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, nil
}

// Save upserts the listed buckets in one transaction. An empty list writes all buckets.
func (s *Store) Save(ctx context.Context, snapshot domain.Snapshot, buckets []domain.Bucket) (retErr error) {
	if len(buckets) == 0 {
		buckets = domain.AllBuckets()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		data, err := domain.EncodeBucket(snapshot, bucket)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, string(bucket), data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func knownBucket(name string) bool {
	for _, b := range domain.AllBuckets() {
		if string(b) == name {
			return true
		}
	}
	return false
}
