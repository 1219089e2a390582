// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists enriched publication records in a local SQLite
// database keyed by publication id. All writes are synchronous upserts:
// a Put that returns has been committed, and a crash mid-Put leaves at
// most the previous value.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bioorbit/bioorbit/pkg/types"
)

const schemaVersion = 1

// ErrCorruptCache indicates the persisted cache cannot be read back as
// written: an unreadable database file or a row whose stored fields no
// longer parse. Callers must not treat this as an empty cache without an
// explicit rebuild decision.
var ErrCorruptCache = errors.New("corrupt enrichment cache")

// Store is a durable publication_id -> EnrichedRecord mapping.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at cfg.Path. The schema is
// created on first open. A file that exists but is not a readable cache
// database fails with ErrCorruptCache.
func Open(cfg types.CacheConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=FULL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db, path: cfg.Path}
	if err := s.createSchema(); err != nil {
		db.Close()
		if isNotADatabase(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCache, cfg.Path, err)
		}
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return s, nil
}

// isNotADatabase matches the sqlite error for files that are not SQLite
// databases (truncated, overwritten, or foreign content).
func isNotADatabase(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not a database")
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			publication_id TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			keywords TEXT,
			embedding TEXT NOT NULL,
			enriched_at TEXT NOT NULL,
			version TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO NOTHING`,
		fmt.Sprintf("%d", schemaVersion),
	)
	return err
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Put upserts a record under record.PublicationID, overwriting any
// existing record for that id. The write is committed before Put returns.
func (s *Store) Put(record types.EnrichedRecord) error {
	if record.PublicationID == "" {
		return fmt.Errorf("record has empty publication id")
	}

	keywordsJSON, err := json.Marshal(record.Keywords)
	if err != nil {
		return fmt.Errorf("marshaling keywords for %s: %w", record.PublicationID, err)
	}
	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return fmt.Errorf("marshaling embedding for %s: %w", record.PublicationID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO records (publication_id, summary, keywords, embedding, enriched_at, version)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(publication_id) DO UPDATE SET
			summary=excluded.summary, keywords=excluded.keywords,
			embedding=excluded.embedding, enriched_at=excluded.enriched_at,
			version=excluded.version`,
		record.PublicationID, record.Summary, string(keywordsJSON),
		string(embeddingJSON), record.EnrichedAt.UTC().Format(time.RFC3339Nano),
		record.Version,
	)
	if err != nil {
		return fmt.Errorf("upserting record %s: %w", record.PublicationID, err)
	}
	return nil
}

// Get looks up the record for a publication id. The second return value
// reports whether a record exists; a missing id is not an error.
func (s *Store) Get(publicationID string) (types.EnrichedRecord, bool, error) {
	row := s.db.QueryRow(
		`SELECT publication_id, summary, keywords, embedding, enriched_at, version
		 FROM records WHERE publication_id = ?`, publicationID)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return types.EnrichedRecord{}, false, nil
	}
	if err != nil {
		return types.EnrichedRecord{}, false, err
	}
	return record, true, nil
}

// Contains reports whether a record exists for the publication id.
func (s *Store) Contains(publicationID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT count(*) FROM records WHERE publication_id = ?`, publicationID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking cache for %s: %w", publicationID, err)
	}
	return n > 0, nil
}

// Count returns the number of cached records.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT count(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// All returns every cached record ordered by publication id.
func (s *Store) All() ([]types.EnrichedRecord, error) {
	rows, err := s.db.Query(
		`SELECT publication_id, summary, keywords, embedding, enriched_at, version
		 FROM records ORDER BY publication_id`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []types.EnrichedRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// VersionCounts returns a histogram of enrichment versions in the cache.
func (s *Store) VersionCounts() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT version, count(*) FROM records GROUP BY version`)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var version string
		var n int
		if err := rows.Scan(&version, &n); err != nil {
			return nil, fmt.Errorf("scanning version row: %w", err)
		}
		counts[version] = n
	}
	return counts, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (types.EnrichedRecord, error) {
	var (
		record        types.EnrichedRecord
		keywordsJSON  sql.NullString
		embeddingJSON string
		enrichedAt    string
	)

	err := sc.Scan(&record.PublicationID, &record.Summary, &keywordsJSON,
		&embeddingJSON, &enrichedAt, &record.Version)
	if err != nil {
		return types.EnrichedRecord{}, err
	}

	if keywordsJSON.Valid && keywordsJSON.String != "" {
		if err := json.Unmarshal([]byte(keywordsJSON.String), &record.Keywords); err != nil {
			return types.EnrichedRecord{}, fmt.Errorf("%w: record %s: bad keywords: %v",
				ErrCorruptCache, record.PublicationID, err)
		}
	}
	if err := json.Unmarshal([]byte(embeddingJSON), &record.Embedding); err != nil {
		return types.EnrichedRecord{}, fmt.Errorf("%w: record %s: bad embedding: %v",
			ErrCorruptCache, record.PublicationID, err)
	}
	record.EnrichedAt, err = time.Parse(time.RFC3339Nano, enrichedAt)
	if err != nil {
		return types.EnrichedRecord{}, fmt.Errorf("%w: record %s: bad timestamp %q",
			ErrCorruptCache, record.PublicationID, enrichedAt)
	}

	return record, nil
}

// Destroy removes the cache database and its WAL sidecar files. Used by
// the explicit rebuild path after corruption; never called implicitly.
func Destroy(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}
