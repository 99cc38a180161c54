package cache

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchemaDDL = `
CREATE TABLE IF NOT EXISTS blobs (
  fingerprint TEXT PRIMARY KEY,
  version     TEXT NOT NULL,
  namespace   TEXT NOT NULL,
  digest      BLOB NOT NULL,
  sum         BLOB NOT NULL,
  blob        BLOB NOT NULL
);
`

// SQLiteStore keeps blobs in a single SQLite database in WAL mode, one row
// per fingerprint.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (and migrates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Get reads the blob for key.
func (s *SQLiteStore) Get(key Key) ([]byte, bool, error) {
	var (
		version, ns string
		digest, sum []byte
		blob        []byte
	)
	err := s.db.QueryRow(
		`SELECT version, namespace, digest, sum, blob FROM blobs WHERE fingerprint = ?`,
		key.Fingerprint(),
	).Scan(&version, &ns, &digest, &sum, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query blob: %w", err)
	}
	if version != key.EngineVersion || ns != key.Namespace || string(digest) != string(key.Digest[:]) {
		return nil, false, fmt.Errorf("%w: key mismatch", ErrCorrupt)
	}
	got := sha256.Sum256(blob)
	if string(got[:]) != string(sum) {
		return nil, false, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return blob, true, nil
}

// Put inserts or replaces the blob for key.
func (s *SQLiteStore) Put(key Key, blob []byte) error {
	sum := sha256.Sum256(blob)
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO blobs (fingerprint, version, namespace, digest, sum, blob) VALUES (?, ?, ?, ?, ?, ?)`,
		key.Fingerprint(), key.EngineVersion, key.Namespace, key.Digest[:], sum[:], blob,
	)
	if err != nil {
		return fmt.Errorf("insert blob: %w", err)
	}
	return nil
}

// Stats counts rows and their blob sizes.
func (s *SQLiteStore) Stats() (Stats, error) {
	st := Stats{Backend: string(BackendSQLite), Where: s.path}
	var total sql.NullInt64
	if err := s.db.QueryRow(`SELECT COUNT(*), SUM(LENGTH(blob)) FROM blobs`).Scan(&st.Entries, &total); err != nil {
		return st, fmt.Errorf("stats: %w", err)
	}
	st.Bytes = total.Int64
	return st, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
