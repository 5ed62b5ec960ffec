// Package state persists the last-applied infrastructure snapshot. The store
// is a single-row SQLite database under the project directory; the snapshot
// saved after a successful apply becomes the observed state of the next
// planning pass.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stackplane/stackplane/infra"
)

// DefaultPath is the store location relative to the project root.
const DefaultPath = ".stackplane/state.db"

// ErrNoSnapshot is returned by Load when no snapshot has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot recorded")

// Store is a handle to the snapshot database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		document TEXT NOT NULL,
		hash TEXT NOT NULL,
		saved_at TIMESTAMP NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize state store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records m as the current snapshot, replacing any previous one.
func (s *Store) Save(m *infra.Map) error {
	document, err := m.MarshalDocument()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	hash, err := infra.ComputeMapHash(m)
	if err != nil {
		return fmt.Errorf("failed to hash snapshot: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO snapshots (id, document, hash, saved_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			document = excluded.document,
			hash = excluded.hash,
			saved_at = excluded.saved_at`,
		string(document), hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or ErrNoSnapshot if none exists.
func (s *Store) Load() (*infra.Map, error) {
	var document string
	err := s.db.QueryRow(`SELECT document FROM snapshots WHERE id = 1`).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	m, err := infra.ParseMap([]byte(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored snapshot: %w", err)
	}
	return m, nil
}

// Hash returns the content hash of the stored snapshot without decoding it.
// Used for drift detection against a freshly computed hash.
func (s *Store) Hash() (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM snapshots WHERE id = 1`).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSnapshot
	}
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot hash: %w", err)
	}
	return hash, nil
}
