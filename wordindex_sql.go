package prism

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLWordIndex is a WordRegistry backed by a SQLite database, for
// vocabularies too large to rebuild in memory on every start. Identifiers
// are assigned by the database and are stable across processes.
//
// The cgo-free driver keeps the package portable; the database file can be
// shared with external tooling that prepares vocabularies offline.
type SQLWordIndex struct {
	db *sql.DB
}

// OpenSQLWordIndex opens (creating when missing) a word index database at
// path.
func OpenSQLWordIndex(path string) (*SQLWordIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word index database: %w", err)
	}

	ix := &SQLWordIndex{db: db}
	if err := ix.init(); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *SQLWordIndex) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := ix.db.Exec(p); err != nil {
			return fmt.Errorf("pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS words (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			word TEXT NOT NULL UNIQUE
		);
	`
	if _, err := ix.db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	return nil
}

// WordID returns the identifier of word.
func (ix *SQLWordIndex) WordID(word string) (int32, error) {
	var id int32
	err := ix.db.QueryRow("SELECT id FROM words WHERE word = ?", word).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", ErrWordNotFound, word)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up word %q: %w", word, err)
	}
	return id, nil
}

// Word returns the word behind an identifier.
func (ix *SQLWordIndex) Word(id int32) (string, error) {
	var word string
	err := ix.db.QueryRow("SELECT word FROM words WHERE id = ?", id).Scan(&word)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: id %d", ErrWordNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up word id %d: %w", id, err)
	}
	return word, nil
}

// Register returns the identifier of word, adding it when absent.
func (ix *SQLWordIndex) Register(word string) (int32, error) {
	if _, err := ix.db.Exec("INSERT OR IGNORE INTO words (word) VALUES (?)", word); err != nil {
		return 0, fmt.Errorf("failed to register word %q: %w", word, err)
	}
	return ix.WordID(word)
}

// Len returns the vocabulary size.
func (ix *SQLWordIndex) Len() (int, error) {
	var n int
	if err := ix.db.QueryRow("SELECT COUNT(*) FROM words").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return n, nil
}

// Close releases the underlying database.
func (ix *SQLWordIndex) Close() error {
	return ix.db.Close()
}

// Verify interface compliance at compile time.
var _ WordRegistry = (*SQLWordIndex)(nil)
