// Package sqliteindex is the alternate, SQLite-backed gene sequence
// store: a flat gene_sequence(sequence, frequency) table searched with
// parameterized queries instead of the disk B-tree. It exists alongside
// the B-tree path as a second storage engine over the same data.
package sqliteindex

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding a gene_sequence table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the gene_sequence table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqliteindex: open %s: %w", path, err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gene_sequence (
			sequence  TEXT PRIMARY KEY,
			frequency INTEGER NOT NULL DEFAULT 0
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqliteindex: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing database at path without creating or
// modifying its schema, for the search CLI's read-only path.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqliteindex: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts sequence with frequency 1, or increments the existing
// row's frequency if sequence is already present.
func (s *Store) Upsert(sequence string) error {
	_, err := s.db.Exec(`
		INSERT INTO gene_sequence (sequence, frequency) VALUES (?, 1)
		ON CONFLICT(sequence) DO UPDATE SET frequency = frequency + 1`,
		sequence)
	if err != nil {
		return fmt.Errorf("sqliteindex: upsert %q: %w", sequence, err)
	}
	return nil
}

// Frequency returns the stored frequency for an exact sequence match, or
// 0 if the sequence isn't present.
func (s *Store) Frequency(sequence string) (int64, error) {
	var frequency int64
	err := s.db.QueryRow(`SELECT frequency FROM gene_sequence WHERE sequence = ?`, sequence).Scan(&frequency)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqliteindex: query %q: %w", sequence, err)
	}
	return frequency, nil
}

// CombinedFrequency sums the stored frequency of sequence and its
// reverse complement, matching the B-tree searcher's dual-strand lookup.
func (s *Store) CombinedFrequency(sequence, reverseComplement string) (int64, error) {
	forward, err := s.Frequency(sequence)
	if err != nil {
		return 0, err
	}
	if reverseComplement == sequence {
		return forward, nil
	}
	reverse, err := s.Frequency(reverseComplement)
	if err != nil {
		return 0, err
	}
	return forward + reverse, nil
}
