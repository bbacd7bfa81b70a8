package store

import (
	"database/sql"
)

const importHashPrefix = "import_hash:"

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetImportedFileHash returns the content hash recorded for the last import of
// subject, or an empty string if the subject was never imported.
func (s *Store) GetImportedFileHash(subject string) (string, error) {
	return s.GetMetadata(importHashPrefix + subject)
}

// SetImportedFileHash records the content hash of the documents last imported
// for subject.
func (s *Store) SetImportedFileHash(subject, hash string) error {
	return s.SetMetadata(importHashPrefix+subject, hash)
}
