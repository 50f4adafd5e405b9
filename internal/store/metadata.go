package store

import (
	"database/sql"
	"strconv"

	"github.com/pavelanni/examgen/internal/model"
)

const (
	keyLastSubjectID   = "last_subject_id"
	keyLastSubjectName = "last_subject_name"
)

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

// SetLastSubject remembers the subject the client chatted with most recently.
func (s *Store) SetLastSubject(sub model.Subject) error {
	if err := s.SetMetadata(keyLastSubjectID, strconv.FormatInt(sub.ID, 10)); err != nil {
		return err
	}
	return s.SetMetadata(keyLastSubjectName, sub.Name)
}

// LastSubject returns the remembered subject, or false if none was stored.
func (s *Store) LastSubject() (model.Subject, bool, error) {
	idStr, err := s.GetMetadata(keyLastSubjectID)
	if err != nil || idStr == "" {
		return model.Subject{}, false, err
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return model.Subject{}, false, err
	}
	name, err := s.GetMetadata(keyLastSubjectName)
	if err != nil {
		return model.Subject{}, false, err
	}
	return model.Subject{ID: id, Name: name}, true, nil
}
