package store

import (
	"database/sql"
	"log/slog"

	"github.com/pavelanni/examgen/internal/model"
)

// GetSubjectByName returns a subject by its exact name, or nil if none exists.
func (s *Store) GetSubjectByName(name string) (*model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRow(`SELECT id, name FROM subjects WHERE name = ?`, name).Scan(&sub.ID, &sub.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("failed to get subject by name", "name", name, "error", err)
		return nil, err
	}
	return &sub, nil
}

// EnsureSubject returns the subject called name, creating it if needed.
// The bool reports whether it was created.
func (s *Store) EnsureSubject(name string) (model.Subject, bool, error) {
	existing, err := s.GetSubjectByName(name)
	if err != nil {
		return model.Subject{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}
	sub, err := s.CreateSubject(name)
	if err != nil {
		return model.Subject{}, false, err
	}
	slog.Info("created subject", "id", sub.ID, "name", sub.Name)
	return sub, true, nil
}

// SubjectCount returns the number of subjects.
func (s *Store) SubjectCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM subjects`).Scan(&count)
	return count, err
}

// GetImportedFileHash returns the content hash recorded for an imported
// subjects file, or "" if it was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	return s.GetMetadata("import:" + path)
}

// SetImportedFileHash records the content hash of an imported subjects file.
func (s *Store) SetImportedFileHash(path, hash string) error {
	return s.SetMetadata("import:"+path, hash)
}
