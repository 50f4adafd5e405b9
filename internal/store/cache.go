package store

import (
	"fmt"

	"github.com/pavelanni/examgen/internal/model"
)

// ReplaceTranscript swaps the cached transcript of a subject for msgs.
// The cache is never patched: the old rows go and the new ones land in one transaction.
// Local notices are skipped.
func (s *Store) ReplaceTranscript(subjectID int64, msgs []model.ChatMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM transcript_cache WHERE subject_id = ?`, subjectID); err != nil {
		return fmt.Errorf("clear cached transcript: %w", err)
	}

	seq := 0
	for _, m := range msgs {
		if m.Local {
			continue
		}
		_, err := tx.Exec(
			`INSERT INTO transcript_cache (subject_id, seq, role, content) VALUES (?, ?, ?, ?)`,
			subjectID, seq, m.Role, m.Content,
		)
		if err != nil {
			return fmt.Errorf("cache message %d: %w", seq, err)
		}
		seq++
	}

	return tx.Commit()
}

// CachedTranscript returns the last cached transcript of a subject.
func (s *Store) CachedTranscript(subjectID int64) ([]model.ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT role, content FROM transcript_cache WHERE subject_id = ? ORDER BY seq`, subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
