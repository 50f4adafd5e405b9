package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/examgen/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subjects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (subject_id) REFERENCES subjects(id)
	);

	CREATE TABLE IF NOT EXISTS transcript_cache (
		subject_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (subject_id, seq)
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSubject stores a subject and returns it with its ID.
func (s *Store) CreateSubject(name string) (model.Subject, error) {
	res, err := s.db.Exec(`INSERT INTO subjects (name) VALUES (?)`, name)
	if err != nil {
		return model.Subject{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Subject{}, err
	}
	return model.Subject{ID: id, Name: name}, nil
}

// GetSubject returns a subject by ID.
func (s *Store) GetSubject(id int64) (model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRow(`SELECT id, name FROM subjects WHERE id = ?`, id).Scan(&sub.ID, &sub.Name)
	return sub, err
}

// ListSubjects returns all subjects ordered by ID.
func (s *Store) ListSubjects() ([]model.Subject, error) {
	rows, err := s.db.Query(`SELECT id, name FROM subjects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		if err := rows.Scan(&sub.ID, &sub.Name); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// AddMessage appends a message to a subject's chat history.
func (s *Store) AddMessage(msg model.StoredMessage) (int64, error) {
	ctxJSON, err := json.Marshal(msg.Context)
	if err != nil {
		return 0, fmt.Errorf("encode context: %w", err)
	}
	if msg.Context == nil {
		ctxJSON = []byte("[]")
	}
	res, err := s.db.Exec(
		`INSERT INTO chat_messages (subject_id, role, content, context, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.SubjectID, msg.Role, msg.Content, string(ctxJSON), time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetMessages returns a subject's chat history in append order.
func (s *Store) GetMessages(subjectID int64) ([]model.StoredMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, subject_id, role, content, context, created_at FROM chat_messages WHERE subject_id = ? ORDER BY id`, subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []model.StoredMessage
	for rows.Next() {
		var m model.StoredMessage
		var ctxJSON string
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.Role, &m.Content, &ctxJSON, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ctxJSON), &m.Context); err != nil {
			return nil, fmt.Errorf("decode context of message %d: %w", m.ID, err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MessageCount returns the number of stored messages for a subject.
func (s *Store) MessageCount(subjectID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chat_messages WHERE subject_id = ?`, subjectID).Scan(&count)
	return count, err
}
