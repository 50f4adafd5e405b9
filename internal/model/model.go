package model

import (
	"context"
	"time"
)

// Role represents a chat message role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Subject is a course the assistant answers questions about.
type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ChatMessage is a single entry of a subject's transcript.
type ChatMessage struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Context []string `json:"context,omitempty"`

	// Local marks notices generated on the client (greeting, sync or export
	// failures). The backend never stores them.
	Local bool `json:"-"`
}

// StoredMessage is a chat message as persisted by the backend.
type StoredMessage struct {
	ID        int64     `json:"id"`
	SubjectID int64     `json:"subject_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Context   []string  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the body of a synchronous chat turn.
type ChatRequest struct {
	SubjectID int64  `json:"subject_id"`
	Message   string `json:"message"`
}

// ChatReply is the backend's answer to a synchronous chat turn.
type ChatReply struct {
	Answer      string   `json:"answer"`
	ContextUsed []string `json:"context_used"`
	MessageID   int64    `json:"message_id"`
}

// ClientConfig holds runtime client parameters set via CLI flags.
type ClientConfig struct {
	APIURL         string
	RequestTimeout time.Duration
	PollInterval   time.Duration // delay between history fetches while degraded
	MaxAttempts    int           // scheduled polls before giving up
	Lang           string
}

type subjectCtxKey struct{}

// ContextWithSubject stores the active subject in context.
func ContextWithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectCtxKey{}, s)
}

// SubjectFromContext retrieves the active subject from context.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(subjectCtxKey{}).(Subject)
	return s, ok
}

// SubjectImport is one entry of a subjects JSON file.
type SubjectImport struct {
	Name string `json:"name"`
}
