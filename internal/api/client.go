// Package api provides the HTTP client for the study-assistant backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examgen/internal/model"
)

// DefaultTimeout bounds a single request. Chat turns can take long on a busy backend.
const DefaultTimeout = 120 * time.Second

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// Client talks to the backend's chat endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// created_at is kept as text: backends may omit the zone offset.
type historyEntry struct {
	ID        int64      `json:"id"`
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	CreatedAt string     `json:"created_at"`
}

// Chat sends a synchronous chat turn and returns the assistant's answer.
func (c *Client) Chat(ctx context.Context, subjectID int64, message string) (*model.ChatReply, error) {
	body, err := json.Marshal(model.ChatRequest{SubjectID: subjectID, Message: message})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/chat/", body)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	var reply model.ChatReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("parse chat reply: %w", err)
	}
	return &reply, nil
}

// History fetches the authoritative transcript of a subject.
func (c *Client) History(ctx context.Context, subjectID int64) ([]model.ChatMessage, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chat/%d/history", subjectID), nil)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	var entries []historyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}

	msgs := make([]model.ChatMessage, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, model.ChatMessage{Role: e.Role, Content: e.Content})
	}
	return msgs, nil
}

// GeneratePDF asks the backend to render an exam paper. An empty request lets
// the backend write the questions itself.
func (c *Client) GeneratePDF(ctx context.Context, subjectID int64, req model.ExportRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal export request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/chat/%d/generate-pdf", subjectID), body)
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return data, nil
}

// ListSubjects returns the subjects known to the backend.
func (c *Client) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	data, err := c.do(ctx, http.MethodGet, "/subjects/", nil)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	var subjects []model.Subject
	if err := json.Unmarshal(data, &subjects); err != nil {
		return nil, fmt.Errorf("parse subjects: %w", err)
	}
	return subjects, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	slog.Debug("backend call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
