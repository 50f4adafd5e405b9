// Package export turns a chat transcript into an exam-paper request.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/examgen/internal/extract"
	"github.com/pavelanni/examgen/internal/model"
)

// ErrExportFailed wraps any failure to obtain the rendered paper.
var ErrExportFailed = errors.New("pdf generation failed")

// PDFGenerator renders an exam paper for a subject.
type PDFGenerator interface {
	GeneratePDF(ctx context.Context, subjectID int64, req model.ExportRequest) ([]byte, error)
}

// LastAssistantMessage returns the newest assistant message that came from
// the backend. Client-side notices are skipped.
func LastAssistantMessage(transcript []model.ChatMessage) (model.ChatMessage, bool) {
	for i := len(transcript) - 1; i >= 0; i-- {
		m := transcript[i]
		if m.Role == model.RoleAssistant && !m.Local {
			return m, true
		}
	}
	return model.ChatMessage{}, false
}

// Compose builds the generate-pdf request. Without a usable draft the
// request is empty and the backend writes the questions itself.
func Compose(transcript []model.ChatMessage) model.ExportRequest {
	msg, ok := LastAssistantMessage(transcript)
	if !ok || strings.TrimSpace(msg.Content) == "" {
		slog.Info("no assistant reply to export, requesting auto-generated paper")
		return model.ExportRequest{}
	}
	draft := extract.Extract(msg.Content)
	if draft == nil {
		slog.Info("no questions found in last reply, requesting auto-generated paper")
		return model.ExportRequest{}
	}
	slog.Debug("composed export draft", "part_a", len(draft.PartA), "part_b", len(draft.PartB))
	return model.ExportRequest{FormattedQuestions: draft}
}

// Exporter sends composed requests to the backend.
type Exporter struct {
	client PDFGenerator
}

// New creates an exporter backed by client.
func New(client PDFGenerator) *Exporter {
	return &Exporter{client: client}
}

// Export composes a request from transcript and returns the rendered PDF.
func (e *Exporter) Export(ctx context.Context, subjectID int64, transcript []model.ChatMessage) ([]byte, error) {
	req := Compose(transcript)
	data, err := e.client.GeneratePDF(ctx, subjectID, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrExportFailed)
	}
	return data, nil
}

// FileName is the name the paper is saved under.
func FileName(subjectName string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, subjectName)
	return "Exam_" + name + ".pdf"
}
