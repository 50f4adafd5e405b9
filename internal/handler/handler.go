// Package handler serves the chat backend contract: synchronous chat turns,
// transcript history and exam-paper rendering.
package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pavelanni/examgen/internal/export"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/pdf"
	"github.com/pavelanni/examgen/internal/store"
)

const maxTopicRunes = 200

// Assistant produces chat answers and complete exam papers.
type Assistant interface {
	Answer(ctx context.Context, subject model.Subject, history []model.StoredMessage) (string, error)
	GenerateExam(ctx context.Context, subject model.Subject, topic string) (*model.ExamDraft, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	assistant Assistant
	paper     pdf.Header
}

// New creates a new Handler.
func New(s *store.Store, a Assistant, paper pdf.Header) *Handler {
	return &Handler{store: s, assistant: a, paper: paper}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/subjects", func(r chi.Router) {
		r.Get("/", h.handleListSubjects)
		r.Post("/", h.handleCreateSubject)
		r.Post("/import", h.handleImportSubjects)
	})
	r.Post("/chat/", h.handleChat)
	r.Route("/chat/{subjectID}", func(r chi.Router) {
		r.Use(h.subjectCtx)
		r.Get("/history", h.handleHistory)
		r.Post("/generate-pdf", h.handleGeneratePDF)
	})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, appI18n.T(r.Context(), "EmptyMessage"), http.StatusBadRequest)
		return
	}

	subject, err := h.store.GetSubject(req.SubjectID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, appI18n.T(r.Context(), "SubjectNotFound"), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := h.store.AddMessage(model.StoredMessage{
		SubjectID: subject.ID,
		Role:      model.RoleUser,
		Content:   req.Message,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	history, err := h.store.GetMessages(subject.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The reply is produced and stored even if the client stops waiting.
	ctx := context.WithoutCancel(r.Context())
	answer, err := h.assistant.Answer(ctx, subject, history)
	if err != nil {
		slog.Error("assistant answer failed", "subject_id", subject.ID, "request_id", middleware.GetReqID(ctx), "error", err)
		http.Error(w, appI18n.T(ctx, "AnswerFailed"), http.StatusBadGateway)
		return
	}

	id, err := h.store.AddMessage(model.StoredMessage{
		SubjectID: subject.ID,
		Role:      model.RoleAssistant,
		Content:   answer,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("answered chat turn", "subject_id", subject.ID, "message_id", id, "request_id", middleware.GetReqID(ctx))
	writeJSON(w, http.StatusOK, model.ChatReply{Answer: answer, ContextUsed: []string{}, MessageID: id})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	subject, _ := model.SubjectFromContext(r.Context())

	messages, err := h.store.GetMessages(subject.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []model.StoredMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	subject, _ := model.SubjectFromContext(r.Context())

	var req model.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	draft := req.FormattedQuestions
	if draft.Empty() {
		messages, err := h.store.GetMessages(subject.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		topic := latestTopic(messages)
		slog.Info("generating exam paper", "subject_id", subject.ID, "topic", topic)

		draft, err = h.assistant.GenerateExam(r.Context(), subject, topic)
		if err != nil {
			slog.Error("exam generation failed", "subject_id", subject.ID, "error", err)
			http.Error(w, appI18n.T(r.Context(), "GenerationFailed"), http.StatusBadGateway)
			return
		}
	}

	var buf bytes.Buffer
	if err := pdf.Render(&buf, subject.Name, draft, h.paper); err != nil {
		slog.Error("pdf render failed", "subject_id", subject.ID, "error", err)
		http.Error(w, appI18n.T(r.Context(), "GenerationFailed"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(subject.Name)))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("write pdf", "error", err)
	}
}

// latestTopic returns the newest instructor message, shortened, as a hint for
// generated papers.
func latestTopic(messages []model.StoredMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != model.RoleUser {
			continue
		}
		topic := strings.TrimSpace(messages[i].Content)
		if utf8.RuneCountInString(topic) > maxTopicRunes {
			topic = string([]rune(topic)[:maxTopicRunes])
		}
		return topic
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
