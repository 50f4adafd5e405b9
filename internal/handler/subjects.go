package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/store"
)

// ImportSubjects creates the subjects listed in a JSON file. A file whose
// content hash was already recorded under source is skipped.
func ImportSubjects(s *store.Store, source string, data []byte) (created int, skipped bool, err error) {
	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])

	storedHash, err := s.GetImportedFileHash(source)
	if err != nil {
		return 0, false, fmt.Errorf("check import status for %s: %w", source, err)
	}
	if storedHash == hash {
		slog.Info("subjects file unchanged, skipping", "source", source)
		return 0, true, nil
	}

	var subjects []model.SubjectImport
	if err := json.Unmarshal(data, &subjects); err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", source, err)
	}

	for _, si := range subjects {
		name := strings.TrimSpace(si.Name)
		if name == "" {
			continue
		}
		_, isNew, err := s.EnsureSubject(name)
		if err != nil {
			return created, false, fmt.Errorf("create subject %q from %s: %w", name, source, err)
		}
		if isNew {
			created++
		}
	}

	if err := s.SetImportedFileHash(source, hash); err != nil {
		return created, false, fmt.Errorf("record import for %s: %w", source, err)
	}
	slog.Info("imported subjects", "source", source, "created", created)
	return created, false, nil
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.store.ListSubjects()
	if err != nil {
		slog.Error("failed to list subjects", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if subjects == nil {
		subjects = []model.Subject{}
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req model.SubjectImport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "subject name required", http.StatusBadRequest)
		return
	}

	subject, created, err := h.store.EnsureSubject(name)
	if err != nil {
		slog.Error("failed to create subject", "name", name, "error", err)
		http.Error(w, "failed to create subject: "+err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, subject)
}

func (h *Handler) handleImportSubjects(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("subjects_file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	created, skipped, err := ImportSubjects(h.store, header.Filename, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": created, "duplicate": skipped})
}
