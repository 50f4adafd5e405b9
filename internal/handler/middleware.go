package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
)

// subjectCtx loads the subject named by the {subjectID} URL parameter into
// the request context.
func (h *Handler) subjectCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "subjectID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid subject ID", http.StatusBadRequest)
			return
		}

		subject, err := h.store.GetSubject(id)
		if errors.Is(err, sql.ErrNoRows) {
			slog.Warn("unknown subject", "subject_id", id)
			http.Error(w, appI18n.T(r.Context(), "SubjectNotFound"), http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("failed to load subject", "subject_id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ctx := model.ContextWithSubject(r.Context(), subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
