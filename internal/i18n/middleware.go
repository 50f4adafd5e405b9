package i18n

import (
	"net/http"
	"strings"
)

// Middleware picks the localizer for each request from its Accept-Language
// header, falling back to lang.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			langs := []string{lang}
			if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
				langs = []string{accept, lang}
			}
			ctx := WithLocalizer(r.Context(), NewLocalizer(langs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
