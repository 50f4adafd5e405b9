package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	require.NoError(t, Init(lang))
	return WithLang(context.Background(), lang)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	assert.Equal(t, "Thinking...", T(ctx, "Thinking"))
	assert.Equal(t, "❌ **PDF Generation Failed.** Please try again later.", T(ctx, "ExportFailed"))
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	assert.Equal(t, "Думаю...", T(ctx, "Thinking"))
}

func TestGreetingTemplate(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "Greeting", map[string]any{"Subject": "Computer Networks"})
	want := "Hello! I'm ready to help you generate exam questions for **Computer Networks**. What topic should we cover?"
	assert.Equal(t, want, got)
}

func TestPluralTranslation(t *testing.T) {
	tests := []struct {
		lang  string
		count int
		want  string
	}{
		{"en", 1, "1 message in history."},
		{"en", 5, "5 messages in history."},
		{"ru", 1, "1 сообщение в истории."},
		{"ru", 3, "3 сообщения в истории."},
		{"ru", 5, "5 сообщений в истории."},
	}
	for _, tt := range tests {
		ctx := initLang(t, tt.lang)
		assert.Equal(t, tt.want, Tp(ctx, "MessageCount", tt.count), "%s/%d", tt.lang, tt.count)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	assert.Equal(t, "NonExistentKey", T(ctx, "NonExistentKey"))
}

func TestFallbackWithoutLocalizer(t *testing.T) {
	require.NoError(t, Init("ru"))
	assert.Equal(t, "Источники:", T(context.Background(), "Sources"))
}

func TestMiddlewareUsesAcceptLanguage(t *testing.T) {
	require.NoError(t, Init("en"))

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "SubjectNotFound")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "Предмет не найден.", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "Subject not found.", got)
}
