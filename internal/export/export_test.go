package export

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examgen/internal/model"
)

const questionsReply = `Here are your questions.
PART A
1. Define the term protocol stack (Re CO1)
2. What is a checksum used for? (Un CO1)
PART B
1. Design a reliable transfer protocol over UDP (Cr CO3)`

type fakeGenerator struct {
	got  []model.ExportRequest
	data []byte
	err  error
}

func (f *fakeGenerator) GeneratePDF(_ context.Context, _ int64, req model.ExportRequest) ([]byte, error) {
	f.got = append(f.got, req)
	return f.data, f.err
}

func TestLastAssistantMessage(t *testing.T) {
	tests := []struct {
		name       string
		transcript []model.ChatMessage
		want       string
		found      bool
	}{
		{"empty", nil, "", false},
		{"only user", []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}}, "", false},
		{
			"newest assistant wins",
			[]model.ChatMessage{
				{Role: model.RoleAssistant, Content: "old"},
				{Role: model.RoleUser, Content: "more"},
				{Role: model.RoleAssistant, Content: "new"},
				{Role: model.RoleUser, Content: "thanks"},
			},
			"new", true,
		},
		{
			"local notices skipped",
			[]model.ChatMessage{
				{Role: model.RoleAssistant, Content: "real"},
				{Role: model.RoleAssistant, Content: "sync failed", Local: true},
			},
			"real", true,
		},
		{
			"greeting alone is not a reply",
			[]model.ChatMessage{{Role: model.RoleAssistant, Content: "hello", Local: true}},
			"", false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LastAssistantMessage(tt.transcript)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.Content)
		})
	}
}

func TestComposeWithDraft(t *testing.T) {
	req := Compose([]model.ChatMessage{
		{Role: model.RoleUser, Content: "give me questions"},
		{Role: model.RoleAssistant, Content: questionsReply},
	})
	require.NotNil(t, req.FormattedQuestions)
	assert.Len(t, req.FormattedQuestions.PartA, 2)
	assert.Len(t, req.FormattedQuestions.PartB, 1)
	assert.Equal(t, model.LevelCreate, req.FormattedQuestions.PartB[0].CognitiveLevel)
}

func TestComposeFallsBackToEmptyRequest(t *testing.T) {
	cases := map[string][]model.ChatMessage{
		"no transcript": nil,
		"blank reply":   {{Role: model.RoleAssistant, Content: "  "}},
		"no questions":  {{Role: model.RoleAssistant, Content: "Sure, which unit?"}},
		"only a notice": {{Role: model.RoleAssistant, Content: questionsReply, Local: true}},
	}
	for name, transcript := range cases {
		t.Run(name, func(t *testing.T) {
			req := Compose(transcript)
			assert.Nil(t, req.FormattedQuestions)

			body, err := json.Marshal(req)
			require.NoError(t, err)
			assert.JSONEq(t, `{}`, string(body))
		})
	}
}

func TestExporterExport(t *testing.T) {
	gen := &fakeGenerator{data: []byte("%PDF-1.3")}
	data, err := New(gen).Export(context.Background(), 4, []model.ChatMessage{
		{Role: model.RoleAssistant, Content: questionsReply},
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
	require.Len(t, gen.got, 1)
	assert.NotNil(t, gen.got[0].FormattedQuestions)
}

func TestExporterWrapsFailures(t *testing.T) {
	cause := errors.New("connection refused")
	_, err := New(&fakeGenerator{err: cause}).Export(context.Background(), 1, nil)
	require.ErrorIs(t, err, ErrExportFailed)
	assert.ErrorIs(t, err, cause)

	_, err = New(&fakeGenerator{}).Export(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrExportFailed)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Exam_Computer Networks.pdf", FileName("Computer Networks"))
	assert.Equal(t, "Exam_CS_IT.pdf", FileName("CS/IT"))
}
