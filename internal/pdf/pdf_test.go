package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examgen/internal/model"
)

func sampleDraft() *model.ExamDraft {
	d := &model.ExamDraft{}
	for i := 0; i < 10; i++ {
		d.PartA = append(d.PartA, model.ExtractedQuestion{Text: "Define a checksum and state its use (Re CO1)", Marks: 2, CognitiveLevel: model.LevelRemember, CourseOutcome: "CO1"})
	}
	for i := 0; i < 5; i++ {
		d.PartB = append(d.PartB, model.ExtractedQuestion{
			Text:           "Explain in detail how TCP congestion control reacts to packet loss, covering slow start, congestion avoidance and fast retransmit with diagrams.",
			Marks:          16,
			CognitiveLevel: model.LevelAnalyze,
			CourseOutcome:  "CO3",
		})
	}
	return d
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, "Computer Networks – Unit 2", sampleDraft(), Header{Institution: "Example College"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestRenderEmptyDraft(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, "Networks", &model.ExamDraft{}, Header{}))
	assert.Error(t, Render(&buf, "Networks", nil, Header{}))
	assert.Zero(t, buf.Len())
}

func TestCleanQuestionText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Define RPC (Re CO1)", "Define RPC"},
		{"Define RPC (2 marks)", "Define RPC"},
		{"Unit 3: Explain paging", "Explain paging"},
		{"Explain paging (Unit: unit 1, Part: part a)", "Explain paging"},
		{"Explain paging (Part: part b)", "Explain paging"},
		{"Explain paging [Unit 2]", "Explain paging"},
		{"Explain paging (CO4)", "Explain paging"},
		{"1. Explain paging", "Explain paging"},
		{"Compare TCP (reliable) and UDP", "Compare TCP (reliable) and UDP"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanQuestionText(tt.in))
		})
	}
}

func TestMaxMarks(t *testing.T) {
	assert.Equal(t, 10*2+3*16, MaxMarks(sampleDraft()))
	assert.Equal(t, 2*16, MaxMarks(&model.ExamDraft{PartB: make([]model.ExtractedQuestion, 4)}))
	assert.Zero(t, MaxMarks(nil))
}

func TestWithDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	h := withDefaults(Header{}, sampleDraft(), now)
	assert.Equal(t, "Internal Exam I, 2026 - 2027", h.ExamTitle)
	assert.Equal(t, "90 Minutes", h.Duration)
	assert.Equal(t, 68, h.MaxMarks)

	h = withDefaults(Header{Duration: "3 Hours", MaxMarks: 100}, sampleDraft(), now)
	assert.Equal(t, "3 Hours", h.Duration)
	assert.Equal(t, 100, h.MaxMarks)
}
