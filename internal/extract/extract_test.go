package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examgen/internal/model"
)

func TestExtractTwoSections(t *testing.T) {
	text := `Part A
1. What is CAP theorem? (Re CO1)
Part B
1. Explain Raft consensus in detail (Un CO3)`

	draft := Extract(text)
	require.NotNil(t, draft)

	assert.Equal(t, []model.ExtractedQuestion{
		{Text: "What is CAP theorem? (Re CO1)", Marks: 2, CognitiveLevel: model.LevelRemember, CourseOutcome: "CO1"},
	}, draft.PartA)
	assert.Equal(t, []model.ExtractedQuestion{
		{Text: "Explain Raft consensus in detail (Un CO3)", Marks: 16, CognitiveLevel: model.LevelUnderstand, CourseOutcome: "CO3"},
	}, draft.PartB)
}

func TestExtractNoQuestions(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"prose", "Sure! Let me know which unit you want to cover."},
		{"headers only", "Part A\nPart B\n"},
		{"bare numbering", "1. Hi\n2) Ok\n"},
		{"number without marker", "1 Explain the CAP theorem"},
		{"marker without space", "1.Explain the CAP theorem"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Extract(tt.text))
		})
	}
}

func TestExtractLengthGuard(t *testing.T) {
	assert.Nil(t, Extract("1. Hi"))

	draft := Extract("1. Explain the CAP theorem")
	require.NotNil(t, draft)
	require.Len(t, draft.PartA, 1)
	assert.Equal(t, "Explain the CAP theorem", draft.PartA[0].Text)

	// Eleven characters is the shortest accepted line.
	require.NotNil(t, Extract("1. Abcdefgh"))
	assert.Nil(t, Extract("1. Abcdefg"))
}

func TestExtractParenMarker(t *testing.T) {
	draft := Extract("12) Describe two-phase commit")
	require.NotNil(t, draft)
	require.Len(t, draft.PartA, 1)
	assert.Equal(t, "Describe two-phase commit", draft.PartA[0].Text)
}

func TestExtractTagPriority(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantLevel model.CognitiveLevel
		wantCO    string
	}{
		{"tag beats bare CO", "1. Compare Paxos and Raft, see CO4 (An CO2)", model.LevelAnalyze, "CO2"},
		{"tag beats unit", "1. Unit 5: compare Paxos and Raft (Ev CO2)", model.LevelEvaluate, "CO2"},
		{"unit beats bare CO", "1. Define consistency models CO2 Unit 4", model.LevelRemember, "CO4"},
		{"unit beats bare CO regardless of order", "1. Unit 3 question on quorum CO5", model.LevelRemember, "CO3"},
		{"bare CO only", "1. Define linearizability CO3", model.LevelRemember, "CO3"},
		{"unit only", "1. Define linearizability [Unit 2]", model.LevelRemember, "CO2"},
		{"bare level only", "1. Define linearizability - Un", model.LevelUnderstand, "CO1"},
		{"bare level and bare CO", "1. Define linearizability Ap CO4", model.LevelApply, "CO4"},
		{"lower-case tag", "1. Define linearizability (un co2)", model.LevelUnderstand, "CO2"},
		{"no tags", "1. Define linearizability", model.LevelRemember, "CO1"},
		{"lower-case article is not a level", "1. Give an example of a quorum", model.LevelRemember, "CO1"},
		{"lower-case re is not a level", "1. Explain how to re run a failed job", model.LevelRemember, "CO1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := Extract(tt.line)
			require.NotNil(t, draft)
			require.Len(t, draft.PartA, 1)
			q := draft.PartA[0]
			assert.Equal(t, tt.wantLevel, q.CognitiveLevel)
			assert.Equal(t, tt.wantCO, q.CourseOutcome)
		})
	}
}

func TestExtractDefaultsPerSection(t *testing.T) {
	text := `1. Define a distributed system
Part B
2. Design a replicated key-value store`

	draft := Extract(text)
	require.NotNil(t, draft)
	require.Len(t, draft.PartA, 1)
	require.Len(t, draft.PartB, 1)
	assert.Equal(t, model.LevelRemember, draft.PartA[0].CognitiveLevel)
	assert.Equal(t, model.LevelApply, draft.PartB[0].CognitiveLevel)
	assert.Equal(t, "CO1", draft.PartA[0].CourseOutcome)
	assert.Equal(t, "CO1", draft.PartB[0].CourseOutcome)
}

func TestExtractMarksIgnoreText(t *testing.T) {
	text := `Part A (2 marks each)
1. Give 16 reasons for using 5 replicas
Part B (16 marks)
2. Explain the 2 generals problem (Un CO2)`

	draft := Extract(text)
	require.NotNil(t, draft)
	for _, q := range draft.PartA {
		assert.Equal(t, 2, q.Marks)
	}
	for _, q := range draft.PartB {
		assert.Equal(t, 16, q.Marks)
	}
	assert.Len(t, draft.PartA, 1)
	assert.Len(t, draft.PartB, 1)
}

func TestExtractSectionMarkers(t *testing.T) {
	tests := []struct {
		name   string
		header string
		wantB  bool
	}{
		{"part b", "PART B", true},
		{"sixteen", "Sixteen mark questions", true},
		{"fourteen", "Fourteen-mark questions", true},
		{"16 marks", "Questions for 16 marks", true},
		{"part a", "part a", false},
		{"two", "Two mark questions", false},
		{"2 marks", "Section of 2 marks", false},
		{"b wins over a", "Part A is done, now Part B", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Start from the opposite section so the header has to switch it.
			start := "Part B"
			if tt.wantB {
				start = "Part A"
			}
			draft := Extract(start + "\n" + tt.header + "\n1. Explain vector clocks")
			require.NotNil(t, draft)
			if tt.wantB {
				assert.Len(t, draft.PartB, 1)
				assert.Empty(t, draft.PartA)
			} else {
				assert.Len(t, draft.PartA, 1)
				assert.Empty(t, draft.PartB)
			}
		})
	}
}

func TestExtractQuestionLinesSkipSectionDetection(t *testing.T) {
	text := `Part B
1. Explain the two-phase commit protocol in a network partition
2. Compare Part A style definitions with essay answers`

	draft := Extract(text)
	require.NotNil(t, draft)
	assert.Len(t, draft.PartB, 2)
	assert.Empty(t, draft.PartA)
}

func TestExtractPartBKeepsDefaultForPlainWords(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"article an", "1. Design an efficient scheduler for a cluster"},
		{"word re", "1. Explain how to re run a failed job"},
		{"mixed words", "1. Describe an approach to re balance shards"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := Extract("Part B\n" + tt.line)
			require.NotNil(t, draft)
			require.Len(t, draft.PartB, 1)
			assert.Equal(t, model.LevelApply, draft.PartB[0].CognitiveLevel)
			assert.Equal(t, "CO1", draft.PartB[0].CourseOutcome)
		})
	}
}

func TestExtractNormalizesLevel(t *testing.T) {
	for _, in := range []string{"AP", "ap", "aP", "Ap"} {
		draft := Extract("1. Apply Dijkstra's algorithm (" + in + " CO2)")
		require.NotNil(t, draft, in)
		assert.Equal(t, model.LevelApply, draft.PartA[0].CognitiveLevel, in)
	}
}

func TestExtractIdempotent(t *testing.T) {
	text := `Here is your paper.

Part A
1. Define consensus (Re CO1)
2. What is a quorum? Unit 2
Part B
11. Explain Paxos in detail (Un CO3)
12. Design a leader election scheme`

	first := Extract(text)
	second := Extract(text)
	require.NotNil(t, first)
	assert.Equal(t, first, second)

	// Drafts do not share backing arrays.
	first.PartA[0].Text = "changed"
	assert.Equal(t, "Define consensus (Re CO1)", second.PartA[0].Text)
}

func TestExtractCRLF(t *testing.T) {
	draft := Extract("Part B\r\n1. Explain gossip protocols\r\n")
	require.NotNil(t, draft)
	require.Len(t, draft.PartB, 1)
	assert.Equal(t, "Explain gossip protocols", draft.PartB[0].Text)
}
