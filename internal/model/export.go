package model

import "strings"

// CognitiveLevel is a Bloom's taxonomy code attached to a question.
type CognitiveLevel string

const (
	LevelRemember   CognitiveLevel = "Re"
	LevelUnderstand CognitiveLevel = "Un"
	LevelApply      CognitiveLevel = "Ap"
	LevelAnalyze    CognitiveLevel = "An"
	LevelEvaluate   CognitiveLevel = "Ev"
	LevelCreate     CognitiveLevel = "Cr"
)

// Marks awarded per item in each section of an exam paper.
const (
	PartAMarks = 2
	PartBMarks = 16
)

// NormalizeLevel returns the canonical two-letter spelling ("un" -> "Un").
func NormalizeLevel(s string) CognitiveLevel {
	if len(s) < 2 {
		return CognitiveLevel(strings.ToUpper(s))
	}
	return CognitiveLevel(strings.ToUpper(s[:1]) + strings.ToLower(s[1:2]))
}

// Valid reports whether l is one of the six known levels.
func (l CognitiveLevel) Valid() bool {
	switch l {
	case LevelRemember, LevelUnderstand, LevelApply, LevelAnalyze, LevelEvaluate, LevelCreate:
		return true
	}
	return false
}

// ExtractedQuestion is one item of an exam draft.
type ExtractedQuestion struct {
	Text           string         `json:"question"`
	Marks          int            `json:"marks"`
	CognitiveLevel CognitiveLevel `json:"cl"`
	CourseOutcome  string         `json:"co"`
}

// ExamDraft is a two-part exam paper. Part A items carry 2 marks, Part B items 16.
type ExamDraft struct {
	PartA []ExtractedQuestion `json:"part_a"`
	PartB []ExtractedQuestion `json:"part_b"`
}

// Empty reports whether the draft has no questions at all.
func (d *ExamDraft) Empty() bool {
	return d == nil || len(d.PartA)+len(d.PartB) == 0
}

// ExportRequest is the body of a generate-pdf call. A nil draft asks the
// backend to generate the paper itself.
type ExportRequest struct {
	FormattedQuestions *ExamDraft `json:"formatted_questions,omitempty"`
}
