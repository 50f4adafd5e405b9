// Package extract turns a free-form assistant reply into a two-part exam draft.
//
// The extractor is a line-oriented heuristic. It recognises numbered lines as
// questions, tracks Part A / Part B from header-like lines, and reads the
// cognitive level and course outcome from tags in the question text, falling
// back to per-section defaults when no tag is present.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/examgen/internal/model"
)

// minQuestionLen is the trimmed length a numbered line must exceed to count
// as a question. Shorter lines are bare numbering.
const minQuestionLen = 10

const defaultCourseOutcome = "CO1"

var (
	questionRegex = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	tagRegex      = regexp.MustCompile(`(?i)\(\s*(Re|Un|Ap|An|Ev|Cr)\s+CO(\d+)\s*\)`)
	courseRegex   = regexp.MustCompile(`(?i)\bCO(\d+)\b`)
	unitRegex     = regexp.MustCompile(`(?i)\bUnit\s*(\d+)\b`)
	levelRegex    = regexp.MustCompile(`\b(Re|Un|Ap|An|Ev|Cr)\b`)
)

var (
	partBMarkers = []string{"part b", "16 marks", "fourteen", "sixteen"}
	partAMarkers = []string{"part a", "2 marks", "two"}
)

type section int

const (
	sectionA section = iota
	sectionB
)

func (s section) marks() int {
	if s == sectionB {
		return model.PartBMarks
	}
	return model.PartAMarks
}

func (s section) defaultLevel() model.CognitiveLevel {
	if s == sectionB {
		return model.LevelApply
	}
	return model.LevelRemember
}

// Extract scans text and returns the exam draft it describes, or nil when
// no question line is found. It is pure: the same text always yields an
// equal draft.
func Extract(text string) *model.ExamDraft {
	draft := &model.ExamDraft{
		PartA: []model.ExtractedQuestion{},
		PartB: []model.ExtractedQuestion{},
	}
	current := sectionA

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		body, ok := questionBody(line)
		if !ok {
			if s, found := detectSection(line); found {
				current = s
			}
			continue
		}

		q := parseQuestion(body, current)
		if current == sectionB {
			draft.PartB = append(draft.PartB, q)
		} else {
			draft.PartA = append(draft.PartA, q)
		}
	}

	if draft.Empty() {
		return nil
	}
	return draft
}

// questionBody returns the text after the numbering of a question line.
func questionBody(line string) (string, bool) {
	if utf8.RuneCountInString(line) <= minQuestionLen {
		return "", false
	}
	m := questionRegex.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// detectSection reports which section a header-like line switches to.
// Part B markers are checked first.
func detectSection(line string) (section, bool) {
	lower := strings.ToLower(line)
	for _, marker := range partBMarkers {
		if strings.Contains(lower, marker) {
			return sectionB, true
		}
	}
	for _, marker := range partAMarkers {
		if strings.Contains(lower, marker) {
			return sectionA, true
		}
	}
	return sectionA, false
}

func parseQuestion(body string, s section) model.ExtractedQuestion {
	level, outcome := readTags(body)
	if level == "" {
		level = s.defaultLevel()
	}
	if outcome == "" {
		outcome = defaultCourseOutcome
	}
	return model.ExtractedQuestion{
		Text:           body,
		Marks:          s.marks(),
		CognitiveLevel: level,
		CourseOutcome:  outcome,
	}
}

// readTags finds the cognitive level and course outcome of a question body.
// A "(Un CO3)" tag settles both. Without one, a bare CO code, a "Unit N"
// reference and a bare level code are each looked for on their own; the unit
// is applied after the CO code and overrides it. A bare level code must be
// capitalised so that words like "an" or "re" are not read as levels.
func readTags(body string) (model.CognitiveLevel, string) {
	if m := tagRegex.FindStringSubmatch(body); m != nil {
		return model.NormalizeLevel(m[1]), "CO" + m[2]
	}

	var level model.CognitiveLevel
	var outcome string
	if m := courseRegex.FindStringSubmatch(body); m != nil {
		outcome = "CO" + m[1]
	}
	// TODO: confirm with the backend owners whether a unit reference should
	// really beat an explicit CO code; kept for compatibility with existing drafts.
	if m := unitRegex.FindStringSubmatch(body); m != nil {
		outcome = "CO" + m[1]
	}
	if m := levelRegex.FindStringSubmatch(body); m != nil {
		level = model.NormalizeLevel(m[1])
	}
	return level, outcome
}
