// Package pdf renders a two-part exam paper.
package pdf

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/pavelanni/examgen/internal/model"
)

// Header is the front matter printed above the questions. Zero values are
// filled from the draft and the current date.
type Header struct {
	Institution string
	ExamTitle   string
	Class       string
	Duration    string
	MaxMarks    int
}

var courseOutcomes = []string{
	"Explain the terminology and concepts of the subject.",
	"Apply fundamental principles to solve problems.",
	"Analyze complex scenarios using subject knowledge.",
	"Evaluate different approaches and strategies.",
	"Create new solutions based on learned concepts.",
}

const bloomKey = "CL-Cognitive Level; Re-Remember; Un-Understand; Ap-Apply; An-Analyze; Ev-Evaluate; Cr-Create;"

// Column widths in mm: Q.No., Question, Marks, CL, CO.
var colWidths = [5]float64{13, 117, 16, 12, 12}

const (
	margin     = 20.0
	lineHeight = 6.0
)

var cleanPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Unit\s*\d+\s*[:\-.]\s*`),
	regexp.MustCompile(`(?i)\s*\(Unit:.*?\)`),
	regexp.MustCompile(`(?i)\s*\(Part:.*?\)`),
	regexp.MustCompile(`(?i)\s*\(CO\d+\)`),
	regexp.MustCompile(`(?i)\s*\(\w+\s*CO\d+\)`),
	regexp.MustCompile(`(?i)\s*[\[(]Unit\s*\d+[\])]`),
	regexp.MustCompile(`^\d+[.)]\s*`),
}

// CleanQuestionText removes marks, unit and level tags the model leaves in
// question text, since the paper prints them in their own columns.
func CleanQuestionText(text string) string {
	text = strings.ReplaceAll(text, "(2 marks)", "")
	text = strings.ReplaceAll(text, "(16 marks)", "")
	for _, re := range cleanPatterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// MaxMarks is the total a candidate can score: every Part A item plus one
// item from each Part B pair.
func MaxMarks(d *model.ExamDraft) int {
	if d == nil {
		return 0
	}
	return len(d.PartA)*model.PartAMarks + (len(d.PartB)+1)/2*model.PartBMarks
}

// Render writes the paper for subject to w.
func Render(w io.Writer, subject string, draft *model.ExamDraft, h Header) error {
	if draft.Empty() {
		return fmt.Errorf("render %q: exam has no questions", subject)
	}
	h = withDefaults(h, draft, time.Now())

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.SetTitle("Exam - "+subject, true)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	r := &renderer{doc: doc, tr: tr}
	r.header(subject, h)
	r.outcomes()
	r.columnHeader()

	num := 1
	r.section(fmt.Sprintf("Part-A (%d x %d Marks)", len(draft.PartA), model.PartAMarks))
	for _, q := range draft.PartA {
		r.question(num, q, model.PartAMarks, model.LevelRemember, "CO1")
		num++
	}

	r.section(fmt.Sprintf("Part-B (%d x %d Marks)", (len(draft.PartB)+1)/2, model.PartBMarks))
	for i, q := range draft.PartB {
		r.question(num, q, model.PartBMarks, model.LevelApply, "CO2")
		if i%2 == 0 && i+1 < len(draft.PartB) {
			r.or()
		}
		num++
	}

	if err := doc.Error(); err != nil {
		return fmt.Errorf("render %q: %w", subject, err)
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func withDefaults(h Header, draft *model.ExamDraft, now time.Time) Header {
	if h.ExamTitle == "" {
		h.ExamTitle = fmt.Sprintf("Internal Exam I, %d - %d", now.Year(), now.Year()+1)
	}
	if h.Duration == "" {
		h.Duration = "90 Minutes"
	}
	if h.MaxMarks == 0 {
		h.MaxMarks = MaxMarks(draft)
	}
	return h
}

type renderer struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func (r *renderer) header(subject string, h Header) {
	d := r.doc
	d.SetFont("Helvetica", "", 11)
	d.CellFormat(0, lineHeight, "Roll Number: __________________", "", 1, "L", false, 0, "")
	d.Ln(4)

	if h.Institution != "" {
		d.SetFont("Helvetica", "B", 14)
		d.MultiCell(0, 7, r.tr(h.Institution), "", "C", false)
	}
	d.SetFont("Helvetica", "", 10)
	d.CellFormat(0, lineHeight, r.tr(h.ExamTitle), "", 1, "C", false, 0, "")
	d.Ln(3)

	d.SetFont("Helvetica", "B", 10)
	if h.Class != "" {
		d.CellFormat(0, lineHeight, r.tr("Class: "+h.Class), "", 1, "L", false, 0, "")
	}
	d.CellFormat(50, lineHeight, r.tr("Time: "+h.Duration), "", 0, "L", false, 0, "")
	d.CellFormat(80, lineHeight, r.tr("Course: "+subject), "", 0, "L", false, 0, "")
	d.CellFormat(0, lineHeight, fmt.Sprintf("Maximum: %d Marks", h.MaxMarks), "", 1, "R", false, 0, "")
	d.Ln(4)
}

func (r *renderer) outcomes() {
	d := r.doc
	d.SetFont("Helvetica", "B", 9)
	d.CellFormat(0, 5, "Course Outcomes (COs)", "", 1, "L", false, 0, "")
	d.SetFont("Helvetica", "", 9)
	for i, text := range courseOutcomes {
		d.CellFormat(13, 5, "CO"+strconv.Itoa(i+1), "", 0, "L", false, 0, "")
		d.CellFormat(0, 5, text, "", 1, "L", false, 0, "")
	}
	d.Ln(2)
	d.SetFont("Helvetica", "I", 9)
	d.MultiCell(0, 5, bloomKey, "", "L", false)
	d.Ln(4)
}

func (r *renderer) columnHeader() {
	d := r.doc
	d.SetFont("Helvetica", "B", 11)
	for i, title := range []string{"Q.No.", "Question", "Marks", "CL", "CO"} {
		align := "C"
		if i < 2 {
			align = "L"
		}
		ln := 0
		if i == len(colWidths)-1 {
			ln = 1
		}
		d.CellFormat(colWidths[i], 8, title, "TB", ln, align, false, 0, "")
	}
	d.Ln(2)
}

func (r *renderer) section(title string) {
	d := r.doc
	d.Ln(3)
	d.SetFont("Helvetica", "B", 12)
	d.CellFormat(0, 8, title, "", 1, "C", false, 0, "")
	d.Ln(2)
}

func (r *renderer) question(num int, q model.ExtractedQuestion, marks int, level model.CognitiveLevel, co string) {
	d := r.doc
	d.SetFont("Helvetica", "", 11)

	text := r.tr(CleanQuestionText(q.Text))
	lines := d.SplitText(text, colWidths[1]-2)
	if len(lines) == 0 {
		lines = []string{""}
	}
	height := float64(len(lines)) * lineHeight

	_, pageH := d.GetPageSize()
	if d.GetY()+height > pageH-margin {
		d.AddPage()
	}

	if q.CognitiveLevel != "" {
		level = q.CognitiveLevel
	}
	if q.CourseOutcome != "" {
		co = q.CourseOutcome
	}

	x, y := d.GetXY()
	d.CellFormat(colWidths[0], lineHeight, strconv.Itoa(num)+".", "", 0, "L", false, 0, "")
	d.MultiCell(colWidths[1], lineHeight, strings.Join(lines, "\n"), "", "L", false)
	d.SetXY(x+colWidths[0]+colWidths[1], y)
	d.CellFormat(colWidths[2], lineHeight, strconv.Itoa(marks), "", 0, "C", false, 0, "")
	d.CellFormat(colWidths[3], lineHeight, string(level), "", 0, "C", false, 0, "")
	d.CellFormat(colWidths[4], lineHeight, co, "", 0, "C", false, 0, "")
	d.SetXY(x, y+height+2)
}

func (r *renderer) or() {
	d := r.doc
	d.SetFont("Helvetica", "B", 11)
	d.CellFormat(0, lineHeight, "(OR)", "", 1, "C", false, 0, "")
	d.Ln(2)
}
