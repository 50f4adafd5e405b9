// Package prompts renders the system prompts sent to the language model.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var Templates embed.FS

// Default question counts for a generated paper.
const (
	DefaultPartA = 10
	DefaultPartB = 5
)

const maxMessageRunes = 10000

var (
	userMessageRegex        = regexp.MustCompile(`(?i)</?\s*user-message\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

var (
	loadOnce     sync.Once
	loadErr      error
	chatTemplate *template.Template
	examTemplate *template.Template
)

// ChatData holds template data for the conversational prompt.
type ChatData struct {
	Subject string
	Notes   []string
}

// ExamData holds template data for the structured exam prompt.
type ExamData struct {
	Subject string
	Topic   string
	PartA   int
	PartB   int
}

// Load parses the prompt templates from fsys. Only the first call has
// any effect.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		chatTemplate, loadErr = parse(fsys, "templates/chat.txt")
		if loadErr != nil {
			return
		}
		examTemplate, loadErr = parse(fsys, "templates/exam.txt")
	})
	return loadErr
}

func parse(fsys fs.FS, name string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// BuildChatPrompt renders the system prompt for a chat turn.
func BuildChatPrompt(data ChatData) (string, error) {
	if chatTemplate == nil {
		return "", notLoaded()
	}
	return execute(chatTemplate, data)
}

// BuildExamPrompt renders the system prompt for a generated paper.
// Zero counts fall back to the defaults.
func BuildExamPrompt(data ExamData) (string, error) {
	if examTemplate == nil {
		return "", notLoaded()
	}
	if data.PartA <= 0 {
		data.PartA = DefaultPartA
	}
	if data.PartB <= 0 {
		data.PartB = DefaultPartB
	}
	return execute(examTemplate, data)
}

func notLoaded() error {
	if loadErr != nil {
		return fmt.Errorf("templates load failed: %w", loadErr)
	}
	return errors.New("templates not initialized: call Load first")
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WrapUserMessage strips prompt-injection tags from an instructor's message,
// caps its length and wraps it in <user-message> tags.
func WrapUserMessage(msg string) string {
	msg = userMessageRegex.ReplaceAllString(msg, "")
	msg = systemInstructionsRegex.ReplaceAllString(msg, "")
	msg = strings.TrimSpace(msg)

	if utf8.RuneCountInString(msg) > maxMessageRunes {
		runes := []rune(msg)
		msg = string(runes[:maxMessageRunes]) + "\n\n[Message truncated due to length]"
	}
	return "<user-message>\n" + msg + "\n</user-message>"
}
