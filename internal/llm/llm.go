// Package llm answers chat turns and writes exam papers through an
// OpenAI-compatible API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/examgen/internal/llm/prompts"
	"github.com/pavelanni/examgen/internal/model"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client. The prompt templates must be loaded with
// prompts.Load before the first call.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping checks that the endpoint is reachable and knows the configured model.
func (c *Client) Ping(ctx context.Context) error {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range list.Models {
		if m.ID == c.model {
			return nil
		}
	}
	slog.Warn("configured model not listed by endpoint", "model", c.model, "available", len(list.Models))
	return nil
}

// Answer replies to the newest instructor message in history.
func (c *Client) Answer(ctx context.Context, subject model.Subject, history []model.StoredMessage) (string, error) {
	system, err := prompts.BuildChatPrompt(prompts.ChatData{Subject: subject.Name})
	if err != nil {
		return "", fmt.Errorf("build chat prompt: %w", err)
	}

	chatMsgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	for _, m := range history {
		if m.Role == model.RoleAssistant {
			chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			})
			continue
		}
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompts.WrapUserMessage(m.Content),
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMsgs,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("LLM answer", "subject_id", subject.ID, "chars", len(answer))
	return answer, nil
}

type generatedQuestion struct {
	Question string `json:"question"`
	CL       string `json:"cl"`
	CO       string `json:"co"`
}

type generatedExam struct {
	PartA []generatedQuestion `json:"part_a"`
	PartB []generatedQuestion `json:"part_b"`
}

// GenerateExam asks the model for a complete two-part paper on subject.
func (c *Client) GenerateExam(ctx context.Context, subject model.Subject, topic string) (*model.ExamDraft, error) {
	system, err := prompts.BuildExamPrompt(prompts.ExamData{Subject: subject.Name, Topic: topic})
	if err != nil {
		return nil, fmt.Errorf("build exam prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: "Generate the exam paper."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM exam API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("LLM returned no choices for exam")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM exam response", "raw", raw)

	var exam generatedExam
	if err := json.Unmarshal([]byte(raw), &exam); err != nil {
		return nil, fmt.Errorf("parse exam response: %w (raw: %s)", err, raw)
	}

	draft := &model.ExamDraft{
		PartA: convert(exam.PartA, model.PartAMarks, model.LevelRemember, "CO1"),
		PartB: convert(exam.PartB, model.PartBMarks, model.LevelApply, "CO2"),
	}
	if draft.Empty() {
		return nil, fmt.Errorf("LLM returned an empty exam (raw: %s)", raw)
	}
	return draft, nil
}

func convert(in []generatedQuestion, marks int, level model.CognitiveLevel, co string) []model.ExtractedQuestion {
	out := make([]model.ExtractedQuestion, 0, len(in))
	for _, q := range in {
		text := strings.TrimSpace(q.Question)
		if text == "" {
			continue
		}
		eq := model.ExtractedQuestion{Text: text, Marks: marks, CognitiveLevel: level, CourseOutcome: co}
		if l := model.NormalizeLevel(strings.TrimSpace(q.CL)); l.Valid() {
			eq.CognitiveLevel = l
		}
		if c := strings.ToUpper(strings.TrimSpace(q.CO)); c != "" {
			eq.CourseOutcome = c
		}
		out = append(out, eq)
	}
	return out
}
