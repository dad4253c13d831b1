// Package summary produces short AI summaries and key points for stored articles.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	minBodyLength    = 100
	maxBodyLength    = 4000
	minSummaryLength = 10

	articleMaxTokens = 500
	titleMaxTokens   = 200
)

var ErrDisabled = errors.New("summarizer disabled")

const articleInstruction = `You are a tech news summarizer. Given an article, provide:
1. A concise 2-sentence TL;DR summary
2. 3-5 key points as bullet points

Respond in JSON format:
{
  "summary": "Two sentence summary here.",
  "key_points": ["Point 1", "Point 2", "Point 3"]
}

Be concise, factual, and focus on the most important information.
For research papers, highlight the main contribution and findings.
For news, focus on the key facts and implications.`

const titleInstruction = `Based on the article title and source, provide a brief description of what this article likely covers.

Respond in JSON format:
{
  "summary": "Brief one-sentence description based on the title.",
  "key_points": []
}

Be concise and don't make up specific details not implied by the title.`

type Summary struct {
	Text      string
	KeyPoints []string
}

func (s Summary) Empty() bool {
	return s.Text == ""
}

// Summarizer never fails; an empty Summary means nothing usable was produced.
type Summarizer interface {
	Summarize(ctx context.Context, title, body, sourceName string) Summary
}

// Generator sends one prompt to a language model and returns its raw text answer.
type Generator interface {
	Generate(ctx context.Context, instruction, prompt string, maxTokens int32) (string, error)
}

type Service struct {
	generator Generator
}

var _ Summarizer = (*Service)(nil)

func NewService(generator Generator) *Service {
	return &Service{generator: generator}
}

func (s *Service) Summarize(ctx context.Context, title, body, sourceName string) Summary {
	if s.generator == nil {
		return Summary{}
	}

	instruction, prompt, maxTokens := titleInstruction, titlePrompt(title, sourceName), int32(titleMaxTokens)
	if utf8.RuneCountInString(strings.TrimSpace(body)) >= minBodyLength {
		instruction, prompt, maxTokens = articleInstruction, articlePrompt(title, body, sourceName), articleMaxTokens
	}

	raw, err := s.generator.Generate(ctx, instruction, prompt, maxTokens)
	if err != nil {
		slog.Error("Failed to generate summary", "title", shorten(title, 50), "error", err)
		return Summary{}
	}

	result, err := parseResponse(raw)
	if err != nil {
		slog.Error("Failed to parse summary response", "title", shorten(title, 50), "error", err)
		return Summary{}
	}

	if utf8.RuneCountInString(result.Text) <= minSummaryLength {
		return Summary{}
	}

	slog.Debug("Generated summary", "title", shorten(title, 50))
	return result
}

func articlePrompt(title, body, sourceName string) string {
	runes := []rune(body)
	if len(runes) > maxBodyLength {
		body = string(runes[:maxBodyLength]) + "..."
	}
	return fmt.Sprintf("Article Title: %s\nSource: %s\n\nContent:\n%s", title, sourceName, body)
}

func titlePrompt(title, sourceName string) string {
	return fmt.Sprintf("Article Title: %s\nSource: %s", title, sourceName)
}

type response struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// parseResponse accepts bare JSON or JSON wrapped in a markdown code fence.
func parseResponse(raw string) (Summary, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var resp response
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &resp); err != nil {
		return Summary{}, fmt.Errorf("failed to decode response: %w", err)
	}

	keyPoints := make([]string, 0, len(resp.KeyPoints))
	for _, point := range resp.KeyPoints {
		if point = strings.TrimSpace(point); point != "" {
			keyPoints = append(keyPoints, point)
		}
	}

	return Summary{Text: strings.TrimSpace(resp.Summary), KeyPoints: keyPoints}, nil
}

// Noop is used when no model credentials are configured.
type Noop struct{}

func (Noop) Summarize(context.Context, string, string, string) Summary {
	return Summary{}
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
