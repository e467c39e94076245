// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package summary generates a short editorial overview of a digest using the
// Gemini API.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when the operator doesn't override it.
const DefaultModel = "gemini-2.0-flash"

// Summarizer produces digest overviews.
type Summarizer struct {
	model  string
	client *genai.Client

	// generate is replaced in tests.
	generate func(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)
}

// New returns a Summarizer backed by the Gemini API. Close it when done.
func New(ctx context.Context, apiKey, model string) (*Summarizer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	s := &Summarizer{model: model, client: client}
	s.generate = func(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
		return s.client.GenerativeModel(s.model).GenerateContent(ctx, genai.Text(prompt))
	}
	return s, nil
}

// Close releases the underlying API client.
func (s *Summarizer) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Summarize returns a 2-3 sentence overview of the given headlines. The
// headlines are passed as "Company: headline" lines.
func (s *Summarizer) Summarize(ctx context.Context, headlines []string) (string, error) {
	if len(headlines) == 0 {
		return "", nil
	}
	resp, err := s.generate(ctx, buildPrompt(headlines))
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("summary: model returned no text")
	}
	return text, nil
}

func buildPrompt(headlines []string) string {
	var sb strings.Builder
	sb.WriteString("You are a financial news editor. Summarize the key themes of today's company news in 2-3 plain sentences. No markdown, no bullet points, no preamble.\n\nHeadlines:\n")
	for _, h := range headlines {
		sb.WriteString("- ")
		sb.WriteString(h)
		sb.WriteString("\n")
	}
	return sb.String()
}

// extractText flattens the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}
