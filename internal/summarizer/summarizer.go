// Package summarizer turns flattened diary content into a short first-person summary.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/diarysum/internal/apperr"
	"github.com/starford/diarysum/internal/llm"
)

// DefaultPrompt asks for a first-person summary of 50 to 100 characters in the
// diary's own language. %s receives the flattened content.
const DefaultPrompt = `Summarize the diary entry below in the first person, in 50 to 100 characters.
Keep the emotional tone and the core events of the original.
Write the summary in the same language the diary is written in.
Reply with the summary only.

%s

Summary:`

// Summarizer issues one chat request per diary.
type Summarizer struct {
	client llm.Client
	prompt string
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithPrompt replaces DefaultPrompt. The prompt must contain exactly one %s.
func WithPrompt(prompt string) Option {
	return func(s *Summarizer) {
		if prompt != "" {
			s.prompt = prompt
		}
	}
}

// New creates a Summarizer backed by client.
func New(client llm.Client, opts ...Option) *Summarizer {
	s := &Summarizer{client: client, prompt: DefaultPrompt}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prompt renders the instruction prompt for content.
func (s *Summarizer) Prompt(content string) string {
	return fmt.Sprintf(s.prompt, content)
}

// Summarize returns the trimmed model response for non-empty content.
// The response is not validated for length or language.
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("summarize: %w: empty content", apperr.ErrInvalidInput)
	}
	out, err := s.client.ChatComplete(ctx, []llm.Message{
		{Role: "user", Content: s.Prompt(content)},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrModelCall, err)
	}
	return strings.TrimSpace(out), nil
}
