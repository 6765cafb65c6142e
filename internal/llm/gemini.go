package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiClient uses Google's Gemini Go SDK.
type GeminiClient struct {
	apiKey      string
	model       string
	temperature float32

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewGeminiClient(cfg Config) *GeminiClient {
	return &GeminiClient{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}
}

// ensureClient initializes the SDK client on first use.
func (c *GeminiClient) ensureClient(ctx context.Context) error {
	c.once.Do(func() {
		c.client, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			Backend: genai.BackendGeminiAPI,
			APIKey:  c.apiKey,
		})
	})
	if c.initErr != nil {
		return fmt.Errorf("failed to create Gemini client: %w", c.initErr)
	}
	return nil
}

func (c *GeminiClient) ChatComplete(ctx context.Context, messages []Message) (string, error) {
	if err := c.ensureClient(ctx); err != nil {
		return "", err
	}

	temp := c.temperature
	config := &genai.GenerateContentConfig{Temperature: &temp}

	var contents []*genai.Content
	for _, m := range messages {
		role := m.Role
		switch role {
		case "system":
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
			}
			continue
		case "assistant":
			role = "model"
		default:
			role = "user"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("no user/assistant messages provided")
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return strings.TrimSpace(result.Text()), nil
}
