// Package llm provides chat-completion clients for the supported model providers.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a synchronous chat-completion endpoint.
type Client interface {
	ChatComplete(ctx context.Context, messages []Message) (string, error)
}

// Provider names a model backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Default endpoints and model per provider.
var defaults = map[Provider]struct {
	BaseURL string
	Model   string
}{
	ProviderOllama: {BaseURL: "http://localhost:11434", Model: "qwen2.5:latest"},
	ProviderOpenAI: {BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
	ProviderGemini: {Model: "gemini-2.5-flash"},
}

// Providers lists every supported provider.
func Providers() []Provider {
	return []Provider{ProviderOllama, ProviderOpenAI, ProviderGemini}
}

// Config holds configuration for creating a client.
type Config struct {
	Provider    Provider
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	// Timeout bounds a single request; zero means no limit.
	Timeout time.Duration
}

// NewClient creates a client from config, filling provider defaults.
func NewClient(cfg Config) (Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOllama
	}
	d, ok := defaults[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}

	switch cfg.Provider {
	case ProviderOllama:
		return NewOllamaClient(cfg), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAIClient(cfg), nil
	default:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiClient(cfg), nil
	}
}
