package internal

import (
	"log/slog"

	"github.com/starford/diarysum/internal/llm"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logger *slog.Logger
	client llm.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the default JSON logger on stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithClient replaces the model client built from the configuration.
func WithClient(client llm.Client) Option {
	return func(a *application) {
		a.client = client
	}
}
