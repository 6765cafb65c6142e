package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/starford/diarysum/internal/diaryservice"
	"github.com/starford/diarysum/internal/llm"
	"github.com/starford/diarysum/internal/models"
	"github.com/starford/diarysum/internal/orchestrator"
	"github.com/starford/diarysum/internal/summarizer"
	"github.com/starford/diarysum/internal/watcher"
)

// NewLogger returns the structured JSON logger shared by every command.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Services is the wired summarization stack.
type Services struct {
	Client    llm.Client
	Processor *orchestrator.Processor
	Diaries   *diaryservice.Service

	logger *slog.Logger
}

// NewServices wires the model client, processor and diary service from cfg.
// A nil client is built from cfg.Model.
func NewServices(cfg *Config, logger *slog.Logger, client llm.Client, opts ...orchestrator.Option) (*Services, error) {
	if client == nil {
		c, err := llm.NewClient(cfg.Model.LLM())
		if err != nil {
			return nil, fmt.Errorf("init model client: %w", err)
		}
		client = c
	}

	base := []orchestrator.Option{
		orchestrator.WithTemplatePath(cfg.Diary.TemplatePath),
		orchestrator.WithMarkSummarized(cfg.Diary.MarkSummarized),
		orchestrator.WithLogger(logger),
	}
	processor := orchestrator.NewProcessor(summarizer.New(client), append(base, opts...)...)

	diaries := diaryservice.NewService(processor,
		diaryservice.WithDefaultFolder(cfg.Diary.Folder),
		diaryservice.WithRecentLimit(cfg.Diary.RecentLimit),
		diaryservice.WithLogger(logger),
	)

	return &Services{
		Client:    client,
		Processor: processor,
		Diaries:   diaries,
		logger:    logger,
	}, nil
}

// Ready reports whether the model backend answers, for clients that can be probed.
func (s *Services) Ready(ctx context.Context) error {
	p, ok := s.Client.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.Ping(ctx)
}

// Watch summarizes diaries in folder as they settle until ctx is cancelled.
// onOutcome, if set, receives every processed file.
func (s *Services) Watch(ctx context.Context, folder string, debounce time.Duration, onEvent watcher.EventCallback, onOutcome func(models.Outcome, error)) error {
	folder, err := s.Diaries.Folder(folder)
	if err != nil {
		return err
	}
	w, err := watcher.New(folder, func(ctx context.Context, path string) {
		o, err := s.Diaries.ProcessFile(ctx, path, false)
		if onOutcome != nil {
			onOutcome(o, err)
		}
	},
		watcher.WithDebounce(debounce),
		watcher.WithLogger(s.logger),
		watcher.WithEventCallback(onEvent),
	)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
