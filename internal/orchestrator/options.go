package orchestrator

import (
	"log/slog"
	"time"
)

// Option configures a Processor.
type Option func(*Processor)

// WithTemplatePath sets the template whose boilerplate is removed before
// summarizing. An empty path disables boilerplate removal.
func WithTemplatePath(path string) Option {
	return func(p *Processor) {
		p.templatePath = path
	}
}

// WithLogger sets the logger used for per-file events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMarkSummarized controls whether has_summary: true is written to the
// front matter after a summary is injected.
func WithMarkSummarized(mark bool) Option {
	return func(p *Processor) {
		p.mark = mark
	}
}

// WithDryRun computes summaries without writing any file.
func WithDryRun(dryRun bool) Option {
	return func(p *Processor) {
		p.dryRun = dryRun
	}
}

// WithObserver receives run and file progress.
func WithObserver(o Observer) Option {
	return func(p *Processor) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}
