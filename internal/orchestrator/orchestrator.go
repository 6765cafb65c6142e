// Package orchestrator runs the differ, summarizer and rewriter over every
// diary in a folder, one file at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/starford/diarysum/internal/apperr"
	"github.com/starford/diarysum/internal/checksum"
	"github.com/starford/diarysum/internal/differ"
	"github.com/starford/diarysum/internal/models"
	"github.com/starford/diarysum/internal/parser"
	"github.com/starford/diarysum/internal/rewriter"
	"github.com/starford/diarysum/internal/storage"
)

// Summarizer produces a summary for flattened diary content.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// Observer receives progress of a folder run.
type Observer interface {
	RunStarted(r *models.Report)
	FileProcessed(runID string, o models.Outcome)
	RunFinished(r *models.Report)
}

type nopObserver struct{}

func (nopObserver) RunStarted(*models.Report) {}
func (nopObserver) FileProcessed(string, models.Outcome) {}
func (nopObserver) RunFinished(*models.Report) {}

// Processor applies the summarization pipeline to diary files.
type Processor struct {
	summarizer   Summarizer
	templatePath string
	logger       *slog.Logger
	mark         bool
	dryRun       bool
	observer     Observer
	now          func() time.Time
}

// NewProcessor creates a Processor. Files are marked summarized by default.
func NewProcessor(s Summarizer, opts ...Option) *Processor {
	p := &Processor{
		summarizer: s,
		logger:     slog.Default(),
		mark:       true,
		observer:   nopObserver{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// With returns a copy of p with opts applied.
func (p *Processor) With(opts ...Option) *Processor {
	cp := *p
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// TemplatePath returns the configured template path.
func (p *Processor) TemplatePath() string { return p.templatePath }

// LoadTemplate parses the template at path. An empty path yields a nil
// document (no boilerplate); a missing file is apperr.ErrTemplateNotFound.
func LoadTemplate(path string) (*parser.Document, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("orchestrator: %w: %s", apperr.ErrTemplateNotFound, path)
		}
		return nil, fmt.Errorf("orchestrator: read template: %w", err)
	}
	return parser.Parse(data), nil
}

// ProcessFolder summarizes every diary directly inside folder. Fatal input
// errors (missing folder or template, no diaries) are returned before any
// file is touched. Per-file failures are logged, counted in the report and
// do not stop the run. Cancelling ctx stops the run between files; the
// observer still sees RunFinished with a cancelled report.
func (p *Processor) ProcessFolder(ctx context.Context, folder string) (*models.Report, error) {
	store, err := storage.NewFS(folder)
	if err != nil {
		return nil, err
	}
	tmpl, err := LoadTemplate(p.templatePath)
	if err != nil {
		return nil, err
	}
	files, err := store.List()
	if err != nil {
		return nil, err
	}
	files = p.withoutTemplate(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("orchestrator: %w: %s", apperr.ErrNoDiaries, store.Root())
	}

	report := &models.Report{
		RunID:     uuid.NewString(),
		Folder:    store.Root(),
		Outcomes:  make([]models.Outcome, 0, len(files)),
		StartedAt: p.now(),
	}
	logger := p.logger.With(slog.String("run_id", report.RunID))
	logger.Info("run started",
		slog.String("folder", report.Folder),
		slog.Int("files", len(files)),
		slog.Bool("dry_run", p.dryRun))
	p.observer.RunStarted(report)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			remaining := len(files) - report.Total
			report.Cancel(p.now(), remaining)
			logger.Warn("run cancelled", slog.Int("remaining", remaining))
			p.observer.RunFinished(report)
			return report, fmt.Errorf("orchestrator: run cancelled: %w", err)
		}
		o, err := p.processFile(ctx, store, tmpl, f.Name)
		p.logOutcome(logger, o, err)
		report.Add(o)
		p.observer.FileProcessed(report.RunID, o)
	}

	report.Finish(p.now())
	logger.Info(report.Message,
		slog.Int("summarized", report.Summarized),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.String("status", report.Status()))
	p.observer.RunFinished(report)
	return report, nil
}

// ProcessPath summarizes a single diary file. Unlike a folder run, a
// failure is returned as an error alongside the failed outcome.
func (p *Processor) ProcessPath(ctx context.Context, path string) (models.Outcome, error) {
	store, name, err := openFile(path)
	if err != nil {
		return models.Outcome{}, err
	}
	tmpl, err := LoadTemplate(p.templatePath)
	if err != nil {
		return models.Outcome{}, err
	}
	o, err := p.processFile(ctx, store, tmpl, name)
	p.logOutcome(p.logger, o, err)
	return o, err
}

// Preview returns the flattened text that would be sent to the model for
// path, without calling it.
func (p *Processor) Preview(_ context.Context, path string) (string, error) {
	store, name, err := openFile(path)
	if err != nil {
		return "", err
	}
	tmpl, err := LoadTemplate(p.templatePath)
	if err != nil {
		return "", err
	}
	data, err := store.Read(name)
	if err != nil {
		return "", err
	}
	return differ.Content(parser.Parse(data), tmpl), nil
}

func (p *Processor) processFile(ctx context.Context, store storage.Provider, tmpl *parser.Document, name string) (models.Outcome, error) {
	start := p.now()
	o := models.Outcome{Name: name, State: models.StatePending, DryRun: p.dryRun}
	done := func(state models.State) models.Outcome {
		o.State = state
		o.Elapsed = p.now().Sub(start)
		return o
	}
	skip := func(reason models.SkipReason) (models.Outcome, error) {
		o.Reason = reason
		return done(models.StateSkipped), nil
	}
	fail := func(err error) (models.Outcome, error) {
		o.Error = err.Error()
		return done(models.StateFailed), &apperr.FileError{Name: name, Err: err}
	}

	data, err := store.Read(name)
	if err != nil {
		return fail(err)
	}
	sum := checksum.Sum(data)
	content := string(data)

	doc := parser.Parse(data)
	if doc.HasSummary() {
		return skip(models.SkipAlreadySummarized)
	}
	if !rewriter.HasEmptyTarget(content) {
		return skip(models.SkipNoTarget)
	}
	text := differ.Content(doc, tmpl)
	if text == "" {
		return skip(models.SkipNoContent)
	}

	summary, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		return fail(err)
	}
	if summary == "" {
		return fail(fmt.Errorf("%w: empty response", apperr.ErrModelCall))
	}
	o.Summary = summary

	updated, _ := rewriter.InjectSummary(content, summary)
	if p.mark {
		updated = rewriter.MarkSummarized(updated)
	}
	if p.dryRun {
		return done(models.StateSummarized), nil
	}

	current, err := store.Read(name)
	if err != nil {
		return fail(err)
	}
	if !checksum.Equal(current, sum) {
		return fail(fmt.Errorf("%w: file changed while summarizing", apperr.ErrConflict))
	}
	if err := store.Write(name, []byte(updated)); err != nil {
		return fail(err)
	}
	return done(models.StateSummarized), nil
}

func (p *Processor) logOutcome(logger *slog.Logger, o models.Outcome, err error) {
	switch o.State {
	case models.StateFailed:
		logger.Warn("diary failed", slog.String("file", o.Name), slog.String("error", err.Error()))
	case models.StateSkipped:
		logger.Debug("diary skipped", slog.String("file", o.Name), slog.String("reason", string(o.Reason)))
	case models.StateSummarized:
		logger.Info("diary summarized",
			slog.String("file", o.Name),
			slog.Bool("dry_run", o.DryRun),
			slog.Duration("elapsed", o.Elapsed))
	}
}

// withoutTemplate drops the template itself when it lives inside the folder.
func (p *Processor) withoutTemplate(files []models.DiaryFile) []models.DiaryFile {
	if p.templatePath == "" {
		return files
	}
	tmplAbs, err := filepath.Abs(p.templatePath)
	if err != nil {
		return files
	}
	out := files[:0:0]
	for _, f := range files {
		if f.Path != tmplAbs {
			out = append(out, f)
		}
	}
	return out
}

func openFile(path string) (*storage.FS, string, error) {
	name := filepath.Base(path)
	if !storage.IsDiary(name) {
		return nil, "", fmt.Errorf("orchestrator: %w: not a markdown diary: %s", apperr.ErrInvalidInput, path)
	}
	store, err := storage.NewFS(filepath.Dir(path))
	if err != nil {
		return nil, "", err
	}
	return store, name, nil
}
