// Package diaryservice coordinates listing, previewing and summarizing diaries
// for every surface (CLI, HTTP, MCP, watcher).
package diaryservice

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/diarysum/internal/apperr"
	"github.com/starford/diarysum/internal/models"
	"github.com/starford/diarysum/internal/orchestrator"
	"github.com/starford/diarysum/internal/parser"
	"github.com/starford/diarysum/internal/storage"
)

// DefaultRecentLimit is used when neither the caller nor the service sets a limit.
const DefaultRecentLimit = 10

// DiaryDetail is the full representation of one diary.
type DiaryDetail struct {
	models.DiaryFile
	Frontmatter map[string]any    `json:"frontmatter"`
	Attributes  map[string]string `json:"attributes"`
	HasSummary  bool              `json:"has_summary"`
	Content     string            `json:"content"`
	HTML        string            `json:"html"`
	Preview     string            `json:"preview"`
}

// Service serializes runs so that at most one rewrite pass touches the
// diaries at a time.
type Service struct {
	processor     *orchestrator.Processor
	defaultFolder string
	recentLimit   int
	logger        *slog.Logger
	md            goldmark.Markdown

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultFolder sets the folder used when a caller passes none.
func WithDefaultFolder(folder string) Option {
	return func(s *Service) {
		s.defaultFolder = folder
	}
}

// WithRecentLimit sets the default size of the recent listing.
func WithRecentLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new diary service.
func NewService(p *orchestrator.Processor, opts ...Option) *Service {
	s := &Service{
		processor:   p,
		recentLimit: DefaultRecentLimit,
		logger:      slog.Default(),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// The timeline tag element is raw HTML and must survive rendering.
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Folder resolves an empty folder to the default one.
func (s *Service) Folder(folder string) (string, error) {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		folder = s.defaultFolder
	}
	if folder == "" {
		return "", fmt.Errorf("diaryservice: %w: folder is required", apperr.ErrInvalidInput)
	}
	return folder, nil
}

// RecentLimit returns the configured default listing size.
func (s *Service) RecentLimit() int { return s.recentLimit }

// Recent lists up to limit diaries in folder, most recently modified first.
// A non-positive limit uses the service default.
func (s *Service) Recent(_ context.Context, folder string, limit int) ([]models.DiaryFile, error) {
	folder, err := s.Folder(folder)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.recentLimit
	}
	store, err := storage.NewFS(folder)
	if err != nil {
		return nil, err
	}
	files, err := store.List()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModifiedAt.Equal(files[j].ModifiedAt) {
			return files[i].ModifiedAt.After(files[j].ModifiedAt)
		}
		return files[i].Name < files[j].Name
	})
	if len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// Run summarizes every diary in folder. It fails with apperr.ErrBusy
// instead of waiting when another run or file is in progress.
func (s *Service) Run(ctx context.Context, folder string, dryRun bool) (*models.Report, error) {
	folder, err := s.Folder(folder)
	if err != nil {
		return nil, err
	}
	if !s.mu.TryLock() {
		s.logger.Info("run rejected while another is in progress", slog.String("folder", folder))
		return nil, apperr.ErrBusy
	}
	defer s.mu.Unlock()

	return s.processor.With(orchestrator.WithDryRun(dryRun)).ProcessFolder(ctx, folder)
}

// ProcessFile summarizes one diary at path, waiting for any run in progress.
func (s *Service) ProcessFile(ctx context.Context, path string, dryRun bool) (models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.processor.With(orchestrator.WithDryRun(dryRun)).ProcessPath(ctx, path)
}

// Preview returns the text that would be summarized for the diary at path.
func (s *Service) Preview(ctx context.Context, path string) (string, error) {
	return s.processor.Preview(ctx, path)
}

// Detail returns the parsed diary name inside folder with its rendered HTML
// and summarization preview.
func (s *Service) Detail(ctx context.Context, folder, name string) (*DiaryDetail, error) {
	folder, err := s.Folder(folder)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFS(folder)
	if err != nil {
		return nil, err
	}
	if !storage.IsDiary(name) {
		return nil, fmt.Errorf("diaryservice: %w: not a diary: %s", apperr.ErrInvalidInput, name)
	}
	info, err := store.Stat(name)
	if err != nil {
		return nil, err
	}
	data, err := store.Read(name)
	if err != nil {
		return nil, err
	}
	rendered, err := s.Render(data)
	if err != nil {
		return nil, err
	}
	preview, err := s.Preview(ctx, filepath.Join(store.Root(), name))
	if err != nil {
		return nil, err
	}
	doc := parser.Parse(data)
	return &DiaryDetail{
		DiaryFile:   info,
		Frontmatter: doc.Frontmatter,
		Attributes:  doc.Attributes,
		HasSummary:  doc.HasSummary(),
		Content:     string(data),
		HTML:        rendered,
		Preview:     preview,
	}, nil
}

// Render converts the diary body (without front matter) to HTML.
func (s *Service) Render(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(parser.Body(data)), &buf); err != nil {
		return "", fmt.Errorf("diaryservice: render: %w", err)
	}
	return buf.String(), nil
}
