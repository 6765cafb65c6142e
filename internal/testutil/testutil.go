// Package testutil provides shared fixtures for diary folders and a scripted chat client.
package testutil

import (
	"context"
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/diarysum/internal/llm"
)

var (
	//go:embed testdata/template.md
	TemplateMarkdown string

	// DiaryMarkdown is a filled-in diary with an empty tag element.
	//go:embed testdata/diary.md
	DiaryMarkdown string

	// BlankMarkdown is a diary that contains only template boilerplate.
	//go:embed testdata/blank.md
	BlankMarkdown string

	// SummarizedMarkdown already carries has_summary: true.
	//go:embed testdata/summarized.md
	SummarizedMarkdown string
)

// DiaryFlattened is the summarization input expected for DiaryMarkdown
// once TemplateMarkdown's boilerplate is removed.
const DiaryFlattened = "praying: 感谢上帝今天的平安; records of selfcontrol: 今天静坐了十分钟; Daily Summary: 跑步跑出了自己的节奏 很舒服"

// TestFolder creates a temporary diary folder holding files (name → content).
func TestFolder(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// TemplateFile writes TemplateMarkdown to a temp path outside any diary folder.
func TemplateFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "td.md")
	if err := os.WriteFile(path, []byte(TemplateMarkdown), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile returns the content of dir/name, failing the test on error.
func ReadFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// ErrFake is the default error returned by a failing FakeClient call.
var ErrFake = errors.New("fake model unavailable")

// FakeClient is an llm.Client that replays scripted responses.
type FakeClient struct {
	mu sync.Mutex

	// Response is returned by every successful call.
	Response string
	// FailOn maps 1-based call numbers to the error they return.
	FailOn map[int]error
	// Hook, if set, runs before each call returns.
	Hook func(call int)

	calls [][]llm.Message
}

// NewFakeClient returns a client that always answers with response.
func NewFakeClient(response string) *FakeClient {
	return &FakeClient{Response: response, FailOn: map[int]error{}}
}

func (f *FakeClient) ChatComplete(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	n := len(f.calls)
	err := f.FailOn[n]
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return "", err
	}
	return f.Response, nil
}

// Calls returns the number of ChatComplete invocations.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// LastPrompt returns the content of the last user message sent.
func (f *FakeClient) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	msgs := f.calls[len(f.calls)-1]
	return msgs[len(msgs)-1].Content
}
