package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/diarysum/internal/diaryservice"
	"github.com/starford/diarysum/internal/models"
	"github.com/starford/diarysum/internal/orchestrator"
	"github.com/starford/diarysum/internal/summarizer"
	"github.com/starford/diarysum/internal/testutil"
)

func testServer(t *testing.T, fake *testutil.FakeClient) (*Server, string) {
	t.Helper()

	dir := testutil.TestFolder(t, map[string]string{
		"2024-12-20.md": testutil.DiaryMarkdown,
		"2024-12-21.md": testutil.SummarizedMarkdown,
	})
	p := orchestrator.NewProcessor(summarizer.New(fake),
		orchestrator.WithTemplatePath(testutil.TemplateFile(t)))
	svc := diaryservice.NewService(p, diaryservice.WithDefaultFolder(dir))
	return New(svc, "test"), dir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_recent_diaries":
		result, err = srv.listRecentDiaries(ctx, req)
	case "summarize_folder":
		result, err = srv.summarizeFolder(ctx, req)
	case "summarize_diary":
		result, err = srv.summarizeDiary(ctx, req)
	case "preview_diary":
		result, err = srv.previewDiary(ctx, req)
	case "get_diary_format":
		result, err = srv.getDiaryFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListRecentDiaries(t *testing.T) {
	srv, _ := testServer(t, testutil.NewFakeClient("x"))

	r := callTool(t, srv, "list_recent_diaries", map[string]interface{}{"limit": float64(1)})
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	var files []models.DiaryFile
	if err := json.Unmarshal([]byte(resultText(r)), &files); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("len = %d, want 1", len(files))
	}
}

func TestListRecentDiaries_MissingFolder(t *testing.T) {
	srv, _ := testServer(t, testutil.NewFakeClient("x"))
	r := callTool(t, srv, "list_recent_diaries", map[string]interface{}{
		"folder": filepath.Join(t.TempDir(), "missing"),
	})
	if !r.IsError || !strings.Contains(resultText(r), "does not exist") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestSummarizeFolder(t *testing.T) {
	srv, dir := testServer(t, testutil.NewFakeClient("我今天感谢上帝，静坐了十分钟，跑步很舒服。"))

	r := callTool(t, srv, "summarize_folder", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	var report models.Report
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Summarized != 1 || report.Skipped != 1 || !report.Success {
		t.Errorf("report = %+v", report)
	}
	if testutil.ReadFile(t, dir, "2024-12-20.md") != testutil.SummarizedMarkdown {
		t.Error("diary not summarized")
	}
}

func TestSummarizeDiary(t *testing.T) {
	fake := testutil.NewFakeClient("今天很开心")
	srv, dir := testServer(t, fake)

	r := callTool(t, srv, "summarize_diary", map[string]interface{}{
		"path":    filepath.Join(dir, "2024-12-20.md"),
		"dry_run": true,
	})
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "今天很开心") {
		t.Errorf("result = %q", resultText(r))
	}
	if testutil.ReadFile(t, dir, "2024-12-20.md") != testutil.DiaryMarkdown {
		t.Error("dry run modified the diary")
	}

	fake.FailOn[2] = testutil.ErrFake
	r = callTool(t, srv, "summarize_diary", map[string]interface{}{
		"path": filepath.Join(dir, "2024-12-20.md"),
	})
	if !r.IsError || !strings.Contains(resultText(r), "model call failed") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestSummarizeDiary_PathRequired(t *testing.T) {
	srv, _ := testServer(t, testutil.NewFakeClient("x"))
	r := callTool(t, srv, "summarize_diary", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without path")
	}
}

func TestPreviewDiary(t *testing.T) {
	fake := testutil.NewFakeClient("x")
	srv, dir := testServer(t, fake)

	r := callTool(t, srv, "preview_diary", map[string]interface{}{
		"path": filepath.Join(dir, "2024-12-20.md"),
	})
	if got := resultText(r); got != testutil.DiaryFlattened {
		t.Errorf("preview = %q", got)
	}
	if fake.Calls() != 0 {
		t.Error("preview called the model")
	}
}

func TestGetDiaryFormat(t *testing.T) {
	srv, _ := testServer(t, testutil.NewFakeClient("x"))
	r := callTool(t, srv, "get_diary_format", nil)
	if !strings.Contains(resultText(r), "has_summary: true") {
		t.Error("contract does not mention the summary flag")
	}

	contents, err := srv.readDiaryFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != formatURI {
		t.Errorf("resource contents = %#v", contents[0])
	}
}

func TestSummarizeFolder_CancelledCallCompletes(t *testing.T) {
	dir := testutil.TestFolder(t, map[string]string{
		"a.md": testutil.DiaryMarkdown,
		"b.md": testutil.DiaryMarkdown,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := testutil.NewFakeClient("我今天感谢上帝，静坐了十分钟，跑步很舒服。")
	fake.Hook = func(int) { cancel() }
	p := orchestrator.NewProcessor(summarizer.New(fake),
		orchestrator.WithTemplatePath(testutil.TemplateFile(t)))
	srv := New(diaryservice.NewService(p, diaryservice.WithDefaultFolder(dir)), "test")

	req := mcp.CallToolRequest{}
	req.Params.Name = "summarize_folder"
	req.Params.Arguments = map[string]interface{}{}
	r, err := srv.summarizeFolder(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	var report models.Report
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Summarized != 2 || report.Cancelled {
		t.Errorf("report = %+v", report)
	}
}
