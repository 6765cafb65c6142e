package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/diarysum/internal/diaryservice"
	"github.com/starford/diarysum/internal/orchestrator"
	"github.com/starford/diarysum/internal/summarizer"
	"github.com/starford/diarysum/internal/testutil"
)

func testRouter(t *testing.T, fake *testutil.FakeClient) (http.Handler, string) {
	t.Helper()
	dir := testutil.TestFolder(t, map[string]string{
		"2024-12-20.md": testutil.DiaryMarkdown,
		"2024-12-21.md": testutil.SummarizedMarkdown,
	})
	p := orchestrator.NewProcessor(summarizer.New(fake),
		orchestrator.WithTemplatePath(testutil.TemplateFile(t)))
	svc := diaryservice.NewService(p, diaryservice.WithDefaultFolder(dir))
	return NewRouter(svc, true), dir
}

func postRun(router http.Handler, folder string) *httptest.ResponseRecorder {
	form := url.Values{"folder": {folder}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIndex_ListsRecentDiaries(t *testing.T) {
	router, dir := testRouter(t, testutil.NewFakeClient("x"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"2024-12-20.md", "2024-12-21.md", "Update Diary Summaries", dir, `data-live="true"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestIndex_MissingFolderNotice(t *testing.T) {
	router, _ := testRouter(t, testutil.NewFakeClient("x"))

	missing := filepath.Join(t.TempDir(), "missing")
	req := httptest.NewRequest(http.MethodGet, "/?folder="+url.QueryEscape(missing), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "notice-error") {
		t.Error("missing folder should render an error notice")
	}
}

func TestRun_SuccessNotice(t *testing.T) {
	router, dir := testRouter(t, testutil.NewFakeClient("我今天感谢上帝，静坐了十分钟，跑步很舒服。"))

	w := postRun(router, dir)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Successfully updated summaries for 2 diary entries") {
		t.Errorf("success message missing:\n%s", body)
	}
	if !strings.Contains(body, "notice-success") {
		t.Error("success notice missing")
	}
	if testutil.ReadFile(t, dir, "2024-12-20.md") != testutil.SummarizedMarkdown {
		t.Error("diary not summarized")
	}
}

func TestRun_ErrorNotice(t *testing.T) {
	router, _ := testRouter(t, testutil.NewFakeClient("x"))

	w := postRun(router, t.TempDir())
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "notice-error") || !strings.Contains(body, "no diary files found") {
		t.Errorf("error notice missing:\n%s", body)
	}
}

func TestStaticAssets(t *testing.T) {
	router, _ := testRouter(t, testutil.NewFakeClient("x"))

	req := httptest.NewRequest(http.MethodGet, "/static/app.js", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "EventSource") {
		t.Errorf("app.js = %d", w.Code)
	}
}

func TestRun_ClientGoneStillCompletes(t *testing.T) {
	dir := testutil.TestFolder(t, map[string]string{
		"a.md": testutil.DiaryMarkdown,
		"b.md": testutil.DiaryMarkdown,
		"c.md": testutil.DiaryMarkdown,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := testutil.NewFakeClient("我今天感谢上帝，静坐了十分钟，跑步很舒服。")
	fake.Hook = func(int) { cancel() }
	p := orchestrator.NewProcessor(summarizer.New(fake),
		orchestrator.WithTemplatePath(testutil.TemplateFile(t)))
	router := NewRouter(diaryservice.NewService(p, diaryservice.WithDefaultFolder(dir)), true)

	form := url.Values{"folder": {dir}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if fake.Calls() != 3 {
		t.Errorf("model calls = %d, want 3", fake.Calls())
	}
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		if testutil.ReadFile(t, dir, name) != testutil.SummarizedMarkdown {
			t.Errorf("%s not summarized", name)
		}
	}
}
