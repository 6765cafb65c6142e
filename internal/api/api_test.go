package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/diarysum/internal/diaryservice"
	"github.com/starford/diarysum/internal/orchestrator"
	"github.com/starford/diarysum/internal/summarizer"
	"github.com/starford/diarysum/internal/testutil"
)

const fixtureSummary = "我今天感谢上帝，静坐了十分钟，跑步很舒服。"

// testEnv sets up a temp diary folder, service and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (http.Handler, string, *testutil.FakeClient) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (http.Handler, string, *testutil.FakeClient) {
	t.Helper()

	dir := testutil.TestFolder(t, map[string]string{
		"2024-12-20.md": testutil.DiaryMarkdown,
		"2024-12-21.md": testutil.SummarizedMarkdown,
	})
	fake := testutil.NewFakeClient(fixtureSummary)
	p := orchestrator.NewProcessor(summarizer.New(fake),
		orchestrator.WithTemplatePath(testutil.TemplateFile(t)))
	svc := diaryservice.NewService(p, diaryservice.WithDefaultFolder(dir))
	return NewRouter(svc, authEnabled, token, sseHandler), dir, fake
}

func do(router http.Handler, method, target string, body []byte, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListDiaries(t *testing.T) {
	router, dir, _ := testEnv(t, "")

	w := do(router, http.MethodGet, "/diaries", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RecentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Folder != dir || len(resp.Diaries) != 2 {
		t.Errorf("resp = %+v", resp)
	}

	w = do(router, http.MethodGet, "/diaries?limit=1", nil, "")
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Diaries) != 1 {
		t.Errorf("limit=1 returned %d", len(resp.Diaries))
	}
}

func TestListDiaries_BadInput(t *testing.T) {
	router, _, _ := testEnv(t, "")

	if w := do(router, http.MethodGet, "/diaries?limit=zero", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", w.Code)
	}
	missing := url.QueryEscape(filepath.Join(t.TempDir(), "missing"))
	w := do(router, http.MethodGet, "/diaries?folder="+missing, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing folder = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "does not exist") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetDiary(t *testing.T) {
	router, _, _ := testEnv(t, "")

	w := do(router, http.MethodGet, "/diaries/2024-12-20.md", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var d DiaryDetail
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if d.Name != "2024-12-20.md" || d.Preview != testutil.DiaryFlattened || d.HTML == "" {
		t.Errorf("detail = %+v", d)
	}
}

func TestGetDiary_NotFound(t *testing.T) {
	router, _, _ := testEnv(t, "")

	if w := do(router, http.MethodGet, "/diaries/nope.md", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("missing diary = %d, want 404", w.Code)
	}
	if w := do(router, http.MethodGet, "/diaries/notes.txt", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("non-diary = %d, want 400", w.Code)
	}
}

func TestTriggerRun(t *testing.T) {
	router, dir, _ := testEnv(t, "")

	w := do(router, http.MethodPost, "/runs", []byte(`{}`), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "completed" || resp.Report == nil || !resp.Success {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Message != "Successfully updated summaries for 2 diary entries" {
		t.Errorf("message = %q", resp.Message)
	}
	if testutil.ReadFile(t, dir, "2024-12-20.md") != testutil.SummarizedMarkdown {
		t.Error("diary not summarized")
	}
}

func TestTriggerRun_PartialFailure(t *testing.T) {
	router, _, fake := testEnv(t, "")
	fake.FailOn[1] = testutil.ErrFake

	w := do(router, http.MethodPost, "/runs", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp RunResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "completed_with_errors" || resp.Failed != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestTriggerRun_Errors(t *testing.T) {
	router, _, _ := testEnv(t, "")

	if w := do(router, http.MethodPost, "/runs", []byte(`{bad`), ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
	if w := do(router, http.MethodPost, "/runs", []byte(`{"path":"x"}`), ""); w.Code != http.StatusBadRequest {
		t.Errorf("unknown field = %d, want 400", w.Code)
	}

	body, _ := json.Marshal(RunRequest{Folder: filepath.Join(t.TempDir(), "missing")})
	w := do(router, http.MethodPost, "/runs", body, "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "does not exist") {
		t.Errorf("missing folder = %d %s", w.Code, w.Body.String())
	}

	empty, _ := json.Marshal(RunRequest{Folder: t.TempDir()})
	w = do(router, http.MethodPost, "/runs", empty, "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "no diary files") {
		t.Errorf("empty folder = %d %s", w.Code, w.Body.String())
	}
}

func TestTriggerRun_ConcurrentConflict(t *testing.T) {
	router, _, fake := testEnv(t, "")

	var inner *httptest.ResponseRecorder
	fake.Hook = func(int) {
		inner = do(router, http.MethodPost, "/runs", nil, "")
	}
	if w := do(router, http.MethodPost, "/runs", nil, ""); w.Code != http.StatusOK {
		t.Fatalf("outer run = %d", w.Code)
	}
	if inner == nil || inner.Code != http.StatusConflict {
		t.Errorf("concurrent run = %v, want 409", inner)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, _, _ := testEnv(t, "secret123")

	if w := do(router, http.MethodGet, "/diaries", nil, "secret123"); w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router, _, _ := testEnv(t, "secret123")

	if w := do(router, http.MethodPost, "/runs", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router, _, _ := testEnv(t, "secret123")

	if w := do(router, http.MethodGet, "/diaries", nil, "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes headers and blocks until the request context is done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _, _ := testEnvWithSSE(t, true, "secret", sseStub)

	if w := do(router, http.MethodGet, "/events", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router, _, _ := testEnvWithSSE(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
