// Package web serves the single-page diary UI: a folder input, the recent
// diary listing and one action that summarizes the folder.
package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/diarysum/internal/apperr"
	"github.com/starford/diarysum/internal/diaryservice"
	"github.com/starford/diarysum/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Notice is a user-facing outcome message.
type Notice struct {
	Kind    string // "success" or "error"
	Message string
}

// PageData is the template data for the index page.
type PageData struct {
	Title   string
	Folder  string
	Limit   int
	Diaries []models.DiaryFile
	Notice  *Notice
	Report  *models.Report
	// Live enables the progress stream from /api/events.
	Live bool
}

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	svc  *diaryservice.Service
	tmpl *template.Template
	live bool
}

// NewRouter creates the UI router. live enables the SSE progress script,
// which needs unauthenticated access to /api/events.
func NewRouter(svc *diaryservice.Service, live bool) chi.Router {
	funcMap := template.FuncMap{
		"formatTime": formatTime,
	}
	h := &Handlers{
		svc:  svc,
		tmpl: template.Must(template.New("index.html").Funcs(funcMap).ParseFS(templateFS, "templates/index.html")),
		live: live,
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(securityHeaders)
	r.Get("/", h.HandleIndex)
	r.Post("/", h.HandleRun)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	return r
}

// HandleIndex handles GET /: the recent diaries of a folder.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, r.URL.Query().Get("folder"))
	h.render(w, http.StatusOK, data)
}

// HandleRun handles POST /: summarize the submitted folder and show the report.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, PageData{Title: "Diary Summaries", Notice: &Notice{Kind: "error", Message: "invalid form"}})
		return
	}
	folder := r.PostForm.Get("folder")
	dryRun := r.PostForm.Get("dry_run") != ""

	// A started run finishes even if the browser goes away.
	status := http.StatusOK
	report, err := h.svc.Run(context.WithoutCancel(r.Context()), folder, dryRun)

	data := h.page(r, folder)
	if err != nil {
		status = apperr.HTTPStatus(err)
		data.Notice = &Notice{Kind: "error", Message: noticeText(err)}
	} else {
		data.Report = report
		data.Notice = &Notice{Kind: "success", Message: report.Message}
	}
	h.render(w, status, data)
}

// page builds the common page data. Listing errors become an error notice.
func (h *Handlers) page(r *http.Request, folder string) PageData {
	data := PageData{
		Title: "Diary Summaries",
		Limit: h.svc.RecentLimit(),
		Live:  h.live,
	}
	resolved, err := h.svc.Folder(folder)
	if err != nil {
		return data
	}
	data.Folder = resolved
	files, err := h.svc.Recent(r.Context(), resolved, 0)
	if err != nil {
		data.Notice = &Notice{Kind: "error", Message: noticeText(err)}
		return data
	}
	data.Diaries = files
	return data
}

func (h *Handlers) render(w http.ResponseWriter, status int, data PageData) {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		slog.Error("template execution failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// noticeText formats err for the page; unexpected failures get a prefix.
func noticeText(err error) string {
	if apperr.HTTPStatus(err) == http.StatusInternalServerError {
		return "An error occurred: " + err.Error()
	}
	return err.Error()
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// formatTime formats a modification time as "2006-01-02 15:04:05" in local time.
func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
