package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/diarysum/internal/apperr"
	"github.com/starford/diarysum/internal/diaryservice"
	"github.com/starford/diarysum/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *diaryservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *diaryservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListDiaries handles GET /api/diaries.
//
//	@Summary		List the most recently modified diaries
//	@Tags			diaries
//	@Produce		json
//	@Param			folder	query		string	false	"Diary folder (defaults to the configured folder)"
//	@Param			limit	query		int		false	"Maximum number of diaries"
//	@Success		200		{object}	RecentResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/diaries [get]
func (h *Handler) ListDiaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = n
	}
	folder, err := h.svc.Folder(q.Get("folder"))
	if err != nil {
		writeError(w, "list diaries", err)
		return
	}
	files, err := h.svc.Recent(r.Context(), folder, limit)
	if err != nil {
		writeError(w, "list diaries", err)
		return
	}
	if files == nil {
		files = []models.DiaryFile{}
	}
	writeJSON(w, http.StatusOK, RecentResponse{Folder: folder, Diaries: files})
}

// GetDiary handles GET /api/diaries/{name}.
//
//	@Summary		Get a diary with its rendered HTML and summarization preview
//	@Tags			diaries
//	@Produce		json
//	@Param			name	path		string	true	"Diary file name"
//	@Param			folder	query		string	false	"Diary folder"
//	@Success		200		{object}	DiaryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/diaries/{name} [get]
func (h *Handler) GetDiary(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	detail, err := h.svc.Detail(r.Context(), r.URL.Query().Get("folder"), name)
	if err != nil {
		writeError(w, "get diary", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// TriggerRun handles POST /api/runs.
//
//	@Summary		Summarize every diary in a folder
//	@Tags			runs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RunRequest	false	"Run options"
//	@Success		200		{object}	RunResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs [post]
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	// A started run finishes even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	report, err := h.svc.Run(ctx, req.Folder, req.DryRun)
	if err != nil {
		writeError(w, "run", err)
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Status: report.Status(), Report: report})
}

// writeError maps err onto a status code. Server-side failures are logged
// and reported with a generic body.
func writeError(w http.ResponseWriter, op string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		if status == http.StatusInternalServerError {
			writeJSON(w, status, errorBody("internal error"))
			return
		}
	}
	writeJSON(w, status, errorBody(err.Error()))
}
