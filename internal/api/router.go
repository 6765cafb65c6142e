package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/diarysum/internal/diaryservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *diaryservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Diaries.
	r.Get("/diaries", h.ListDiaries)
	r.Get("/diaries/{name}", h.GetDiary)

	// Runs.
	r.Post("/runs", h.TriggerRun)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
