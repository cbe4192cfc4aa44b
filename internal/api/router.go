package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sefs/internal/fileservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *fileservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/graph", h.Graph)

	r.Post("/lock", h.Lock)
	r.Post("/unlock", h.Unlock)

	// Files.
	r.Post("/files", h.Upload)
	r.Get("/files/{name}", h.OpenFile)

	r.Post("/resync", h.Resync)
	r.Get("/cycles", h.Cycles)
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// MountLegacy registers the legacy UI routes on r behind the same auth.
func MountLegacy(r chi.Router, svc *fileservice.Service, authEnabled bool, token string) {
	l := NewLegacyHandler(NewHandler(svc))
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))
		r.Get("/graph_data.json", l.GraphData)
		r.Post("/lock-node", l.LockNode)
		r.Post("/unlock-node", l.UnlockNode)
		r.Get("/open-folder/{name}", l.OpenFolder)
	})
}
