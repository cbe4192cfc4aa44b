package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sefs/internal/apperr"
)

// LegacyHandler serves the routes of the legacy single-page UI, which
// expects {"status": ...} bodies instead of the /api error shape.
type LegacyHandler struct {
	api *Handler
}

// NewLegacyHandler wraps h with the legacy UI response shapes.
func NewLegacyHandler(h *Handler) *LegacyHandler {
	return &LegacyHandler{api: h}
}

func legacyError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	writeJSON(w, status, legacyStatus{Status: "error", Message: msg})
}

// GraphData handles GET /graph_data.json.
func (l *LegacyHandler) GraphData(w http.ResponseWriter, r *http.Request) {
	l.api.Graph(w, r)
}

// LockNode handles POST /lock-node.
func (l *LegacyHandler) LockNode(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLock(w, r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, legacyStatus{Status: "error", Message: "invalid JSON body"})
		return
	}
	if _, err := l.api.svc.LockFile(r.Context(), req.name(), req.secret()); err != nil {
		legacyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, legacyStatus{Status: "locked"})
}

// UnlockNode handles POST /unlock-node.
func (l *LegacyHandler) UnlockNode(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLock(w, r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, legacyStatus{Status: "error", Message: "invalid JSON body"})
		return
	}
	_, err := l.api.svc.UnlockFile(r.Context(), req.name(), req.secret())
	switch {
	case errors.Is(err, apperr.ErrWrongSecret):
		writeJSON(w, http.StatusForbidden, legacyStatus{Status: "wrong_password"})
	case err != nil:
		legacyError(w, err)
	default:
		writeJSON(w, http.StatusOK, legacyStatus{Status: "unlocked"})
	}
}

// OpenFolder handles GET /open-folder/{name}?password=. It reports where the
// file lives rather than launching a desktop file manager.
func (l *LegacyHandler) OpenFolder(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	meta, err := l.api.svc.OpenFile(r.Context(), name, r.URL.Query().Get("password"))
	switch {
	case errors.Is(err, apperr.ErrDenied):
		writeJSON(w, http.StatusForbidden, legacyStatus{Status: "denied", Message: "secret required"})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, legacyStatus{Status: "file not found"})
	case err != nil:
		legacyError(w, err)
	default:
		writeJSON(w, http.StatusOK, legacyStatus{Status: "success", Path: meta.Path})
	}
}
