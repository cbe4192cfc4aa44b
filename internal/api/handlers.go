package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sefs/internal/apperr"
	"github.com/starford/sefs/internal/fileservice"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxJSONBody      = 1 << 20
)

// Handler holds API route handlers.
type Handler struct {
	svc *fileservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *fileservice.Service) *Handler {
	return &Handler{svc: svc}
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

func decodeLock(w http.ResponseWriter, r *http.Request) (LockRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	return req, true
}

// Graph handles GET /api/graph.
//
//	@Summary		Fetch the current graph artifact
//	@Tags			graph
//	@Produce		json
//	@Param			If-None-Match	header	string	false	"ETag of a cached copy"
//	@Success		200	{object}	models.Graph
//	@Success		304
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	_, raw, etag, err := h.svc.FetchGraph(r.Context())
	if err != nil {
		writeError(w, "fetch graph", err)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// Lock handles POST /api/lock.
//
//	@Summary		Lock a file with a secret
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LockRequest	true	"File name and secret"
//	@Success		200		{object}	LockResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/lock [post]
func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLock(w, r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.LockFile(r.Context(), req.name(), req.secret())
	if err != nil {
		writeError(w, "lock file", err)
		return
	}
	writeJSON(w, http.StatusOK, LockResponse{Name: req.name(), Locked: true, Cycle: res})
}

// Unlock handles POST /api/unlock.
//
//	@Summary		Unlock a file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LockRequest	true	"File name and secret"
//	@Success		200		{object}	LockResponse
//	@Failure		403		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/unlock [post]
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLock(w, r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.UnlockFile(r.Context(), req.name(), req.secret())
	if err != nil {
		writeError(w, "unlock file", err)
		return
	}
	writeJSON(w, http.StatusOK, LockResponse{Name: req.name(), Locked: false, Cycle: res})
}

// OpenFile handles GET /api/files/{name}. The secret for a locked file is read
// from the X-File-Secret header, falling back to the secret query parameter.
//
//	@Summary		Stream a managed file
//	@Tags			files
//	@Produce		octet-stream
//	@Param			name			path	string	true	"Basename"
//	@Param			X-File-Secret	header	string	false	"Secret for locked files"
//	@Success		200
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name} [get]
func (h *Handler) OpenFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	secret := r.Header.Get("X-File-Secret")
	if secret == "" {
		secret = r.URL.Query().Get("secret")
	}
	meta, err := h.svc.OpenFile(r.Context(), name, secret)
	if err != nil {
		writeError(w, "open file", err)
		return
	}
	f, err := os.Open(meta.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, "open file", apperr.ErrNotFound)
			return
		}
		writeError(w, "open file", err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, "open file", err)
		return
	}
	w.Header().Set("X-File-Path", meta.Rel)
	http.ServeContent(w, r, meta.Name, info.ModTime(), f)
}

// Resync handles POST /api/resync.
//
//	@Summary		Run a pipeline cycle and wait for it
//	@Tags			pipeline
//	@Produce		json
//	@Success		200	{object}	pipeline.Result
//	@Security		BearerAuth
//	@Router			/resync [post]
func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Resync(r.Context())
	if err != nil {
		writeError(w, "resync", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over the last completed cycle
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(r.Context(), q, queryLimit(r))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Cycles handles GET /api/cycles.
//
//	@Summary		Recent pipeline cycles, newest first
//	@Tags			pipeline
//	@Produce		json
//	@Param			limit	query		int	false	"Max rows"
//	@Success		200		{object}	CyclesResponse
//	@Security		BearerAuth
//	@Router			/cycles [get]
func (h *Handler) Cycles(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Cycles(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, "list cycles", err)
		return
	}
	writeJSON(w, http.StatusOK, CyclesResponse{Cycles: rows})
}
