package api

import (
	"github.com/starford/sefs/internal/catalog"
	"github.com/starford/sefs/internal/models"
	"github.com/starford/sefs/internal/pipeline"
)

// LockRequest is the request body for locking or unlocking a file.
// Filename and Password are accepted for legacy UI clients.
type LockRequest struct {
	Name     string `json:"name" example:"report.pdf"`
	Secret   string `json:"secret" example:"x9"`
	Filename string `json:"filename,omitempty"`
	Password string `json:"password,omitempty"`
}

func (r LockRequest) name() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Filename
}

func (r LockRequest) secret() string {
	if r.Secret != "" {
		return r.Secret
	}
	return r.Password
}

// LockResponse reports the new lock state and the cycle that applied it.
type LockResponse struct {
	Name   string          `json:"name" example:"report.pdf" validate:"required"`
	Locked bool            `json:"locked" validate:"required"`
	Cycle  pipeline.Result `json:"cycle" validate:"required"`
}

// FileResponse describes an imported or opened file.
type FileResponse = models.FileMeta

// SearchResult is a single search hit (aliased from the catalog).
type SearchResult = catalog.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// CyclesResponse wraps the cycle history.
type CyclesResponse struct {
	Cycles []catalog.CycleRow `json:"cycles" validate:"required"`
}

// legacyStatus is the body shape the legacy UI expects from its routes.
type legacyStatus struct {
	Status  string `json:"status"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}
