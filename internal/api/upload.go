package api

import (
	"io"
	"net/http"

	"github.com/starford/sefs/internal/fileservice"
)

// multipart framing on top of the largest accepted file
const maxUploadBytes = fileservice.MaxImportSize + 1<<20

// Upload handles POST /api/files (multipart/form-data, field "file"). An
// optional "name" field overrides the uploaded filename.
//
//	@Summary		Import a file into the managed root
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to import"
//	@Param			name	formData	string	false	"Target basename"
//	@Success		201		{object}	FileResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	data, err := io.ReadAll(io.LimitReader(file, fileservice.MaxImportSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	meta, err := h.svc.ImportFile(r.Context(), name, data)
	if err != nil {
		writeError(w, "import file", err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}
