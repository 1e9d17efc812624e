package library

import (
	"errors"
	"net/http"
	"strings"

	"bookstream/internal/entity"
	"bookstream/internal/httpx"
	"bookstream/internal/logging"
)

type HTTPHandler struct {
	lib *Library
}

func NewHTTPHandler(lib *Library) *HTTPHandler {
	return &HTTPHandler{lib: lib}
}

type downloadRequest struct {
	Book         entity.BookRecord `json:"book"`
	LocalFileURI string            `json:"localFileUri"`
}

type folderRequest struct {
	URI string `json:"uri"`
}

// List handles GET /library
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.lib.Entries(r.Context())
	httpx.JSONSuccess(w, r, entries, map[string]any{"total": len(entries)})
}

// AddDownload handles POST /library/downloads
func (h *HTTPHandler) AddDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid download payload", nil)
		return
	}

	entry, err := h.lib.AddDownload(r.Context(), req.Book, req.LocalFileURI)
	switch {
	case errors.Is(err, ErrMissingID):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed",
			[]httpx.ErrorDetail{{Field: "book.id", Message: err.Error()}})
		return
	case errors.Is(err, ErrMissingFile):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed",
			[]httpx.ErrorDetail{{Field: "localFileUri", Message: err.Error()}})
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("add download")
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONCreated(w, r, entry)
}

// RemoveDownload handles DELETE /library/downloads/{id}
func (h *HTTPHandler) RemoveDownload(w http.ResponseWriter, r *http.Request) {
	h.lib.RemoveDownload(r.Context(), r.PathValue("id"))
	httpx.NoContent(w)
}

// ToggleFavorite handles POST /library/favorites with a book record body.
func (h *HTTPHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var book entity.BookRecord
	if err := httpx.DecodeJSON(r, &book); err != nil || strings.TrimSpace(book.ID) == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "A book with an id is required", nil)
		return
	}
	httpx.JSONSuccess(w, r, map[string]bool{"isFavorite": h.lib.ToggleFavorite(r.Context(), book)}, nil)
}

// IsFavorite handles GET /library/favorites/{id}
func (h *HTTPHandler) IsFavorite(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]bool{"isFavorite": h.lib.IsFavorite(r.Context(), r.PathValue("id"))}, nil)
}

// Reconcile handles POST /library/reconcile
func (h *HTTPHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string][]string{"demoted": h.lib.Reconcile(r.Context())}, nil)
}

// Folder handles GET /library/folder
func (h *HTTPHandler) Folder(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, folderRequest{URI: h.lib.Folder(r.Context())}, nil)
}

// SetFolder handles PUT /library/folder
func (h *HTTPHandler) SetFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid folder payload", nil)
		return
	}
	h.lib.SetFolder(r.Context(), req.URI)
	httpx.NoContent(w)
}
