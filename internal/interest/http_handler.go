package interest

import (
	"net/http"
	"strconv"

	"bookstream/internal/entity"
	"bookstream/internal/httpx"
)

const defaultListLimit = 10

type HTTPHandler struct {
	model *Model
}

func NewHTTPHandler(m *Model) *HTTPHandler {
	return &HTTPHandler{model: m}
}

// List handles GET /interests?limit=
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultListLimit
	}
	top := h.model.Top(r.Context(), limit)
	httpx.JSONSuccess(w, r, top, map[string]any{"limit": limit})
}

// Record handles POST /interests with a book record body.
func (h *HTTPHandler) Record(w http.ResponseWriter, r *http.Request) {
	var book entity.BookRecord
	if err := httpx.DecodeJSON(r, &book); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid book payload", nil)
		return
	}
	if !book.Usable() {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed",
			[]httpx.ErrorDetail{{Field: "title", Message: "title is required"}})
		return
	}

	h.model.RecordAcquisition(r.Context(), book)
	httpx.NoContent(w)
}
