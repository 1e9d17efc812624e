package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"bookstream/internal/httpx"
	"bookstream/internal/logging"
)

const multipartMemory = 8 << 20

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// ListLocal handles GET /books/local?q=
func (h *HTTPHandler) ListLocal(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.List(r.Context(), r.URL.Query().Get("q"), baseURL(r))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("list local books")
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSON(w, r, http.StatusOK, books)
}

// Create handles POST /books as multipart/form-data with optional pdfFile
// and coverFile parts.
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Expected a multipart form", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := NewBook{
		Title:       r.FormValue("title"),
		Author:      r.FormValue("author"),
		Description: r.FormValue("description"),
		Language:    strings.ToLower(strings.TrimSpace(r.FormValue("language"))),
	}

	var details []httpx.ErrorDetail
	var err error
	if in.Year, err = optionalInt(r.FormValue("year")); err != nil {
		details = append(details, httpx.ErrorDetail{Field: "year", Message: "year must be a whole number"})
	}
	if in.PageCount, err = optionalInt(r.FormValue("pageCount")); err != nil {
		details = append(details, httpx.ErrorDetail{Field: "pageCount", Message: "pageCount must be a whole number"})
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	details = append(details, httpx.ValidateStruct(in)...)
	if len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
		return
	}

	pdf, closePDF := formFile(r, "pdfFile")
	defer closePDF()
	cover, closeCover := formFile(r, "coverFile")
	defer closeCover()

	b, err := h.svc.Create(r.Context(), in, pdf, cover)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("create book")
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("book_id", b.ID.String()).
		Str("title", b.Title).
		Str("uploader", httpx.UploaderFrom(r)).
		Msg("book uploaded")

	w.Header().Set("Location", DownloadPath(b.ID, FilePDF))
	httpx.JSON(w, r, http.StatusCreated, h.svc.Record(b, baseURL(r)))
}

// Download handles GET /books/download/{id}?type=pdf|cover
func (h *HTTPHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	}
	kind := ParseFileKind(r.URL.Query().Get("type"))

	f, info, err := h.svc.Open(r.Context(), id, kind)
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	case errors.Is(err, ErrFileNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "File not found", nil)
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("book_id", id.String()).Msg("open book file")
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", kind.ContentType())
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func optionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formFile(r *http.Request, field string) (*Upload, func()) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, func() {}
	}
	return &Upload{Name: hdr.Filename, Content: f}, func() { _ = f.Close() }
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + r.Host
}
