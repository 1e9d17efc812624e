package aggregate

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bookstream/internal/entity"
	"bookstream/internal/httpx"
	"bookstream/internal/logging"
	"bookstream/internal/platform/openlibrary"
)

// maxLimit bounds the ?limit= query parameter.
const maxLimit = 100

// WorkDetailer fetches the enrichment of an Open Library work.
type WorkDetailer interface {
	WorkDetails(ctx context.Context, workID string) (entity.Details, error)
}

type HTTPHandler struct {
	agg       *Aggregator
	composer  *Composer
	interests Interests
	details   WorkDetailer
}

func NewHTTPHandler(agg *Aggregator, composer *Composer, interests Interests, details WorkDetailer) *HTTPHandler {
	return &HTTPHandler{agg: agg, composer: composer, interests: interests, details: details}
}

func filtersFrom(r *http.Request) (string, entity.Filters) {
	q := r.URL.Query()
	return q.Get("q"), entity.Filters{
		Language: strings.TrimSpace(q.Get("lang")),
		Subject:  strings.TrimSpace(q.Get("subject")),
		Source:   strings.TrimSpace(q.Get("source")),
		Author:   strings.TrimSpace(q.Get("author")),
	}
}

func limitFrom(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// Search handles GET /search?q=&lang=&subject=&source=&author=&dedupe=&limit=
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, f := filtersFrom(r)

	books, err := h.agg.SearchAll(r.Context(), query, f)
	if err != nil {
		h.searchFailed(w, r, err)
		return
	}
	if dedupe, _ := strconv.ParseBool(r.URL.Query().Get("dedupe")); dedupe {
		books = Dedupe(books)
	}
	books = truncate(books, limitFrom(r, -1))

	httpx.JSONSuccess(w, r, books, map[string]any{"total": len(books)})
}

// Subject handles GET /subjects/{subject}?limit=
func (h *HTTPHandler) Subject(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(r.PathValue("subject"))
	if subject == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Subject is required", nil)
		return
	}
	books := h.composer.BooksBySubject(r.Context(), subject, limitFrom(r, DefaultLimit))
	httpx.JSONSuccess(w, r, books, map[string]any{"subject": subject, "total": len(books)})
}

// Recommendations handles GET /recommendations?tags=a,b&limit=. Without
// tags the feed is built from the top recorded interests.
func (h *HTTPHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	limit := limitFrom(r, DefaultLimit)

	var tags []string
	for _, t := range strings.Split(r.URL.Query().Get("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	if len(tags) == 0 {
		tags = h.interests.TopInterests(r.Context(), ForYouTags)
	}
	books := h.composer.MixedRecommendations(r.Context(), tags, limit)
	if tags == nil {
		tags = []string{}
	}
	httpx.JSONSuccess(w, r, books, map[string]any{"tags": tags, "total": len(books)})
}

// Provider returns a handler for GET /books/<provider>?q=&lang=&subject=
// that queries only src and answers with a bare array.
func (h *HTTPHandler) Provider(src entity.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, f := filtersFrom(r)
		f.Source = ""

		books, err := h.agg.SearchSources(r.Context(), query, f, []entity.Source{src})
		if err != nil {
			h.searchFailed(w, r, err)
			return
		}
		httpx.JSON(w, r, http.StatusOK, books)
	}
}

// Classics handles GET /books/classics
func (h *HTTPHandler) Classics(w http.ResponseWriter, r *http.Request) {
	books, err := h.agg.Classics(r.Context())
	if err != nil {
		h.searchFailed(w, r, err)
		return
	}
	httpx.JSON(w, r, http.StatusOK, books)
}

// WorkDetails handles GET /books/open-library/details?id=<workId>. Upstream
// failures answer 200 with the default description.
func (h *HTTPHandler) WorkDetails(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Work id is required", nil)
		return
	}

	d, err := h.details.WorkDetails(r.Context(), id)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("work_id", id).Msg("work details unavailable")
		d = entity.Details{Description: openlibrary.DefaultDescription, Subjects: []string{}}
	}
	httpx.JSON(w, r, http.StatusOK, d)
}

// searchFailed answers a request whose search did not complete. A search
// abandoned because the client went away or the deadline passed is a 503;
// anything else is an internal error.
func (h *HTTPHandler) searchFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("search abandoned")
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "CANCELLED", "Request cancelled", nil)
		return
	}
	logging.Ctx(r.Context()).Error().Err(err).Msg("search failed")
	httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}
