package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookstream/internal/aggregate"
	"bookstream/internal/catalog"
	"bookstream/internal/config"
	"bookstream/internal/entity"
	"bookstream/internal/httpx"
	"bookstream/internal/interest"
	"bookstream/internal/library"
	"bookstream/internal/platform/crypto"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	catalog   *catalog.HTTPHandler
	aggregate *aggregate.HTTPHandler
	interest  *interest.HTTPHandler
	library   *library.HTTPHandler
	db        Pinger
}

func newRouter(cfg config.ServerConfig, h handlers, limiter *httpx.RateLimitMiddleware) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	router.Handle("GET /metrics", promhttp.Handler())

	// Local catalog
	uploadGuard := httpx.BearerAuth(cfg.UploadSecret, crypto.ScopeUpload)
	router.HandleFunc("GET /books/local", h.catalog.ListLocal)
	router.Handle("POST /books", uploadGuard(http.HandlerFunc(h.catalog.Create)))
	router.HandleFunc("GET /books/download/{id}", h.catalog.Download)

	// Provider proxies
	router.HandleFunc("GET /books/open-library", h.aggregate.Provider(entity.SourceOpenLibrary))
	router.HandleFunc("GET /books/open-library/details", h.aggregate.WorkDetails)
	router.HandleFunc("GET /books/google", h.aggregate.Provider(entity.SourceGoogle))
	router.HandleFunc("GET /books/gutenberg", h.aggregate.Provider(entity.SourceGutenberg))
	router.HandleFunc("GET /books/classics", h.aggregate.Classics)

	// Aggregation
	router.HandleFunc("GET /search", h.aggregate.Search)
	router.HandleFunc("GET /subjects/{subject}", h.aggregate.Subject)
	router.HandleFunc("GET /recommendations", h.aggregate.Recommendations)

	// Interests
	router.HandleFunc("GET /interests", h.interest.List)
	router.HandleFunc("POST /interests", h.interest.Record)

	// Library
	router.HandleFunc("GET /library", h.library.List)
	router.HandleFunc("POST /library/downloads", h.library.AddDownload)
	router.HandleFunc("DELETE /library/downloads/{id}", h.library.RemoveDownload)
	router.HandleFunc("POST /library/favorites", h.library.ToggleFavorite)
	router.HandleFunc("GET /library/favorites/{id}", h.library.IsFavorite)
	router.HandleFunc("POST /library/reconcile", h.library.Reconcile)
	router.HandleFunc("GET /library/folder", h.library.Folder)
	router.HandleFunc("PUT /library/folder", h.library.SetFolder)

	// AccessLog reads the matched pattern after the mux has run, so nothing
	// between it and the mux may replace the request.
	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.CORSMiddleware(cfg.CORSOrigins),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		limiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes, cfg.MaxUploadBytes),
	)
}
