package httpx

import (
	"context"
	"net/http"

	"bookstream/internal/logging"
)

type contextKey string

const uploaderKey contextKey = "uploader"

// UploaderFrom returns the token subject set by BearerAuth.
func UploaderFrom(r *http.Request) string {
	if v, ok := r.Context().Value(uploaderKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithUploader(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, uploaderKey, subject)
}

// RequestIDFrom returns the id assigned by RequestIDMiddleware.
func RequestIDFrom(r *http.Request) string {
	return logging.RequestIDFromContext(r.Context())
}
