package httpx

import (
	"errors"
	"net/http"
	"runtime/debug"

	"bookstream/internal/logging"
)

// RecoveryMiddleware turns a handler panic into a 500 JSON error. Panics
// with http.ErrAbortHandler are re-raised so the server aborts the response.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}

			logging.Ctx(r.Context()).Error().
				Interface("panic", v).
				Str("route", r.Pattern).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if rw, ok := w.(*responseWriter); ok && rw.wroteHeader() {
				return
			}
			JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
		}()
		next.ServeHTTP(w, r)
	})
}
