package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstream/internal/logging"
	"bookstream/internal/platform/crypto"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestJSONSuccess_IncludesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logging.ContextWithRequestID(req.Context(), "req-1"))
	w := httptest.NewRecorder()

	JSONSuccess(w, req, map[string]int{"n": 1}, map[string]any{"total": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
		Meta    map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data["n"])
	assert.Equal(t, "req-1", resp.Meta["request_id"])
	assert.EqualValues(t, 1, resp.Meta["total"])
}

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	JSONError(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusBadRequest, "VALIDATION_ERROR", "bad",
		[]ErrorDetail{{Field: "title", Message: "Title is required"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "title", resp.Error.Details[0].Field)
	assert.Nil(t, resp.Meta)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "client-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "client-id", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "bad id\twith spaces")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "bad id\twith spaces", seen)
	assert.Len(t, seen, 36)
}

func TestRecoveryMiddleware_ReraisesAbort(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := AccessLogMiddleware(RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w).Error.Code)
}

func TestBearerAuth(t *testing.T) {
	var uploader string
	protected := BearerAuth("secret", crypto.ScopeUpload)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploader = UploaderFrom(r)
		w.WriteHeader(http.StatusCreated)
	}))

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/books", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/books", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := crypto.GenerateToken("secret", "curator", crypto.ScopeUpload, time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/books", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "curator", uploader)
	})

	t.Run("empty secret disables the guard", func(t *testing.T) {
		open := BearerAuth("", crypto.ScopeUpload)(okHandler)
		w := httptest.NewRecorder()
		open.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/books", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAccessLogMiddleware_UsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /subjects/{subject}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	AccessLogMiddleware(mux).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subjects/fantasy", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

type upload struct {
	Title    string `validate:"required,max=10"`
	Language string `validate:"omitempty,lang"`
	Year     int    `validate:"omitempty,gte=1000,lte=2100"`
}

func TestValidateStruct(t *testing.T) {
	assert.Nil(t, ValidateStruct(upload{Title: "Ok", Language: "por", Year: 1899}))

	details := ValidateStruct(upload{Language: "Portuguese", Year: 3000})
	fields := map[string]string{}
	for _, d := range details {
		fields[d.Field] = d.Message
	}
	assert.Contains(t, fields["title"], "required")
	assert.Contains(t, fields["language"], "language code")
	assert.Contains(t, fields["year"], "out of range")
}
