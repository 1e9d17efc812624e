package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveProvider(t *testing.T) {
	before := testutil.ToFloat64(ProviderErrors.WithLabelValues("google"))
	okBefore := testutil.ToFloat64(ProviderRequests.WithLabelValues("google", "ok"))

	ObserveProvider("google", "ok", 12, 120*time.Millisecond)
	ObserveProvider("google", "error", 0, time.Second)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ProviderRequests.WithLabelValues("google", "ok")))
	assert.Equal(t, before+1, testutil.ToFloat64(ProviderErrors.WithLabelValues("google")))
}

func TestObserveHTTP(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/search", "200"))

	ObserveHTTP("GET", "/search", 200, 10*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/search", "200")))
}
