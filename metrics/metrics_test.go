package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrementIndependently(t *testing.T) {
	before := testutil.ToFloat64(CacheHitsTotal)
	CacheHitsTotal.Inc()
	require.Equal(t, before+1, testutil.ToFloat64(CacheHitsTotal))
}

func TestTxnActiveGaugeTracksIncDec(t *testing.T) {
	before := testutil.ToFloat64(TxnActive)
	TxnActive.Inc()
	TxnActive.Inc()
	TxnActive.Dec()
	require.Equal(t, before+1, testutil.ToFloat64(TxnActive))
}

func TestHandlerServesPrometheusFormat(t *testing.T) {
	require.NotNil(t, Handler())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "# TYPE mde_cache_hits_total counter")
}
