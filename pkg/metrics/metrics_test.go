package metrics

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRemoteRequest(t *testing.T) {
	Init(logrus.New())
	require.NotNil(t, RemoteRequestsTotal)

	before := testutil.ToFloat64(RemoteRequestsTotal.WithLabelValues("sentiment", "success"))
	RecordRemoteRequest("sentiment", "success")
	RecordRemoteRequest("sentiment", "retry")
	RecordRemoteRequest("sentiment", "success")

	assert.Equal(t, before+2,
		testutil.ToFloat64(RemoteRequestsTotal.WithLabelValues("sentiment", "success")))
	assert.GreaterOrEqual(t,
		testutil.ToFloat64(RemoteRequestsTotal.WithLabelValues("sentiment", "retry")), 1.0)
}

func TestRecordAnalyzerRun(t *testing.T) {
	Init(logrus.New())

	before := testutil.ToFloat64(AnalyzerRunsTotal.WithLabelValues("activity", "success"))
	RecordAnalyzerRun("activity", "success")
	assert.Equal(t, before+1,
		testutil.ToFloat64(AnalyzerRunsTotal.WithLabelValues("activity", "success")))
}

func TestRegisterHandlerServesMetrics(t *testing.T) {
	Init(logrus.New())

	mux := http.NewServeMux()
	RegisterHandler(mux)

	u, err := url.Parse("/metrics")
	require.NoError(t, err)
	handler, pattern := mux.Handler(&http.Request{Method: http.MethodGet, URL: u})
	assert.Equal(t, "/metrics", pattern)
	assert.NotNil(t, handler)
}
