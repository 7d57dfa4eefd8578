package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot goAuthClient.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAuthClient.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                          { return f.dropped }

func TestCollectorCounters(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters: map[goAuthClient.MetricID]uint64{
				goAuthClient.MetricLoginSuccess: 7,
			},
		},
		dropped: 2,
	})

	expected := `
# HELP goauthclient_login_success_total Interactive logins that produced an access token.
# TYPE goauthclient_login_success_total counter
goauthclient_login_success_total 7
# HELP goauthclient_audit_dropped_total Audit events dropped due to dispatcher backpressure.
# TYPE goauthclient_audit_dropped_total counter
goauthclient_audit_dropped_total 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"goauthclient_login_success_total", "goauthclient_audit_dropped_total")
	require.NoError(t, err)
}

func TestCollectorHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters: map[goAuthClient.MetricID]uint64{},
			Histograms: map[goAuthClient.MetricID][]uint64{
				goAuthClient.MetricTokenFetchLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	expected := `
# HELP goauthclient_token_fetch_latency_seconds Latency of access token requests.
# TYPE goauthclient_token_fetch_latency_seconds histogram
goauthclient_token_fetch_latency_seconds_bucket{le="0.005"} 1
goauthclient_token_fetch_latency_seconds_bucket{le="0.01"} 3
goauthclient_token_fetch_latency_seconds_bucket{le="0.025"} 6
goauthclient_token_fetch_latency_seconds_bucket{le="0.05"} 10
goauthclient_token_fetch_latency_seconds_bucket{le="0.1"} 15
goauthclient_token_fetch_latency_seconds_bucket{le="0.25"} 21
goauthclient_token_fetch_latency_seconds_bucket{le="0.5"} 28
goauthclient_token_fetch_latency_seconds_bucket{le="+Inf"} 36
goauthclient_token_fetch_latency_seconds_sum 0
goauthclient_token_fetch_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "goauthclient_token_fetch_latency_seconds")
	require.NoError(t, err)
}

func TestCollectorSkipsDisabledHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: goAuthClient.MetricsSnapshot{}})
	assert.Equal(t, 0, testutil.CollectAndCount(c, "goauthclient_token_fetch_latency_seconds"))
}

func TestCollectorLints(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: goAuthClient.MetricsSnapshot{}})
	problems, err := testutil.CollectAndLint(c)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollectorFromSource(fakeSource{})))
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	cfg := goAuthClient.DefaultConfig()
	cfg.API.BaseURL = "http://127.0.0.1:1/api/v1"
	cfg.Metrics.Enabled = true
	engine, err := goAuthClient.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv := httptest.NewServer(NewCollector(engine).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "goauthclient_logout_total 0")
}
