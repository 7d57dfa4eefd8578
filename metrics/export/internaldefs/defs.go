package internaldefs

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricLoginSuccess, Name: "goauthclient_login_success_total", Help: "Interactive logins that produced an access token."},
	{ID: goAuthClient.MetricLoginFailure, Name: "goauthclient_login_failure_total", Help: "Interactive logins that were rejected or got no token."},
	{ID: goAuthClient.MetricSilentLoginSuccess, Name: "goauthclient_silent_login_success_total", Help: "Silent logins that restored a session."},
	{ID: goAuthClient.MetricSilentLoginFailure, Name: "goauthclient_silent_login_failure_total", Help: "Silent logins that found no session."},
	{ID: goAuthClient.MetricTokenFetchSuccess, Name: "goauthclient_token_fetch_success_total", Help: "Access tokens committed to the session."},
	{ID: goAuthClient.MetricTokenFetchFailure, Name: "goauthclient_token_fetch_failure_total", Help: "Token requests that failed and cleared the session."},
	{ID: goAuthClient.MetricTokenFetchStale, Name: "goauthclient_token_fetch_stale_total", Help: "Token responses discarded because the session changed meanwhile."},
	{ID: goAuthClient.MetricRenewalScheduled, Name: "goauthclient_renewal_scheduled_total", Help: "Renewal tasks armed."},
	{ID: goAuthClient.MetricRenewalRetry, Name: "goauthclient_renewal_retry_total", Help: "Renewal retries after a failed token request."},
	{ID: goAuthClient.MetricSessionExpired, Name: "goauthclient_session_expired_total", Help: "Sessions cleared because renewal gave up."},
	{ID: goAuthClient.MetricLogout, Name: "goauthclient_logout_total", Help: "Logouts."},
	{ID: goAuthClient.MetricLogoutRemoteFailure, Name: "goauthclient_logout_remote_failure_total", Help: "Logouts whose service call failed."},
	{ID: goAuthClient.MetricAccountUpdate, Name: "goauthclient_account_update_total", Help: "Successful account service calls."},
	{ID: goAuthClient.MetricValidationRejected, Name: "goauthclient_validation_rejected_total", Help: "Account calls refused by form validation."},
	{ID: goAuthClient.MetricAccountDeleted, Name: "goauthclient_account_deleted_total", Help: "Deleted accounts."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricTokenFetchLatency, Name: "goauthclient_token_fetch_latency_seconds", Help: "Latency of access token requests."},
}

// AuditDroppedName is the counter of audit events lost to dispatcher backpressure.
const (
	AuditDroppedName = "goauthclient_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine keeps one more
// bucket for everything above the last bound.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters without native histograms.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed bucket array, padding missing buckets with zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals; the last entry is the
// sample count.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
