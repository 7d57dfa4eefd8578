// Package prometheus exposes goAuthClient engine metrics as a prometheus.Collector.
//
// [NewCollector] reads [goAuthClient.Engine.MetricsSnapshot] on each scrape. Counter names
// are goauthclient_*_total; the token request latency is the histogram
// goauthclient_token_fetch_latency_seconds, reported only when latency histograms are
// enabled.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry; callers register the Collector or mount
//     [Collector.Handler].
//   - Mutate engine state.
package prometheus
