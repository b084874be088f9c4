// Package prometheus publishes goAuthClient counters through
// github.com/prometheus/client_golang.
//
// [NewCollector] returns a prometheus.Collector that reads a metrics snapshot on
// every scrape. Register it on a registry of your choice, or use [Handler] for a
// private registry served over HTTP. Counter names are prefixed goauthclient_ and
// end in _total; the single histogram is goauthclient_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register on the global Prometheus registry.
//   - Mutate session state.
package prometheus
