// Package prometheus serves portal metrics in the Prometheus text exposition
// format without a client library or registry: every scrape reads one
// snapshot and writes it out.
//
// Counters are portal_*_total; the one histogram is
// portal_backend_latency_seconds. Mount [Exporter.Handler] wherever the
// scraper expects it.
package prometheus
