// Package server implements the optional HTTP monitoring endpoints: health,
// engine and detector statistics, the effective configuration and Prometheus
// metrics. All endpoints are read-only.
package server
