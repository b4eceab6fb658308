// Package metrics defines the Prometheus instruments exported by the effect box.
package metrics
