// Package metrics exposes Prometheus instrumentation for conversation turns,
// the audio pipeline, the speech services and the HTTP API.
package metrics
