// Package server implements the HTTP surface of the service: the messaging
// gateway webhook that drives conversation turns, the static route that
// serves locally published audio replies, and the monitoring endpoints.
package server
