// Package admin serves the client's local status endpoints: liveness of the
// primary channel, a state snapshot, build information and Prometheus metrics.
package admin
