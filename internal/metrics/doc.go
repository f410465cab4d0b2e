// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Primary channel state and reconnect attempts
//   - Health probe outcomes and feature module readiness
//   - Heartbeats sent, acknowledged and timed out
//   - Inbound and outbound frames by type
//   - Secondary channel dials, speech playback and journal writes
package metrics
