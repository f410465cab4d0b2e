// Package heartbeat keeps the primary channel alive.
//
// The Monitor:
//   - Sends an application-level heartbeat frame every interval while the target is open
//   - Records the time of the last pong from the backend
//   - Reports a stale channel once when no pong arrives within the stale timeout
package heartbeat
