// Package connection implements the backend WebSocket channels.
//
// The Manager:
//   - Owns the single primary chat channel and its state machine
//   - Probes the backend before every connection attempt
//   - Retries with exponential backoff up to a fixed budget, then gives up
//   - Runs the heartbeat while open and forwards frames to a handler
//
// The SecondaryChannel keeps the memory channel connected on its own,
// with a fixed retry delay and no probe.
package connection
