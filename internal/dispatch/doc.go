// Package dispatch implements the message dispatcher.
//
// The Dispatcher:
//   - Decodes inbound frames and routes them to the user, the heartbeat and speech playback
//   - Encodes outbound chat messages with a fresh message id
//   - Drops untagged and unknown frames without any visible effect
package dispatch
