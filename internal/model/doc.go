// Package model defines the wire protocol spoken on the primary chat channel.
//
// Outbound frames:
//   - {"type":"message","message_id":...,"message":...,"api_choice":...,"need_speech":...,"voice_index":...}
//   - {"type":"heartbeat","ping":true}
//
// Inbound frames are tagged by "type": pong, error, response, system, warning.
// Frames without a string tag, or with an unrecognized one, decode to Unknown
// and are dropped by the dispatcher.
package model
