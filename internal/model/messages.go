package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame type tags.
const (
	TypeMessage   = "message"
	TypeHeartbeat = "heartbeat"
	TypePong      = "pong"
	TypeError     = "error"
	TypeResponse  = "response"
	TypeSystem    = "system"
	TypeWarning   = "warning"
)

// ErrInvalidFrame is returned for inbound data that is not valid JSON.
var ErrInvalidFrame = errors.New("invalid frame")

// -----------------------------------------------------------------------------
// Outbound
// -----------------------------------------------------------------------------

// Outbound is a frame sent to the backend.
type Outbound interface {
	OutboundType() string
}

// Chat is a user chat request.
type Chat struct {
	ID         string // fresh UUID per message
	Text       string
	APIChoice  string
	NeedSpeech bool
	VoiceIndex int
}

// Heartbeat is the application-level keepalive ping.
type Heartbeat struct{}

func (Chat) OutboundType() string { return TypeMessage }
func (Heartbeat) OutboundType() string { return TypeHeartbeat }

type chatFrame struct {
	Type       string `json:"type"`
	MessageID  string `json:"message_id"`
	Message    string `json:"message"`
	APIChoice  string `json:"api_choice"`
	NeedSpeech bool   `json:"need_speech"`
	VoiceIndex int    `json:"voice_index"`
}

type heartbeatFrame struct {
	Type string `json:"type"`
	Ping bool   `json:"ping"`
}

// EncodeOutbound serializes an outbound frame to JSON.
func EncodeOutbound(m Outbound) ([]byte, error) {
	switch v := m.(type) {
	case Chat:
		return json.Marshal(chatFrame{
			Type:       TypeMessage,
			MessageID:  v.ID,
			Message:    v.Text,
			APIChoice:  v.APIChoice,
			NeedSpeech: v.NeedSpeech,
			VoiceIndex: v.VoiceIndex,
		})
	case *Chat:
		return EncodeOutbound(*v)
	case Heartbeat, *Heartbeat:
		return json.Marshal(heartbeatFrame{Type: TypeHeartbeat, Ping: true})
	default:
		return nil, fmt.Errorf("unsupported outbound type %T", m)
	}
}

// -----------------------------------------------------------------------------
// Inbound
// -----------------------------------------------------------------------------

// Inbound is a decoded frame from the backend.
type Inbound interface {
	InboundType() string
}

// Pong acknowledges a heartbeat.
type Pong struct{}

// Error is an application error reported by the backend.
type Error struct {
	Text string
}

// Response is an assistant reply, optionally with synthesized speech.
type Response struct {
	Text      string
	SpeechURL string // path relative to the backend base URL
}

// System is an informational notice.
type System struct {
	Text string
}

// Warning is a non-fatal warning.
type Warning struct {
	Text string
}

// Unknown is a frame with no string tag or an unrecognized one.
type Unknown struct {
	Type string // empty when the frame is untagged
}

func (Pong) InboundType() string { return TypePong }
func (Error) InboundType() string { return TypeError }
func (Response) InboundType() string { return TypeResponse }
func (System) InboundType() string { return TypeSystem }
func (Warning) InboundType() string { return TypeWarning }
func (u Unknown) InboundType() string { return u.Type }

// inboundFrame is the union of all inbound payload fields.
type inboundFrame struct {
	Message   string `json:"message"`
	Response  string `json:"response"`
	SpeechURL string `json:"speech_url"`
}

// DecodeInbound parses a raw inbound frame.
//
// Only malformed JSON is an error. Well-formed frames that are not objects,
// lack a string "type", or carry an unknown one decode to Unknown.
func DecodeInbound(data []byte) (Inbound, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidFrame
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Unknown{}, nil
	}

	var tag string
	if raw, ok := fields["type"]; !ok || json.Unmarshal(raw, &tag) != nil || tag == "" {
		return Unknown{}, nil
	}

	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s frame: %v", ErrInvalidFrame, tag, err)
	}

	switch tag {
	case TypePong:
		return Pong{}, nil
	case TypeError:
		return Error{Text: f.Message}, nil
	case TypeResponse:
		return Response{Text: f.Response, SpeechURL: f.SpeechURL}, nil
	case TypeSystem:
		return System{Text: f.Message}, nil
	case TypeWarning:
		return Warning{Text: f.Message}, nil
	default:
		return Unknown{Type: tag}, nil
	}
}
