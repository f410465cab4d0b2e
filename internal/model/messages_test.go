package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeOutbound_Chat(t *testing.T) {
	data, err := EncodeOutbound(Chat{
		ID:         "6f1c2a4e-0000-4000-8000-000000000001",
		Text:       "你好",
		APIChoice:  "deepseek",
		NeedSpeech: true,
		VoiceIndex: 0,
	})
	if err != nil {
		t.Fatalf("EncodeOutbound failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	want := map[string]any{
		"type":        "message",
		"message_id":  "6f1c2a4e-0000-4000-8000-000000000001",
		"message":     "你好",
		"api_choice":  "deepseek",
		"need_speech": true,
		"voice_index": float64(0),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if len(got) != len(want) {
		t.Errorf("frame has %d fields, want %d: %s", len(got), len(want), data)
	}
}

func TestEncodeOutbound_Heartbeat(t *testing.T) {
	data, err := EncodeOutbound(Heartbeat{})
	if err != nil {
		t.Fatalf("EncodeOutbound failed: %v", err)
	}
	if string(data) != `{"type":"heartbeat","ping":true}` {
		t.Errorf("heartbeat = %s, want %s", data, `{"type":"heartbeat","ping":true}`)
	}
}

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Inbound
	}{
		{"pong", `{"type":"pong"}`, Pong{}},
		{"error", `{"type":"error","message":"boom"}`, Error{Text: "boom"}},
		{"response", `{"type":"response","response":"hi"}`, Response{Text: "hi"}},
		{"response with speech", `{"type":"response","response":"hi","speech_url":"/media/a.wav"}`, Response{Text: "hi", SpeechURL: "/media/a.wav"}},
		{"system", `{"type":"system","message":"ready"}`, System{Text: "ready"}},
		{"warning", `{"type":"warning","message":"slow"}`, Warning{Text: "slow"}},
		{"empty object", `{}`, Unknown{}},
		{"empty tag", `{"type":""}`, Unknown{}},
		{"numeric tag", `{"type":7}`, Unknown{}},
		{"null", `null`, Unknown{}},
		{"array", `[1,2]`, Unknown{}},
		{"unknown tag", `{"type":"typing"}`, Unknown{Type: "typing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.data))
			if err != nil {
				t.Fatalf("DecodeInbound(%s) error: %v", tt.data, err)
			}
			if got != tt.want {
				t.Errorf("DecodeInbound(%s) = %#v, want %#v", tt.data, got, tt.want)
			}
		})
	}
}

func TestDecodeInbound_Invalid(t *testing.T) {
	for _, data := range []string{`not json`, `{"type":"response"`, ``} {
		_, err := DecodeInbound([]byte(data))
		if !errors.Is(err, ErrInvalidFrame) {
			t.Errorf("DecodeInbound(%q) error = %v, want ErrInvalidFrame", data, err)
		}
	}
}
