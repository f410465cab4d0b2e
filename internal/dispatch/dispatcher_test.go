package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/eva-client/internal/notify"
)

// mockSender records frames and fails with err when set.
type mockSender struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (m *mockSender) Send(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.frames = append(m.frames, data)
	return nil
}

func (m *mockSender) sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.frames...)
}

type mockAcker struct {
	mu   sync.Mutex
	acks int
}

func (m *mockAcker) Ack(time.Time) {
	m.mu.Lock()
	m.acks++
	m.mu.Unlock()
}

type mockPlayer struct {
	mu    sync.Mutex
	paths []string
}

func (m *mockPlayer) Play(ctx context.Context, path string) error {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()
	return nil
}

func (m *mockPlayer) played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

type fixture struct {
	d      *Dispatcher
	rec    *notify.Recorder
	sender *mockSender
	acker  *mockAcker
	player *mockPlayer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rec:    &notify.Recorder{},
		sender: &mockSender{},
		acker:  &mockAcker{},
		player: &mockPlayer{},
	}
	cfg := Config{
		DefaultAPI: "deepseek",
		SpeechAPIs: []string{"deepseek"},
		VoiceIndex: 2,
	}
	f.d = New(cfg, f.sender, f.acker, f.player, notify.New(f.rec, "en"), nil, nil)
	return f
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DefaultAPI != "deepseek" {
		t.Errorf("DefaultAPI = %q, want deepseek", cfg.DefaultAPI)
	}
	if cfg.PlaybackQueue != 16 {
		t.Errorf("PlaybackQueue = %d, want 16", cfg.PlaybackQueue)
	}
}

func TestDispatcher_SendChat(t *testing.T) {
	f := newFixture(t)

	chat, err := f.d.SendChat(context.Background(), "  hello EVA  ", "")
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	frames := f.sender.sent()
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}

	var got map[string]any
	if err := json.Unmarshal(frames[0], &got); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	if got["type"] != "message" {
		t.Errorf("type = %v, want message", got["type"])
	}
	if got["message"] != "hello EVA" {
		t.Errorf("message = %v, want trimmed text", got["message"])
	}
	if got["message_id"] != chat.ID || chat.ID == "" {
		t.Errorf("message_id = %v, want %q", got["message_id"], chat.ID)
	}
	if got["api_choice"] != "deepseek" {
		t.Errorf("api_choice = %v, want deepseek", got["api_choice"])
	}
	if got["need_speech"] != true {
		t.Errorf("need_speech = %v, want true", got["need_speech"])
	}
	if got["voice_index"] != float64(2) {
		t.Errorf("voice_index = %v, want 2", got["voice_index"])
	}

	if shown := f.rec.Shown(notify.KindUser); len(shown) != 1 || shown[0] != "hello EVA" {
		t.Errorf("user messages = %q, want [hello EVA]", shown)
	}
}

func TestDispatcher_SendChatFreshIDs(t *testing.T) {
	f := newFixture(t)

	a, err := f.d.SendChat(context.Background(), "one", "deepseek")
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	b, err := f.d.SendChat(context.Background(), "two", "siliconflow")
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}

	if a.ID == b.ID {
		t.Errorf("message ids repeat: %q", a.ID)
	}
	if b.NeedSpeech {
		t.Error("NeedSpeech = true for an API without speech")
	}
	if b.APIChoice != "siliconflow" {
		t.Errorf("APIChoice = %q, want siliconflow", b.APIChoice)
	}
}

func TestDispatcher_SendChatEmpty(t *testing.T) {
	f := newFixture(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := f.d.SendChat(context.Background(), text, ""); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("SendChat(%q) error = %v, want ErrEmptyMessage", text, err)
		}
	}

	if n := len(f.sender.sent()); n != 0 {
		t.Errorf("frames = %d, want 0", n)
	}
	if n := len(f.rec.Calls()); n != 0 {
		t.Errorf("presenter calls = %d, want 0", n)
	}
}

func TestDispatcher_SendChatNotConnected(t *testing.T) {
	f := newFixture(t)
	f.sender.err = ErrNotConnected

	_, err := f.d.SendChat(context.Background(), "hello", "")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("error = %v, want ErrNotConnected", err)
	}

	if got := f.rec.Shown(notify.KindError); len(got) != 1 || got[0] != notify.MsgNotConnected {
		t.Errorf("errors = %q, want one %q", got, notify.MsgNotConnected)
	}
	if n := len(f.rec.Shown(notify.KindUser)); n != 0 {
		t.Errorf("user messages = %d, want 0", n)
	}
}

func TestDispatcher_SendChatWriteError(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("write: broken pipe")

	if _, err := f.d.SendChat(context.Background(), "hello", ""); err == nil {
		t.Fatal("expected an error")
	}
	if got := f.rec.Shown(notify.KindError); len(got) != 1 || got[0] != notify.MsgSendFailed {
		t.Errorf("errors = %q, want one %q", got, notify.MsgSendFailed)
	}
}

func TestDispatcher_HandleMessage(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  notify.Kind
		wantText  string
		wantCalls int
	}{
		{"error", `{"type":"error","message":"model overloaded"}`, notify.KindError, "model overloaded", 1},
		{"response", `{"type":"response","response":"hi there"}`, notify.KindAssistant, "hi there", 1},
		{"system", `{"type":"system","message":"memory saved"}`, notify.KindSystem, "memory saved", 1},
		{"warning", `{"type":"warning","message":"slow"}`, notify.KindWarning, "slow", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.d.HandleMessage([]byte(tt.raw))

			if n := len(f.rec.Calls()); n != tt.wantCalls {
				t.Errorf("presenter calls = %d, want %d", n, tt.wantCalls)
			}
			if got := f.rec.Shown(tt.wantKind); len(got) != 1 || got[0] != tt.wantText {
				t.Errorf("shown %v = %q, want [%q]", tt.wantKind, got, tt.wantText)
			}
		})
	}
}

func TestDispatcher_HandleMessageDropped(t *testing.T) {
	for _, raw := range []string{`{}`, `{"type":"memory_update"}`, `{"type":3}`, `[1,2]`, `"pong"`} {
		t.Run(raw, func(t *testing.T) {
			f := newFixture(t)
			f.d.HandleMessage([]byte(raw))

			if n := len(f.rec.Calls()); n != 0 {
				t.Errorf("presenter calls = %d, want 0", n)
			}
			if n := len(f.sender.sent()); n != 0 {
				t.Errorf("frames = %d, want 0", n)
			}
			if f.acker.acks != 0 {
				t.Errorf("acks = %d, want 0", f.acker.acks)
			}
		})
	}
}

func TestDispatcher_HandleMessageInvalid(t *testing.T) {
	f := newFixture(t)
	f.d.HandleMessage([]byte(`{"type":"response",`))

	if got := f.rec.Shown(notify.KindError); len(got) != 1 || got[0] != notify.MsgInvalidResponse {
		t.Errorf("errors = %q, want one %q", got, notify.MsgInvalidResponse)
	}
	if n := len(f.rec.Calls()); n != 1 {
		t.Errorf("presenter calls = %d, want 1", n)
	}
}

func TestDispatcher_Pong(t *testing.T) {
	f := newFixture(t)
	f.d.HandleMessage([]byte(`{"type":"pong"}`))

	if f.acker.acks != 1 {
		t.Errorf("acks = %d, want 1", f.acker.acks)
	}
	if n := len(f.rec.Calls()); n != 0 {
		t.Errorf("presenter calls = %d, want 0", n)
	}
}

func TestDispatcher_ResponseWithSpeech(t *testing.T) {
	f := newFixture(t)
	if err := f.d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer f.d.Stop(context.Background())

	f.d.HandleMessage([]byte(`{"type":"response","response":"hello","speech_url":"/a.wav"}`))

	if got := f.rec.Shown(notify.KindAssistant); len(got) != 1 || got[0] != "hello" {
		t.Errorf("assistant messages = %q, want [hello]", got)
	}

	deadline := time.Now().Add(time.Second)
	for len(f.player.played()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := f.player.played(); len(got) != 1 || got[0] != "/a.wav" {
		t.Errorf("played = %q, want [/a.wav]", got)
	}
}

func TestDispatcher_SpeechDisabled(t *testing.T) {
	rec := &notify.Recorder{}
	d := New(DefaultConfig(), &mockSender{}, nil, nil, notify.New(rec, "en"), nil, nil)

	d.HandleMessage([]byte(`{"type":"response","response":"hello","speech_url":"/a.wav"}`))
	d.HandleMessage([]byte(`{"type":"pong"}`))

	if got := rec.Shown(notify.KindAssistant); len(got) != 1 {
		t.Errorf("assistant messages = %q, want one", got)
	}
}
