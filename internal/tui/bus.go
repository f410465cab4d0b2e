package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rickgao/eva-client/internal/notify"
)

type statusMsg string

type showMsg struct {
	kind notify.Kind
	text string
}

type clearNoticesMsg struct{}

type sendEnabledMsg bool

type connectedMsg struct{}

// Bus carries presenter calls into the bubbletea program.
type Bus struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

// NewBus creates a Bus with the given buffer size.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 256
	}
	return &Bus{
		ch:   make(chan tea.Msg, size),
		done: make(chan struct{}),
	}
}

// Close unblocks pending and future posts. Messages posted after Close are
// discarded.
func (b *Bus) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bus) post(msg tea.Msg) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.ch <- msg:
	case <-b.done:
	}
}

func (b *Bus) Status(text string) { b.post(statusMsg(text)) }
func (b *Bus) Show(kind notify.Kind, text string) { b.post(showMsg{kind: kind, text: text}) }
func (b *Bus) ClearNotices() { b.post(clearNoticesMsg{}) }
func (b *Bus) SetSendEnabled(enabled bool) { b.post(sendEnabledMsg(enabled)) }
func (b *Bus) Connected() { b.post(connectedMsg{}) }

func waitBusMsg(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
