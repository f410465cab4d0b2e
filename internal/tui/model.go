package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rickgao/eva-client/internal/model"
	"github.com/rickgao/eva-client/internal/notify"
)

// Chatter submits chat messages. *dispatch.Dispatcher implements it.
type Chatter interface {
	SendChat(ctx context.Context, text, apiChoice string) (model.Chat, error)
}

// Config configures the shell.
type Config struct {
	Title       string
	APIChoices  []string
	DefaultAPI  string
	SendTimeout time.Duration
}

type line struct {
	kind notify.Kind
	text string
}

type sentMsg struct {
	text string
	err  error
}

// Model is the bubbletea model of the shell.
type Model struct {
	cfg     Config
	bus     <-chan tea.Msg
	chatter Chatter

	ready     chan struct{}
	readyOnce *sync.Once

	apiIndex    int
	lines       []line
	status      string
	sendEnabled bool
	connected   bool
	sending     bool

	width  int
	height int

	input    textinput.Model
	timeline viewport.Model
	theme    theme
}

// New creates the shell model. Presenter calls posted to bus are drawn once
// the program runs.
func New(cfg Config, bus *Bus, chatter Chatter) Model {
	if cfg.Title == "" {
		cfg.Title = "EVA"
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Focus()

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true

	m := Model{
		cfg:       cfg,
		bus:       bus.ch,
		chatter:   chatter,
		ready:     make(chan struct{}),
		readyOnce: &sync.Once{},
		input:     input,
		timeline:  timeline,
		theme:     newTheme(),
	}
	for i, api := range cfg.APIChoices {
		if api == cfg.DefaultAPI {
			m.apiIndex = i
		}
	}
	return m
}

// Ready is closed when the shell has drawn its first frame.
func (m Model) Ready() <-chan struct{} {
	return m.ready
}

// APIChoice returns the selected LLM provider.
func (m Model) APIChoice() string {
	if len(m.cfg.APIChoices) == 0 {
		return m.cfg.DefaultAPI
	}
	return m.cfg.APIChoices[m.apiIndex]
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitBusMsg(m.bus))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.render()
		m.readyOnce.Do(func() { close(m.ready) })

	case statusMsg:
		m.status = string(msg)
		cmds = append(cmds, waitBusMsg(m.bus))
	case showMsg:
		m.lines = append(m.lines, line{kind: msg.kind, text: msg.text})
		m.render()
		cmds = append(cmds, waitBusMsg(m.bus))
	case clearNoticesMsg:
		kept := m.lines[:0]
		for _, l := range m.lines {
			if !l.kind.IsNotice() {
				kept = append(kept, l)
			}
		}
		m.lines = kept
		m.render()
		cmds = append(cmds, waitBusMsg(m.bus))
	case sendEnabledMsg:
		m.sendEnabled = bool(msg)
		if !m.sendEnabled {
			m.connected = false
		}
		cmds = append(cmds, waitBusMsg(m.bus))
	case connectedMsg:
		m.connected = true
		cmds = append(cmds, waitBusMsg(m.bus))

	case sentMsg:
		m.sending = false
		if msg.err == nil && m.input.Value() == msg.text {
			m.input.Reset()
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if n := len(m.cfg.APIChoices); n > 0 {
				m.apiIndex = (m.apiIndex + 1) % n
			}
			return m, nil
		case "enter":
			return m, m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submit returns the command that sends the input line, or nil when sends
// are disabled or a send is already in flight.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if !m.sendEnabled || m.sending || strings.TrimSpace(text) == "" {
		return nil
	}
	m.sending = true

	chatter := m.chatter
	api := m.APIChoice()
	timeout := m.cfg.SendTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := chatter.SendChat(ctx, text, api)
		return sentMsg{text: text, err: err}
	}
}

func (m *Model) resize() {
	// header, input panel (3 with border), status line
	h := m.height - 5
	if h < 1 {
		h = 1
	}
	m.timeline.Width = m.width
	m.timeline.Height = h
	m.input.Width = m.width - 6
}

func (m *Model) render() {
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		label := m.theme.kinds[l.kind].Render(l.kind.String() + ":")
		b.WriteString(lipgloss.NewStyle().Width(m.width).Render(label + " " + l.text))
	}
	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.timeline.View(),
		m.renderInput(),
		m.renderStatus(),
	)
}

func (m Model) renderHeader() string {
	parts := []string{m.theme.header.Render(m.cfg.Title)}
	for i, api := range m.cfg.APIChoices {
		if i == m.apiIndex {
			parts = append(parts, m.theme.apiActive.Render("["+api+"]"))
		} else {
			parts = append(parts, m.theme.apiInactive.Render(api))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) renderInput() string {
	style := m.theme.inputPanel
	if !m.sendEnabled {
		style = m.theme.inputLocked
	}
	return style.Width(max(m.width-2, 10)).Render(m.input.View())
}

func (m Model) renderStatus() string {
	style := m.theme.status
	if m.connected {
		style = m.theme.statusOpen
	}
	help := m.theme.help.Render("tab: switch model · enter: send · esc: quit")
	return fmt.Sprintf("%s  %s", style.Render(m.status), help)
}

// Run runs the program until the user quits or ctx is cancelled.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
