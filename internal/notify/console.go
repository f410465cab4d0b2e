package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Console is a line-oriented Presenter for headless use.
type Console struct {
	mu          sync.Mutex
	w           io.Writer
	now         func() time.Time
	status      string
	sendEnabled bool
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, now: time.Now}
}

func (c *Console) Status(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == c.status {
		return
	}
	c.status = text
	fmt.Fprintf(c.w, "%s * %s\n", c.now().Format("15:04:05"), text)
}

func (c *Console) Show(kind Kind, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s [%s] %s\n", c.now().Format("15:04:05"), kind, text)
}

// ClearNotices is a no-op: printed lines cannot be taken back.
func (c *Console) ClearNotices() {}

func (c *Console) SetSendEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendEnabled = enabled
}

func (c *Console) Connected() {}

// SendEnabled reports the last value passed to SetSendEnabled.
func (c *Console) SendEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendEnabled
}
