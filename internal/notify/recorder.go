package notify

import "sync"

// Call is a single Presenter invocation captured by Recorder.
type Call struct {
	Method string // "status", "show", "clear", "send_enabled", "connected"
	Kind   Kind
	Text   string
	On     bool
}

// Recorder is an in-memory Presenter that records every call.
type Recorder struct {
	mu          sync.Mutex
	calls       []Call
	sendEnabled bool
}

func (r *Recorder) Status(text string) {
	r.add(Call{Method: "status", Text: text})
}

func (r *Recorder) Show(kind Kind, text string) {
	r.add(Call{Method: "show", Kind: kind, Text: text})
}

func (r *Recorder) ClearNotices() {
	r.add(Call{Method: "clear"})
}

func (r *Recorder) SetSendEnabled(enabled bool) {
	r.mu.Lock()
	r.sendEnabled = enabled
	r.mu.Unlock()
	r.add(Call{Method: "send_enabled", On: enabled})
}

func (r *Recorder) Connected() {
	r.add(Call{Method: "connected"})
}

func (r *Recorder) add(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of all recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Shown returns the texts shown with the given kind.
func (r *Recorder) Shown(kind Kind) []string {
	var out []string
	for _, c := range r.Calls() {
		if c.Method == "show" && c.Kind == kind {
			out = append(out, c.Text)
		}
	}
	return out
}

// Statuses returns every status text in order.
func (r *Recorder) Statuses() []string {
	var out []string
	for _, c := range r.Calls() {
		if c.Method == "status" {
			out = append(out, c.Text)
		}
	}
	return out
}

// Count returns how many calls used the given method.
func (r *Recorder) Count(method string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// SendEnabled reports the last value passed to SetSendEnabled.
func (r *Recorder) SendEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendEnabled
}

// Reset discards recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
