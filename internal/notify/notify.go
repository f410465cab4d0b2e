package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Kind classifies a message shown to the user.
type Kind int

const (
	KindUser Kind = iota
	KindAssistant
	KindSystem
	KindWarning
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	case KindSystem:
		return "system"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// IsNotice reports whether the kind is cleared by ClearNotices.
func (k Kind) IsNotice() bool {
	return k == KindSystem || k == KindWarning || k == KindError
}

// Presenter is the shell side of the client: whatever draws status text,
// chat messages and the send control.
type Presenter interface {
	// Status replaces the connection status line.
	Status(text string)

	// Show appends a message of the given kind.
	Show(kind Kind, text string)

	// ClearNotices removes previously shown system, warning and error messages.
	ClearNotices()

	// SetSendEnabled enables or disables the send control.
	SetSendEnabled(enabled bool)

	// Connected is called each time the primary channel opens.
	Connected()
}

// Notifier localizes client-generated text before handing it to a Presenter.
// Text that comes from the backend passes through ShowText untranslated.
type Notifier struct {
	presenter Presenter
	printer   *message.Printer
}

// New creates a Notifier printing in the given locale ("zh-Hans", "en", ...).
func New(p Presenter, locale string) *Notifier {
	return &Notifier{
		presenter: p,
		printer:   message.NewPrinter(MatchLocale(locale)),
	}
}

// MatchLocale maps a configured locale onto a supported catalog language.
func MatchLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	_, idx, _ := matcher.Match(tag)
	return supported[idx]
}

// Sprintf formats a catalog message in the notifier's locale.
func (n *Notifier) Sprintf(key string, args ...any) string {
	return n.printer.Sprintf(key, args...)
}

// Status sets the localized status line.
func (n *Notifier) Status(key string, args ...any) {
	n.presenter.Status(n.printer.Sprintf(key, args...))
}

// Show displays a localized message.
func (n *Notifier) Show(kind Kind, key string, args ...any) {
	n.presenter.Show(kind, n.printer.Sprintf(key, args...))
}

// ShowText displays text as-is.
func (n *Notifier) ShowText(kind Kind, text string) {
	n.presenter.Show(kind, text)
}

// ClearNotices clears system, warning and error messages.
func (n *Notifier) ClearNotices() {
	n.presenter.ClearNotices()
}

// SetSendEnabled toggles the send control.
func (n *Notifier) SetSendEnabled(enabled bool) {
	n.presenter.SetSendEnabled(enabled)
}

// Connected forwards the connected event.
func (n *Notifier) Connected() {
	n.presenter.Connected()
}
