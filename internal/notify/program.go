package notify

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SuccessTTL is how long a success toast stays on screen.
const SuccessTTL = 3 * time.Second

// Kind of toast.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

// ToastMsg asks a Toasts model to show a message.
type ToastMsg struct {
	Kind    Kind
	Message string
}

type toastExpiredMsg struct {
	id int
}

// Program forwards notifications to a running bubbletea program.
type Program struct {
	send func(tea.Msg)
}

// NewProgram returns a notifier that sends ToastMsg values to p.
func NewProgram(p *tea.Program) *Program {
	return &Program{send: p.Send}
}

// NewSender is NewProgram for any send function.
func NewSender(send func(tea.Msg)) *Program {
	return &Program{send: send}
}

func (p *Program) ShowSuccess(msg string) {
	p.send(ToastMsg{Kind: KindSuccess, Message: msg})
}

func (p *Program) ShowErrorConfirm(msg string) {
	p.send(ToastMsg{Kind: KindError, Message: msg})
}

type toast struct {
	id   int
	kind Kind
	text string
}

// Toasts is a bubbletea component that stacks toasts. Success toasts
// expire after ttl; error toasts stay until Dismiss.
type Toasts struct {
	mu     sync.Mutex
	items  []toast
	nextID int
	ttl    time.Duration
}

// NewToasts returns an empty stack.
func NewToasts() *Toasts {
	return &Toasts{ttl: SuccessTTL}
}

// Update handles ToastMsg and expiry ticks.
func (t *Toasts) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ToastMsg:
		t.mu.Lock()
		t.nextID++
		id := t.nextID
		t.items = append(t.items, toast{id: id, kind: msg.Kind, text: msg.Message})
		ttl := t.ttl
		t.mu.Unlock()
		if msg.Kind == KindError {
			return nil
		}
		return tea.Tick(ttl, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
	case toastExpiredMsg:
		t.remove(func(item toast) bool { return item.id == msg.id && item.kind != KindError })
	}
	return nil
}

// Blocking reports whether an error toast waits for acknowledgement.
func (t *Toasts) Blocking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, item := range t.items {
		if item.kind == KindError {
			return true
		}
	}
	return false
}

// Dismiss removes error toasts.
func (t *Toasts) Dismiss() {
	t.remove(func(item toast) bool { return item.kind == KindError })
}

// Len is the number of visible toasts.
func (t *Toasts) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

func (t *Toasts) remove(match func(toast) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.items[:0]
	for _, item := range t.items {
		if !match(item) {
			kept = append(kept, item)
		}
	}
	t.items = kept
}

// View renders the stack, newest last.
func (t *Toasts) View() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(t.items))
	for _, item := range t.items {
		if item.kind == KindError {
			lines = append(lines, lipgloss.JoinVertical(lipgloss.Left,
				errorBoxStyle.Render("✗ "+item.text),
				hintStyle.Render("Presiona cualquier tecla para continuar")))
			continue
		}
		lines = append(lines, successStyle.Render("✓ "+item.text))
	}
	return strings.Join(lines, "\n")
}
