// Package notify shows the outcome of write operations to the user.
//
// Success messages never block. Error messages must be acknowledged: the
// terminal notifier waits for Enter and the interactive browser keeps the
// toast until a key is pressed.
package notify

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorBoxStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF6B6B")).
			Padding(0, 1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// ContinuePrompt is shown under an error that waits for acknowledgement.
const ContinuePrompt = "Presiona Enter para continuar"

// Terminal writes notifications to a stream, usually stderr.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	in      *bufio.Reader
	confirm bool
	quiet   bool
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithConfirm forces or disables waiting for Enter after an error.
func WithConfirm(confirm bool) TerminalOption {
	return func(t *Terminal) { t.confirm = confirm }
}

// WithQuiet suppresses success messages.
func WithQuiet(quiet bool) TerminalOption {
	return func(t *Terminal) { t.quiet = quiet }
}

// NewTerminal returns a notifier writing to out. Errors wait for Enter on
// in when both are terminals, unless WithConfirm says otherwise.
func NewTerminal(in io.Reader, out io.Writer, opts ...TerminalOption) *Terminal {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	t := &Terminal{
		out:     out,
		in:      bufio.NewReader(in),
		confirm: isTerminal(in) && isTerminal(out),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ShowSuccess prints a one-line confirmation.
func (t *Terminal) ShowSuccess(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quiet {
		return
	}
	fmt.Fprintln(t.out, successStyle.Render("✓ "+msg))
}

// ShowErrorConfirm prints the error in a box and, when interactive, waits
// for Enter.
func (t *Terminal) ShowErrorConfirm(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, errorBoxStyle.Render("✗ "+msg))
	if !t.confirm {
		return
	}
	fmt.Fprint(t.out, hintStyle.Render(ContinuePrompt+" "))
	_, _ = t.in.ReadString('\n')
}

func isTerminal(v any) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
