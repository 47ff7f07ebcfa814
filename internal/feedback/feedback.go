// Package feedback renders per-tap notifications on the host terminal.
package feedback

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// bell is the terminal bell, the console's stand-in for a vibration pulse.
const bell = "\a"

// Sink is the per-tap feedback contract shared with engine.Feedback.
type Sink interface {
	ShowPoint(x, y int, d time.Duration) error
	Vibrate(d time.Duration) error
}

// Console writes a styled marker line for each shown point and rings the
// terminal bell for each vibration.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	marker lipgloss.Style
	label  lipgloss.Style
	bell   bool
}

// ConsoleOption configures a Console.
type ConsoleOption func(*consoleConfig)

type consoleConfig struct {
	term io.Writer
}

// WithTerminal styles output for term's color capabilities. Use it when w
// wraps a terminal, e.g. behind a lock.
func WithTerminal(term io.Writer) ConsoleOption {
	return func(c *consoleConfig) {
		c.term = term
	}
}

// NewConsole creates a Console writing to w. Colors follow w's capabilities,
// so a plain buffer receives unstyled text. ringBell false mutes Vibrate.
func NewConsole(w io.Writer, ringBell bool, opts ...ConsoleOption) *Console {
	cfg := consoleConfig{term: w}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := lipgloss.NewRenderer(cfg.term)
	return &Console{
		w:      w,
		marker: r.NewStyle().Foreground(lipgloss.Color("99")).Bold(true),
		label:  r.NewStyle().Foreground(lipgloss.Color("243")),
		bell:   ringBell,
	}
}

// ShowPoint prints "◎ tap (x, y)" with the marker lifetime.
func (c *Console) ShowPoint(x, y int, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "%s tap (%d, %d) %s\n", c.marker.Render("◎"), x, y, c.label.Render(d.String()))
	return err
}

// Vibrate rings the terminal bell.
func (c *Console) Vibrate(time.Duration) error {
	if !c.bell {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, bell)
	return err
}

// Multi fans every call out to all sinks. Errors are joined; one failing or
// panicking sink does not prevent the others from being called. A panic is
// returned as an error.
type Multi []Sink

// ShowPoint implements Sink.
func (m Multi) ShowPoint(x, y int, d time.Duration) error {
	var errs []error
	for _, s := range m {
		if err := guard(func() error { return s.ShowPoint(x, y, d) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Vibrate implements Sink.
func (m Multi) Vibrate(d time.Duration) error {
	var errs []error
	for _, s := range m {
		if err := guard(func() error { return s.Vibrate(d) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("feedback sink panicked: %v", r)
		}
	}()
	return fn()
}
