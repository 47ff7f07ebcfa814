package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Palette: muted, dark-terminal friendly.
var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

// styles renders for one writer. Color follows the writer's capabilities,
// so buffers and pipes receive plain text.
type styles struct {
	r       *lipgloss.Renderer
	accent  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	return &styles{
		r:       r,
		accent:  r.NewStyle().Foreground(purple),
		success: r.NewStyle().Foreground(green),
		failure: r.NewStyle().Foreground(red),
		warn:    r.NewStyle().Foreground(yellow),
		muted:   r.NewStyle().Foreground(dim),
	}
}

// Message helpers return single-line strings without a trailing newline.

func (s *styles) SuccessMsg(format string, a ...any) string {
	return s.success.Render("✓") + " " + fmt.Sprintf(format, a...)
}

func (s *styles) WarnMsg(format string, a ...any) string {
	return s.warn.Render("!") + " " + fmt.Sprintf(format, a...)
}

func (s *styles) ErrorMsg(format string, a ...any) string {
	return s.failure.Render("✗") + " " + fmt.Sprintf(format, a...)
}

func (s *styles) InfoMsg(format string, a ...any) string {
	return s.accent.Render("●") + " " + fmt.Sprintf(format, a...)
}

func (s *styles) Muted(str string) string { return s.muted.Render(str) }

// pair holds a key-value pair for KeyValues output.
type pair struct {
	key   string
	value string
}

func kv(key, value string) pair {
	return pair{key: key, value: value}
}

// KeyValues renders aligned "key:  value" lines with a trailing newline.
func (s *styles) KeyValues(indent string, pairs ...pair) string {
	maxLen := 0
	for _, p := range pairs {
		if len(p.key) > maxLen {
			maxLen = len(p.key)
		}
	}

	var sb strings.Builder
	for _, p := range pairs {
		label := fmt.Sprintf("%-*s", maxLen+1, p.key+":")
		sb.WriteString(indent + s.muted.Render(label) + " " + p.value + "\n")
	}
	return sb.String()
}

// Table renders a table with rounded borders and zebra rows.
func (s *styles) Table(headers []string, rows [][]string) string {
	headerStyle := s.r.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
	cellStyle := s.r.NewStyle().Padding(0, 1)
	oddStyle := cellStyle.Foreground(dim)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.r.NewStyle().Foreground(faint)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 0:
				return cellStyle
			default:
				return oddStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}
