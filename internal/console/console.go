// Package console prints the user-facing progress lines of the command line
// tool. Styling is applied only when the output is a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Printer writes progress lines. It is safe for concurrent use; each call
// writes whole lines.
type Printer struct {
	out    io.Writer
	styled bool
	mutex  sync.Mutex
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, styled bool) *Printer {
	return &Printer{out: out, styled: styled}
}

// Stdout returns a printer for standard output, styled when it is a terminal.
func Stdout() *Printer {
	return NewPrinter(os.Stdout, IsStdoutTerminal())
}

func (p *Printer) apply(style lipgloss.Style, text string) string {
	if p.styled {
		return style.Render(text)
	}
	return text
}

func (p *Printer) println(line string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	fmt.Fprintln(p.out, line)
}

// Emitted reports a written declaration file.
func (p *Printer) Emitted(path string) {
	p.println(p.apply(Success, "Emitted: ") + p.apply(FilePath, path))
}

// Removed reports a deleted declaration file.
func (p *Printer) Removed(path string) {
	p.println(p.apply(Removed, "Removed: ") + p.apply(FilePath, path))
}

// Error reports the errors that prevented path from being written.
func (p *Printer) Error(path string, errs []string) {
	p.println(FormatError(path, errs, p.styled))
}

// Info prints an informational line.
func (p *Printer) Info(message string) {
	p.println(p.apply(Info, "ℹ ") + message)
}

// Warning prints a warning line.
func (p *Printer) Warning(message string) {
	p.println(p.apply(Warning, "⚠ ") + message)
}

// Print writes text as is.
func (p *Printer) Print(text string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	fmt.Fprint(p.out, text)
}

// FormatError renders an error header for path followed by each error
// indented on its own line.
func FormatError(path string, errs []string, styled bool) string {
	var sb strings.Builder
	header, location := "Error: ", path
	if styled {
		header, location = Error.Render(header), FilePath.Render(location)
	}
	sb.WriteString(header + location)
	for _, e := range errs {
		for _, line := range strings.Split(e, "\n") {
			sb.WriteString("\n  ")
			if styled {
				line = Detail.Render(line)
			}
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// TableConfig represents configuration for table rendering
type TableConfig struct {
	Headers []string
	Rows    [][]string
	Title   string
}

// RenderTable renders a formatted table using lipgloss/table package
func (p *Printer) RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 {
		return ""
	}

	var output strings.Builder
	if config.Title != "" {
		output.WriteString(p.apply(Info, config.Title))
		output.WriteString("\n")
	}

	styleFunc := func(row, col int) lipgloss.Style {
		if !p.styled {
			return lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
		}
		if row == table.HeaderRow {
			return TableHeader.PaddingLeft(1).PaddingRight(1)
		}
		return lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
	}

	t := table.New().
		Headers(config.Headers...).
		Rows(config.Rows...).
		Border(lipgloss.RoundedBorder()).
		StyleFunc(styleFunc)
	if p.styled {
		t = t.BorderStyle(TableBorder)
	}

	output.WriteString(t.String())
	output.WriteString("\n")
	return output.String()
}
