// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Palette colors, ANSI 256-color codes.
var (
	colorHeader = lipgloss.Color("255")
	colorFaint  = lipgloss.Color("245")
	colorGood   = lipgloss.Color("114")
	colorWarn   = lipgloss.Color("220")
	colorBad    = lipgloss.Color("196")
)

// Status classifies a value for coloring.
type Status int

const (
	StatusNormal Status = iota
	StatusGood
	StatusWarn
	StatusBad
)

// Output writes styled text. Styling is dropped when the destination
// is not a terminal, so piped output stays plain.
type Output struct {
	writer   io.Writer
	renderer *lipgloss.Renderer
}

// Stdout returns an Output for the process's standard output.
func Stdout() *Output {
	profile := termenv.Ascii
	if term.IsTerminal(int(os.Stdout.Fd())) {
		profile = termenv.ANSI256
	}
	return NewOutput(os.Stdout, profile)
}

// NewOutput returns an Output writing to w with a fixed color profile.
func NewOutput(w io.Writer, profile termenv.Profile) *Output {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	// ColorProfile re-detects from the environment unless it is set
	// explicitly.
	renderer.SetColorProfile(profile)
	return &Output{writer: w, renderer: renderer}
}

// Printf writes formatted, unstyled text.
func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.writer, format, args...)
}

// Heading writes a bold line.
func (o *Output) Heading(text string) {
	fmt.Fprintln(o.writer, o.renderer.NewStyle().Bold(true).Foreground(colorHeader).Render(text))
}

// Field writes an aligned "label  value" line.
func (o *Output) Field(label, value string) {
	o.StatusField(label, value, StatusNormal)
}

// StatusField writes a "label  value" line with value colored by status.
func (o *Output) StatusField(label, value string, status Status) {
	labelStyle := o.renderer.NewStyle().Foreground(colorFaint).Width(16)
	fmt.Fprintf(o.writer, "  %s%s\n", labelStyle.Render(label), o.style(status).Render(value))
}

func (o *Output) style(status Status) lipgloss.Style {
	style := o.renderer.NewStyle()
	switch status {
	case StatusGood:
		return style.Foreground(colorGood)
	case StatusWarn:
		return style.Foreground(colorWarn)
	case StatusBad:
		return style.Foreground(colorBad).Bold(true)
	default:
		return style
	}
}

// Table accumulates rows and renders them with right-aligned numeric
// columns. Cells may carry a Status for coloring.
type Table struct {
	headers []string
	rows    [][]Cell

	// MaxWidth truncates cells wider than this many columns. Zero
	// means no limit.
	MaxWidth int
}

// Cell is one table entry.
type Cell struct {
	Text   string
	Status Status
}

// NewTable returns a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// Row appends a row of plain cells.
func (t *Table) Row(cells ...string) {
	row := make([]Cell, len(cells))
	for index, text := range cells {
		row[index] = Cell{Text: text}
	}
	t.rows = append(t.rows, row)
}

// StyledRow appends a row of cells that may carry a status.
func (t *Table) StyledRow(cells ...Cell) {
	t.rows = append(t.rows, cells)
}

// Render writes the table to o. The first column is left-aligned and
// the rest right-aligned.
func (t *Table) Render(o *Output) {
	widths := make([]int, len(t.headers))
	for index, header := range t.headers {
		widths[index] = ansi.StringWidth(header)
	}
	for _, row := range t.rows {
		for index, cell := range row {
			if index >= len(widths) {
				break
			}
			widths[index] = max(widths[index], ansi.StringWidth(t.fit(cell.Text)))
		}
	}

	headerStyle := o.renderer.NewStyle().Bold(true).Foreground(colorHeader)
	headerCells := make([]Cell, len(t.headers))
	for index, header := range t.headers {
		headerCells[index] = Cell{Text: header}
	}
	fmt.Fprintln(o.writer, headerStyle.Render(t.line(o, headerCells, widths, false)))
	for _, row := range t.rows {
		fmt.Fprintln(o.writer, t.line(o, row, widths, true))
	}
}

func (t *Table) fit(text string) string {
	if t.MaxWidth > 0 && ansi.StringWidth(text) > t.MaxWidth {
		return ansi.Truncate(text, t.MaxWidth, "…")
	}
	return text
}

func (t *Table) line(o *Output, cells []Cell, widths []int, styled bool) string {
	separator := "  "
	parts := make([]string, len(widths))
	for index, width := range widths {
		var cell Cell
		if index < len(cells) {
			cell = cells[index]
		}
		text := t.fit(cell.Text)
		padding := strings.Repeat(" ", max(width-ansi.StringWidth(text), 0))
		if styled {
			text = o.style(cell.Status).Render(text)
		}
		if index == 0 {
			parts[index] = text + padding
		} else {
			parts[index] = padding + text
		}
	}
	return strings.TrimRight(strings.Join(parts, separator), " ")
}
