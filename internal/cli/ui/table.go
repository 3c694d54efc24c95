package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders rows of aligned columns under a colored header line.
// Color output honors the package-global color.NoColor flag, which the
// root command sets from --no-color.
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		writer:  w,
		headers: headers,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows added so far
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := t.columnWidths()

	headerColor := color.New(color.Bold, color.FgCyan)
	for i, header := range t.headers {
		if i == len(t.headers)-1 {
			headerColor.Fprint(t.writer, header)
		} else {
			headerColor.Fprint(t.writer, padRight(header, widths[i]))
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	separatorColor := color.New(color.FgHiBlack)
	for i, width := range widths {
		separatorColor.Fprint(t.writer, strings.Repeat("─", width))
		if i < len(widths)-1 {
			separatorColor.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			// The last column stays unpadded so lines carry no trailing spaces.
			if i == len(row)-1 {
				fmt.Fprint(t.writer, cell)
			} else {
				fmt.Fprint(t.writer, padRight(cell, widths[i]))
				fmt.Fprint(t.writer, "  ")
			}
		}
		fmt.Fprintln(t.writer)
	}
}

// columnWidths returns the widest content per column, headers included
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

// KeyValue renders aligned key-value pairs, one per line
type KeyValue struct {
	writer io.Writer
	rows   [][2]string
}

// NewKeyValue creates a key-value block
func NewKeyValue(w io.Writer) *KeyValue {
	return &KeyValue{writer: w}
}

// AddRow adds a key-value pair
func (kv *KeyValue) AddRow(key, value string) {
	kv.rows = append(kv.rows, [2]string{key, value})
}

// Render writes the key-value block to the writer
func (kv *KeyValue) Render() {
	if len(kv.rows) == 0 {
		return
	}

	maxKeyWidth := 0
	for _, row := range kv.rows {
		if len(row[0]) > maxKeyWidth {
			maxKeyWidth = len(row[0])
		}
	}

	keyColor := color.New(color.FgCyan)
	for _, row := range kv.rows {
		keyColor.Fprint(kv.writer, padRight(row[0]+":", maxKeyWidth+1))
		fmt.Fprintf(kv.writer, " %s\n", row[1])
	}
}

// Section renders a titled block with indented content lines
type Section struct {
	writer io.Writer
	title  string
	lines  []string
}

// NewSection creates a section with the given title
func NewSection(w io.Writer, title string) *Section {
	return &Section{writer: w, title: title}
}

// AddLine adds a content line to the section
func (s *Section) AddLine(format string, args ...interface{}) {
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

// Render writes the section followed by a blank line
func (s *Section) Render() {
	titleColor := color.New(color.Bold, color.FgCyan)
	titleColor.Fprintln(s.writer, s.title)

	for _, line := range s.lines {
		fmt.Fprintf(s.writer, "  %s\n", line)
	}

	fmt.Fprintln(s.writer)
}

// Header writes a title underlined to its own width
func Header(w io.Writer, title string) {
	titleColor := color.New(color.Bold, color.FgCyan)
	titleColor.Fprintln(w, title)

	separatorColor := color.New(color.FgHiBlack)
	separatorColor.Fprintln(w, strings.Repeat("─", len(title)))
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
