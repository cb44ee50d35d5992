package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jmylchreest/waybarctl/internal/layout"
)

// Table formats rows into left-aligned columns. Cells in a column with a
// maximum width are word-wrapped onto extra lines. Widths are measured in
// terminal cells.
type Table struct {
	headers   []string
	rows      [][]string
	padding   int
	maxWidths map[int]int
}

// NewTable creates a table with the given headers.
func NewTable(headers []string) *Table {
	return &Table{headers: headers, padding: 2, maxWidths: map[int]int{}}
}

// SetColumnMaxWidth limits a column's width; 0 removes the limit.
func (t *Table) SetColumnMaxWidth(col, width int) {
	t.maxWidths[col] = width
}

// AddRow adds a row, padded or truncated to the header count.
func (t *Table) AddRow(row []string) {
	cells := make([]string, len(t.headers))
	copy(cells, row)
	t.rows = append(t.rows, cells)
}

// Render returns the table with a header, a dashed separator and the rows.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	wrapped := make([][][]string, len(t.rows))
	for r, row := range t.rows {
		wrapped[r] = make([][]string, len(row))
		for c, cell := range row {
			wrapped[r][c] = wrapText(cell, t.maxWidths[c])
		}
	}

	widths := make([]int, len(t.headers))
	for c, h := range t.headers {
		widths[c] = runewidth.StringWidth(h)
	}
	for _, row := range wrapped {
		for c, lines := range row {
			for _, line := range lines {
				widths[c] = max(widths[c], runewidth.StringWidth(line))
			}
		}
	}

	gap := strings.Repeat(" ", t.padding)
	var b strings.Builder
	writeLine := func(cells []string) {
		parts := make([]string, len(cells))
		for c, cell := range cells {
			parts[c] = padRight(cell, widths[c])
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, gap), " "))
		b.WriteByte('\n')
	}

	writeLine(t.headers)
	sep := make([]string, len(widths))
	for c, w := range widths {
		sep[c] = strings.Repeat("-", w)
	}
	writeLine(sep)

	for _, row := range wrapped {
		height := 1
		for _, lines := range row {
			height = max(height, len(lines))
		}
		for i := range height {
			cells := make([]string, len(row))
			for c, lines := range row {
				if i < len(lines) {
					cells[c] = lines[i]
				}
			}
			writeLine(cells)
		}
	}
	return b.String()
}

func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// wrapText breaks text at spaces into lines of at most width cells. Words
// wider than width are split. A width of 0 disables wrapping.
func wrapText(text string, width int) []string {
	if width <= 0 || runewidth.StringWidth(text) <= width {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	var lines []string
	line := ""
	for _, word := range words {
		for runewidth.StringWidth(word) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			head := splitWidth(word, width)
			lines = append(lines, head)
			word = word[len(head):]
		}
		switch {
		case line == "":
			line = word
		case runewidth.StringWidth(line)+1+runewidth.StringWidth(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// splitWidth returns the longest prefix of s that fits in width cells,
// never splitting a rune and never empty.
func splitWidth(s string, width int) string {
	w := 0
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > width && i > 0 {
			return s[:i]
		}
		w += rw
	}
	return s
}

// printLayouts writes the layout table, marking current with '*', followed
// by a count of saved backups. width is the terminal width, 0 if unknown.
func printLayouts(w io.Writer, listing *layout.Listing, current string, width int) error {
	t := NewTable([]string{"", "LAYOUT", "STYLE", "PATH"})
	for _, e := range listing.Layouts {
		mark := ""
		if e.Layout == current {
			mark = "*"
		}
		style := "-"
		if e.Style != "" {
			style = strings.TrimSuffix(filepath.Base(e.Style), ".css")
		}
		t.AddRow([]string{mark, e.Name, style, e.Layout})
	}
	if width > 0 {
		// Leave the fixed columns intact and wrap the path.
		fixed := 1
		for _, e := range listing.Layouts {
			fixed = max(fixed, runewidth.StringWidth(e.Name)+runewidth.StringWidth(filepath.Base(e.Style)))
		}
		if rest := width - fixed - 3*t.padding - 1; rest > 20 {
			t.SetColumnMaxWidth(3, rest)
		}
	}

	if _, err := io.WriteString(w, t.Render()); err != nil {
		return err
	}
	if n := len(listing.Backups); n > 0 {
		_, err := fmt.Fprintf(w, "\n%d backup(s) in %s\n", n, filepath.Dir(listing.Backups[0].Layout))
		return err
	}
	return nil
}
