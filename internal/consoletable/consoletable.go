// Package consoletable renders simple text tables for the console.
package consoletable

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	defaultMargin      = 2
	defaultIndentation = 4
)

// Table is a text table with a title and a header row.
type Table struct {
	// Margin between columns
	Margin int
	// Indentation of the first column
	Indentation int

	headers []string
	rows    [][]any
	title   string
}

// New returns a new table.
func New(title string, headers ...string) *Table {
	t := &Table{
		Margin:      defaultMargin,
		Indentation: defaultIndentation,
		headers:     headers,
		rows:        make([][]any, 0),
		title:       title,
	}
	return t
}

// AddRow adds a row to table. It panics when the number of cells does not match the headers.
func (t *Table) AddRow(cells ...any) {
	if len(cells) != len(t.headers) {
		panic(fmt.Sprintf("Added rows need to have %d columns", len(t.headers)))
	}
	t.rows = append(t.rows, cells)
}

// Render writes the table to w.
// Numbers are right aligned, all other values left aligned.
func (t *Table) Render(w io.Writer) {
	fmt.Fprintf(w, "%s:\n\n", t.title)
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	rendered := make([][]string, len(t.rows))
	for r, row := range t.rows {
		rendered[r] = make([]string, len(row))
		for i, v := range row {
			s := renderCell(v)
			rendered[r][i] = s
			widths[i] = max(widths[i], len([]rune(s)))
		}
	}
	margin := strings.Repeat(" ", t.Margin)
	printRow := func(cells []string, rightAligned func(int) bool) {
		var b strings.Builder
		b.WriteString(strings.Repeat(" ", t.Indentation))
		for i, s := range cells {
			if rightAligned(i) {
				fmt.Fprintf(&b, "%*s%s", widths[i], s, margin)
			} else {
				fmt.Fprintf(&b, "%-*s%s", widths[i], s, margin)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
	left := func(int) bool { return false }
	printRow(t.headers, left)
	divider := make([]string, len(t.headers))
	for i := range divider {
		divider[i] = strings.Repeat("-", widths[i])
	}
	printRow(divider, left)
	for r, row := range t.rows {
		printRow(rendered[r], func(i int) bool {
			_, ok := row[i].(int)
			return ok
		})
	}
	if len(t.rows) == 0 {
		fmt.Fprintln(w, strings.Repeat(" ", t.Indentation)+"(none)")
	}
}

func renderCell(v any) string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return "-"
		}
		return x
	case int:
		return humanize.Comma(int64(x))
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return humanize.Time(x)
	case []string:
		return strings.Join(x, ", ")
	case bool:
		if x {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(v)
	}
}
