package sheet

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CellKind distinguishes the value types a spreadsheet cell can hold.
type CellKind int

const (
	KindEmpty CellKind = iota
	KindString
	KindNumber
)

// Cell is a single spreadsheet value. Text always holds the displayed form.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// NewCell returns an empty or string cell. Text is never coerced to a
// number: identifiers such as "00123" must survive a round trip.
func NewCell(raw string) Cell {
	if strings.TrimSpace(raw) == "" {
		return Cell{Kind: KindEmpty}
	}
	return Cell{Kind: KindString, Text: raw}
}

// NewNumberCell is for values the source itself types as numeric. The cell
// stays a string unless the text is a finite number whose shortest decimal
// form equals the text, so nothing is lost when it is written back.
func NewNumberCell(raw string) Cell {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Cell{Kind: KindEmpty}
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return NewCell(raw)
	}
	if strconv.FormatFloat(n, 'f', -1, 64) != text {
		return NewCell(raw)
	}
	return Cell{Kind: KindNumber, Text: text, Number: n}
}

func (c Cell) String() string { return c.Text }

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == KindEmpty }

// Value returns the cell as a value suitable for writing back out.
func (c Cell) Value() any {
	switch c.Kind {
	case KindNumber:
		return c.Number
	case KindEmpty:
		return ""
	default:
		return c.Text
	}
}

// Row is one spreadsheet record keyed by header name.
type Row struct {
	Index int // 1-based source row number, header is row 1
	cells map[string]Cell
}

// Get returns the cell for a column and whether the column exists.
func (r Row) Get(column string) (Cell, bool) {
	c, ok := r.cells[column]
	return c, ok
}

// Text returns the text of a column, or "" when absent.
func (r Row) Text(column string) string {
	return r.cells[column].Text
}

// Table is an ordered sequence of rows sharing one header.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewTable builds a table from a header and raw records. Every value is
// kept as text; see NewCell. Short records are padded with empty cells;
// records with no values are dropped.
func NewTable(name string, header []string, records [][]string) *Table {
	rows := make([][]Cell, len(records))
	for i, rec := range records {
		rows[i] = make([]Cell, len(rec))
		for j, raw := range rec {
			rows[i][j] = NewCell(raw)
		}
	}
	return newTableFromCells(name, header, rows)
}

func newTableFromCells(name string, header []string, records [][]Cell) *Table {
	t := &Table{Name: name, Columns: normalizeHeader(header)}
	for i, rec := range records {
		cells := make(map[string]Cell, len(t.Columns))
		hasData := false
		for j, col := range t.Columns {
			cell := Cell{Kind: KindEmpty}
			if j < len(rec) {
				cell = rec[j]
			}
			if !cell.IsEmpty() {
				hasData = true
			}
			cells[col] = cell
		}
		if !hasData {
			continue
		}
		t.Rows = append(t.Rows, Row{Index: i + 2, cells: cells})
	}
	return t
}

// HasColumn reports whether the header contains column.
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// RequireColumns checks that every referenced column exists in the header.
// All missing columns are reported in one error.
func (t *Table) RequireColumns(columns ...string) error {
	var missing []string
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Table: t.Name, Missing: missing, Available: t.Columns}
	}
	return nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}
