package pipeline

import "github.com/dgallion1/clausecheck/internal/sheet"

// Group is the rows sharing one key, in original order.
type Group struct {
	Key  sheet.Cell
	Rows []sheet.Row
}

// Partition groups rows by the text of column. Group order is the order of
// first occurrence. Rows with an empty key are returned separately.
func Partition(rows []sheet.Row, column string) (groups []*Group, unkeyed []sheet.Row) {
	index := make(map[string]*Group)
	for _, row := range rows {
		key, _ := row.Get(column)
		if key.IsEmpty() {
			unkeyed = append(unkeyed, row)
			continue
		}
		g, ok := index[key.Text]
		if !ok {
			g = &Group{Key: key}
			index[key.Text] = g
			groups = append(groups, g)
		}
		g.Rows = append(g.Rows, row)
	}
	return groups, unkeyed
}

// First returns the first row whose column equals value exactly, and how
// many rows matched in total.
func (g *Group) First(column, value string) (sheet.Row, int, bool) {
	var first sheet.Row
	matches := 0
	for _, row := range g.Rows {
		if row.Text(column) != value {
			continue
		}
		if matches == 0 {
			first = row
		}
		matches++
	}
	return first, matches, matches > 0
}
