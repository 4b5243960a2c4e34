package sheet

// Field is one named value of an output row.
type Field struct {
	Name  string
	Value any
}

// OutputRow is an ordered set of fields produced for one row or group.
type OutputRow []Field

// Get returns the value of the named field.
func (r OutputRow) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in order.
func (r OutputRow) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Output is the result table. Header is only used while Rows is empty;
// otherwise the first row decides the column order.
type Output struct {
	Header []string
	Rows   []OutputRow
}

// NewOutput returns an empty output table with a fallback header.
func NewOutput(header ...string) *Output {
	return &Output{Header: header}
}

// Append adds a finished row. Rows are never modified afterwards.
func (o *Output) Append(row OutputRow) {
	o.Rows = append(o.Rows, row)
}

// Columns returns the column order for serialization.
func (o *Output) Columns() []string {
	if len(o.Rows) > 0 {
		return o.Rows[0].Names()
	}
	return o.Header
}

// Records flattens the table into a header line followed by row values,
// aligned to Columns.
func (o *Output) Records() [][]any {
	cols := o.Columns()
	records := make([][]any, 0, len(o.Rows)+1)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	records = append(records, header)
	for _, row := range o.Rows {
		rec := make([]any, len(cols))
		for i, c := range cols {
			if v, ok := row.Get(c); ok {
				rec[i] = v
			} else {
				rec[i] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}
