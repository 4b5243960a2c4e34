package sheet

import (
	"fmt"
	"strings"
)

// FormatError indicates input that is not a readable spreadsheet.
type FormatError struct {
	Filename string
	Format   string
	Err      error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("read %s as %s: %v", e.Filename, e.Format, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// MissingColumnsError indicates configured column names absent from a table.
type MissingColumnsError struct {
	Table     string
	Missing   []string
	Available []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("table %q is missing column(s) %s (available: %s)",
		e.Table, quoteAll(e.Missing), quoteAll(e.Available))
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
