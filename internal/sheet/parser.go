package sheet

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// Parser converts raw spreadsheet bytes into a Table.
type Parser interface {
	Parse(r io.Reader, filename string) (*Table, error)
}

// SupportedExtensions lists input file extensions this service can load.
var SupportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".csv":  true,
	".docx": true,
	".html": true,
	".htm":  true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx", ".xlsm":
		return &XLSXParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	default:
		return nil, &FormatError{Filename: filename, Format: ext, Err: fmt.Errorf("unsupported file extension")}
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ExtensionList returns the supported extensions in sorted order.
func ExtensionList() []string {
	exts := make([]string, 0, len(SupportedExtensions))
	for ext := range SupportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load picks a parser by extension and reads r into a Table.
func Load(r io.Reader, filename string) (*Table, error) {
	p, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}

func tableName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// fromRecords splits the header off raw records.
func fromRecords(filename string, records [][]string) *Table {
	if len(records) == 0 {
		return &Table{Name: tableName(filename)}
	}
	return NewTable(tableName(filename), records[0], records[1:])
}
