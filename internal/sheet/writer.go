package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultOutputName is the file name offered for downloads and used by the CLI.
const DefaultOutputName = "output_summary.xlsx"

// XLSXContentType is the MIME type of a written workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Format is an output serialization.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatForFile picks the output format from a file name, defaulting to xlsx.
func FormatForFile(filename string) Format {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// Write serializes out in the given format.
func Write(w io.Writer, out *Output, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, out)
	case FormatXLSX, "":
		return WriteXLSX(w, out)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteXLSX writes out as a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, out *Output) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)
	records := out.Records()
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if cols := len(records[0]); cols > 0 {
		last, err := excelize.CoordinatesToCellName(cols, 1)
		if err != nil {
			return err
		}
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		if err := f.SetCellStyle(sheetName, "A1", last, style); err != nil {
			return fmt.Errorf("header style: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes out as comma separated values.
func WriteCSV(w io.Writer, out *Output) error {
	cw := csv.NewWriter(w)
	for _, rec := range out.Records() {
		line := make([]string, len(rec))
		for i, v := range rec {
			line[i] = formatValue(v)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case Cell:
		return x.Text
	default:
		return fmt.Sprint(x)
	}
}
