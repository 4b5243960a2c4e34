package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads the first worksheet of an Excel workbook.
type XLSXParser struct{}

func (p *XLSXParser) Parse(r io.Reader, filename string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &FormatError{Filename: filename, Format: "xlsx", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &FormatError{Filename: filename, Format: "xlsx", Err: fmt.Errorf("workbook has no sheets")}
	}

	name := sheets[0]
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, &FormatError{Filename: filename, Format: "xlsx", Err: fmt.Errorf("read sheet %q: %w", name, err)}
	}
	if len(rows) == 0 {
		return &Table{Name: tableName(filename)}, nil
	}

	records := make([][]Cell, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec := make([]Cell, len(row))
		for j, text := range row {
			cell, err := xlsxCell(f, name, j+1, i+2, text)
			if err != nil {
				return nil, &FormatError{Filename: filename, Format: "xlsx", Err: err}
			}
			rec[j] = cell
		}
		records = append(records, rec)
	}
	return newTableFromCells(tableName(filename), rows[0], records), nil
}

// xlsxCell types a cell by how the workbook stores it. Only cells stored
// as numbers become numeric; their raw value is used so display formats
// do not leak into the number.
func xlsxCell(f *excelize.File, sheetName string, col, row int, text string) (Cell, error) {
	if text == "" {
		return Cell{Kind: KindEmpty}, nil
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Cell{}, err
	}
	typ, err := f.GetCellType(sheetName, axis)
	if err != nil {
		return Cell{}, fmt.Errorf("cell %s: %w", axis, err)
	}
	if typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber {
		return NewCell(text), nil
	}
	raw, err := f.GetCellValue(sheetName, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return Cell{}, fmt.Errorf("cell %s: %w", axis, err)
	}
	cell := NewNumberCell(raw)
	if cell.Kind != KindNumber {
		return NewCell(text), nil
	}
	return cell, nil
}
