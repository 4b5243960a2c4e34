package sheet

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser reads the first table of a Word document. Lease abstracts are
// often circulated as Word tables rather than workbooks.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &FormatError{Filename: filename, Format: "docx", Err: err}
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &FormatError{Filename: filename, Format: "docx", Err: err}
	}

	for _, item := range doc.Document.Body.Items {
		tbl, ok := item.(*docx.Table)
		if !ok {
			continue
		}
		return fromRecords(filename, docxTableRecords(tbl)), nil
	}
	return nil, &FormatError{Filename: filename, Format: "docx", Err: fmt.Errorf("document contains no table")}
}

func docxTableRecords(tbl *docx.Table) [][]string {
	records := make([][]string, 0, len(tbl.TableRows))
	for _, row := range tbl.TableRows {
		if row == nil {
			continue
		}
		rec := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			rec = append(rec, docxCellText(cell))
		}
		records = append(records, rec)
	}
	return records
}

func docxCellText(cell *docx.WTableCell) string {
	if cell == nil {
		return ""
	}
	parts := make([]string, 0, len(cell.Paragraphs))
	for _, para := range cell.Paragraphs {
		if t := docxParagraphText(para); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
