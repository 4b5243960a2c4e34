package sheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	docx "github.com/fumiama/go-docx"
	"github.com/xuri/excelize/v2"
)

const leaseCSV = `LOCATION,Critical Clause Type,Critical Clause Language
Store 12,Use,Tenant may operate a coffee cart
Store 12,Prohibited Use,No food service
,,
Store 40,Use,Retail apparel only
`

func TestCSVParser_LoadsRowsWithHeader(t *testing.T) {
	tbl, err := Load(strings.NewReader(leaseCSV), "leases.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Name != "leases" {
		t.Errorf("expected name %q, got %q", "leases", tbl.Name)
	}
	if len(tbl.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %v", tbl.Columns)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected blank row to be dropped, got %d rows", len(tbl.Rows))
	}
	if got := tbl.Rows[1].Text("Critical Clause Language"); got != "No food service" {
		t.Errorf("expected clause text, got %q", got)
	}
	if tbl.Rows[2].Index != 5 {
		t.Errorf("expected source row 5, got %d", tbl.Rows[2].Index)
	}
}

func TestNewTable_PadsShortRecords(t *testing.T) {
	tbl := NewTable("t", []string{"A", "B", "C"}, [][]string{{"1"}})
	if len(tbl.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(tbl.Rows))
	}
	c, ok := tbl.Rows[0].Get("C")
	if !ok {
		t.Fatal("expected padded column C")
	}
	if !c.IsEmpty() {
		t.Errorf("expected empty cell, got %+v", c)
	}
	a, _ := tbl.Rows[0].Get("A")
	if a.Kind != KindString || a.Value() != "1" {
		t.Errorf("expected text cell 1, got %+v", a)
	}
}

func TestNewTable_NamesBlankAndDuplicateHeaders(t *testing.T) {
	tbl := NewTable("t", []string{" Name ", "", "Name"}, nil)
	want := []string{"Name", "Column 2", "Name.1"}
	for i, w := range want {
		if tbl.Columns[i] != w {
			t.Errorf("column %d: expected %q, got %q", i, w, tbl.Columns[i])
		}
	}
}

func TestRequireColumns_ReportsAllMissing(t *testing.T) {
	tbl := NewTable("leases", []string{"LOCATION", "Clause"}, nil)
	err := tbl.RequireColumns("LOCATION", "Type", "Text", "Type")
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
	if len(missing.Missing) != 2 || missing.Missing[0] != "Type" || missing.Missing[1] != "Text" {
		t.Errorf("unexpected missing list: %v", missing.Missing)
	}
	if err := tbl.RequireColumns("LOCATION", ""); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestHTMLParser_FirstTable(t *testing.T) {
	doc := `<html><body><p>intro</p>
<table>
<tr><th>LOCATION</th><th>Clause</th></tr>
<tr><td>Store 1</td><td>Coffee <b>permitted</b></td></tr>
</table>
<table><tr><td>ignored</td></tr></table>
</body></html>`
	tbl, err := Load(strings.NewReader(doc), "export.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(tbl.Rows))
	}
	if got := tbl.Rows[0].Text("Clause"); got != "Coffee permitted" {
		t.Errorf("expected flattened cell text, got %q", got)
	}
}

func TestHTMLParser_NoTable(t *testing.T) {
	_, err := Load(strings.NewReader("<p>nothing</p>"), "x.html")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestXLSXParser_InvalidWorkbook(t *testing.T) {
	_, err := Load(strings.NewReader("definitely not a zip"), "broken.xlsx")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Format != "xlsx" {
		t.Errorf("expected format xlsx, got %q", fe.Format)
	}
}

func TestForFile_UnsupportedExtension(t *testing.T) {
	_, err := ForFile("notes.pdf")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if IsSupportedExtension("notes.pdf") {
		t.Error("pdf should not be supported")
	}
	if !IsSupportedExtension("LEASES.XLSX") {
		t.Error("extension check should be case-insensitive")
	}
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	out := NewOutput("Location Name", "Prohibited Use", "Use Clause")
	out.Append(OutputRow{
		{Name: "Location Name", Value: "Store 12"},
		{Name: "Prohibited Use", Value: "Not Prohibited"},
		{Name: "Use Clause", Value: "Allowed"},
	})
	out.Append(OutputRow{
		{Name: "Location Name", Value: float64(40)},
		{Name: "Prohibited Use", Value: "Not Found"},
		{Name: "Use Clause", Value: "Error"},
	})

	var buf bytes.Buffer
	if err := Write(&buf, out, FormatForFile(DefaultOutputName)); err != nil {
		t.Fatalf("write: %v", err)
	}

	tbl, err := Load(bytes.NewReader(buf.Bytes()), DefaultOutputName)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"Location Name", "Prohibited Use", "Use Clause"}
	for i, w := range want {
		if tbl.Columns[i] != w {
			t.Errorf("column %d: expected %q, got %q", i, w, tbl.Columns[i])
		}
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	loc, _ := tbl.Rows[1].Get("Location Name")
	if loc.Kind != KindNumber || loc.Number != 40 || loc.Text != "40" {
		t.Errorf("expected numeric location 40, got %+v", loc)
	}
	if got := tbl.Rows[1].Text("Use Clause"); got != "Error" {
		t.Errorf("expected Error label, got %q", got)
	}
}

func TestWriteCSV_ColumnOrderFollowsFirstRow(t *testing.T) {
	out := NewOutput("ignored")
	out.Append(OutputRow{{Name: "B", Value: "1"}, {Name: "A", Value: 2.5}})
	out.Append(OutputRow{{Name: "A", Value: "x"}, {Name: "B", Value: "y"}})

	var buf bytes.Buffer
	if err := Write(&buf, out, FormatCSV); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "B,A\n1,2.5\ny,x\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestWriteCSV_EmptyOutputKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, NewOutput("Location Name", "Coffee Allowed", "Summary")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "Location Name,Coffee Allowed,Summary\n" {
		t.Errorf("unexpected csv: %q", buf.String())
	}
}

func TestWriteMarkdown_EscapesCells(t *testing.T) {
	out := NewOutput("Location Name", "Summary")
	out.Append(OutputRow{
		{Name: "Location Name", Value: 12.0},
		{Name: "Summary", Value: "a|b\n<i>c</i>"},
	})
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, out); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	want := "| Location Name | Summary |\n| --- | --- |\n| 12 | a\\|b &lt;i>c&lt;/i> |\n"
	if buf.String() != want {
		t.Errorf("got %q\nwant %q", buf.String(), want)
	}
}

func TestNewNumberCell_KeepsNonCanonicalText(t *testing.T) {
	cases := map[string]CellKind{
		"40":                  KindNumber,
		"2.5":                 KindNumber,
		"00123":               KindString,
		"1234567890123456789": KindString,
		"NaN":                 KindString,
		"Inf":                 KindString,
		"1e3":                 KindString,
		"":                    KindEmpty,
	}
	for raw, want := range cases {
		if got := NewNumberCell(raw).Kind; got != want {
			t.Errorf("%q: expected kind %d, got %d", raw, want, got)
		}
	}
}

func TestXLSXParser_TypesCellsFromWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Store ID", "Count"},
		{"00123", 7},
		{"1234567890123456789", 2.5},
		{"NaN", int64(1234567890123456789)},
	}
	for i, row := range rows {
		axis, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", axis, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	tbl, err := Load(bytes.NewReader(buf.Bytes()), "stores.xlsx")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	for i, want := range []string{"00123", "1234567890123456789", "NaN"} {
		c, _ := tbl.Rows[i].Get("Store ID")
		if c.Kind != KindString || c.Value() != want {
			t.Errorf("row %d: expected text %q, got %+v", i, want, c)
		}
	}
	if c, _ := tbl.Rows[0].Get("Count"); c.Kind != KindNumber || c.Number != 7 {
		t.Errorf("expected numeric count 7, got %+v", c)
	}
	if c, _ := tbl.Rows[1].Get("Count"); c.Kind != KindNumber || c.Number != 2.5 {
		t.Errorf("expected numeric count 2.5, got %+v", c)
	}
	if c, _ := tbl.Rows[2].Get("Count"); c.Kind != KindString {
		t.Errorf("expected oversized integer kept as text, got %+v", c)
	}

	out := NewOutput("Store ID")
	for _, r := range tbl.Rows {
		c, _ := r.Get("Store ID")
		out.Append(OutputRow{{Name: "Store ID", Value: c.Value()}})
	}
	if _, err := json.Marshal(out.Records()); err != nil {
		t.Fatalf("records should encode as JSON: %v", err)
	}
}

func buildDOCX(t *testing.T, rows [][]string) []byte {
	t.Helper()
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("Lease abstract")
	if len(rows) > 0 {
		tbl := doc.AddTable(len(rows), len(rows[0]), 0, nil)
		for i, row := range rows {
			for j, text := range row {
				tbl.TableRows[i].TableCells[j].AddParagraph().AddText(text)
			}
		}
	}
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	return buf.Bytes()
}

func TestDOCXParser_FirstTable(t *testing.T) {
	data := buildDOCX(t, [][]string{
		{"LOCATION", "Critical Clause Type", "Critical Clause Language"},
		{"00123", "Use", "Tenant may operate a coffee cart"},
		{"", "", ""},
		{"Store 40", "Prohibited Use", "No food service"},
	})

	tbl, err := Load(bytes.NewReader(data), "abstract.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Name != "abstract" {
		t.Errorf("expected name %q, got %q", "abstract", tbl.Name)
	}
	want := []string{"LOCATION", "Critical Clause Type", "Critical Clause Language"}
	if len(tbl.Columns) != len(want) {
		t.Fatalf("expected columns %v, got %v", want, tbl.Columns)
	}
	for i, w := range want {
		if tbl.Columns[i] != w {
			t.Errorf("column %d: expected %q, got %q", i, w, tbl.Columns[i])
		}
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected blank row to be dropped, got %d rows", len(tbl.Rows))
	}
	loc, _ := tbl.Rows[0].Get("LOCATION")
	if loc.Kind != KindString || loc.Text != "00123" {
		t.Errorf("expected location kept as text, got %+v", loc)
	}
	if got := tbl.Rows[1].Text("Critical Clause Language"); got != "No food service" {
		t.Errorf("expected clause text, got %q", got)
	}
	if tbl.Rows[1].Index != 4 {
		t.Errorf("expected source row 4, got %d", tbl.Rows[1].Index)
	}
}

func TestDOCXParser_NoTable(t *testing.T) {
	_, err := Load(bytes.NewReader(buildDOCX(t, nil)), "memo.docx")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Format != "docx" || !strings.Contains(fe.Error(), "no table") {
		t.Errorf("unexpected error: %v", fe)
	}
}

func TestDOCXParser_InvalidDocument(t *testing.T) {
	_, err := Load(strings.NewReader("not a zip"), "broken.docx")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}
