package sheet

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser reads the first <table> of an HTML document, which covers
// workbooks exported with "Save as Web Page".
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &FormatError{Filename: filename, Format: "html", Err: err}
	}

	tbl := findElement(doc, "table")
	if tbl == nil {
		return nil, &FormatError{Filename: filename, Format: "html", Err: fmt.Errorf("document contains no table")}
	}

	var records [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "table":
				if n != tbl {
					return // nested tables belong to a cell
				}
			case "tr":
				records = append(records, rowCells(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tbl)

	return fromRecords(filename, records), nil
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, textContent(c))
		}
	}
	return cells
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
