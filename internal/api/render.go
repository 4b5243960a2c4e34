package api

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dgallion1/clausecheck/internal/sheet"
)

var resultsMarkdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// renderResultsHTML renders the output table as a standalone HTML page.
func renderResultsHTML(title string, out *sheet.Output) ([]byte, error) {
	var md bytes.Buffer
	if err := sheet.WriteMarkdown(&md, out); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := resultsMarkdown.Convert(md.Bytes(), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n<h1>%s</h1>\n",
		html.EscapeString(title), html.EscapeString(title))
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	return page.Bytes(), nil
}
