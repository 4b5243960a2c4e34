package sheet

import (
	"io"
	"strings"
)

var markdownCellReplacer = strings.NewReplacer("|", `\|`, "<", "&lt;", "\r\n", " ", "\n", " ", "\r", " ")

// WriteMarkdown writes out as a GitHub-flavored markdown table.
func WriteMarkdown(w io.Writer, out *Output) error {
	var sb strings.Builder
	records := out.Records()
	for i, rec := range records {
		sb.WriteString("|")
		for _, v := range rec {
			sb.WriteString(" ")
			sb.WriteString(markdownCellReplacer.Replace(formatValue(v)))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
		if i == 0 {
			sb.WriteString("|")
			for range rec {
				sb.WriteString(" --- |")
			}
			sb.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
