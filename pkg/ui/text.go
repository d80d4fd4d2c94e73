package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// textRenderer prints documents without any styling
type textRenderer struct {
	output io.Writer
}

func newTextRenderer(w io.Writer) *textRenderer {
	return &textRenderer{output: w}
}

func (r *textRenderer) RenderResult(result interface{}) error {
	_, err := io.WriteString(r.output, renderText(BuildDocument(result)))
	return err
}

func (r *textRenderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	_, werr := fmt.Fprintf(r.output, "Error: %s\n", err.Error())
	return werr
}

func (r *textRenderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.output, msg)
	return err
}

func renderText(doc Document) string {
	var b strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&b, "%s\n", doc.Title)
	}
	writeFields(&b, doc.Fields, func(s string) string { return s })
	for _, t := range doc.Tables {
		b.WriteString("\n")
		if t.Title != "" {
			fmt.Fprintf(&b, "%s:\n", t.Title)
		}
		if len(t.Rows) == 0 {
			b.WriteString("  (none)\n")
			continue
		}
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "  %s\n", strings.Join(t.Header, "\t"))
		for _, row := range t.Rows {
			fmt.Fprintf(tw, "  %s\n", strings.Join(row, "\t"))
		}
		_ = tw.Flush()
	}
	for _, note := range doc.Notes {
		fmt.Fprintf(&b, "%s\n", note)
	}
	return b.String()
}

// writeFields aligns labels so values start in one column
func writeFields(b *strings.Builder, fields []Field, label func(string) string) {
	width := 0
	for _, f := range fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}
	for _, f := range fields {
		pad := strings.Repeat(" ", width-len(f.Label))
		fmt.Fprintf(b, "  %s:%s %s\n", label(f.Label), pad, f.Value)
	}
}
