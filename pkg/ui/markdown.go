package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer writes markdown, styled by glamour on a terminal
type markdownRenderer struct {
	output io.Writer
	styled bool
}

func newMarkdownRenderer(w io.Writer, styled bool) *markdownRenderer {
	return &markdownRenderer{output: w, styled: styled}
}

func (r *markdownRenderer) RenderResult(result interface{}) error {
	return r.write(DocumentMarkdown(BuildDocument(result)))
}

func (r *markdownRenderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	return r.write("> **Error:** " + escapeMarkdown(err.Error()) + "\n")
}

func (r *markdownRenderer) RenderMessage(msg string) error {
	return r.write(msg + "\n")
}

func (r *markdownRenderer) write(md string) error {
	if r.styled {
		md = RenderMarkdown(md, 0)
	}
	_, err := io.WriteString(r.output, md)
	return err
}

// RenderMarkdown styles markdown for the terminal. The input is returned
// unchanged when glamour cannot render it.
func RenderMarkdown(content string, width int) string {
	options := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		options = append(options, glamour.WithWordWrap(width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// DocumentMarkdown converts a document into GitHub-flavored markdown
func DocumentMarkdown(d Document) string {
	var b strings.Builder
	if d.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(d.Title))
	}
	if d.Status != "" && d.Kind != "message" {
		fmt.Fprintf(&b, "**Status:** %s\n\n", d.Status)
	}

	for _, f := range d.Fields {
		fmt.Fprintf(&b, "- **%s:** %s\n", f.Label, inlineCode(f.Value))
	}
	if len(d.Fields) > 0 {
		b.WriteString("\n")
	}

	for _, t := range d.Tables {
		if t.Title != "" {
			fmt.Fprintf(&b, "## %s\n\n", t.Title)
		}
		if len(t.Rows) == 0 {
			b.WriteString("_None_\n\n")
			continue
		}
		b.WriteString("| " + strings.Join(escapeCells(t.Header), " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(t.Header)) + "\n")
		for _, row := range t.Rows {
			b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
		}
		b.WriteString("\n")
	}

	for _, note := range d.Notes {
		if d.Kind == "message" {
			fmt.Fprintf(&b, "%s\n", note)
			continue
		}
		fmt.Fprintf(&b, "> %s\n", escapeMarkdown(note))
	}
	return b.String()
}

// inlineCode wraps paths and ids so backslashes survive rendering
func inlineCode(s string) string {
	if s == "" {
		return "-"
	}
	if strings.ContainsAny(s, `\/_*`) {
		return "`" + strings.ReplaceAll(s, "`", "'") + "`"
	}
	return s
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(escapeMarkdown(c), "|", `\|`)
	}
	return out
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
