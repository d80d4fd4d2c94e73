package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/relocator/pkg/errors"
)

// terminalRenderer renders documents with pterm tables and lipgloss styles
type terminalRenderer struct {
	output io.Writer
}

func newTerminalRenderer(w io.Writer) *terminalRenderer {
	return &terminalRenderer{output: w}
}

func (r *terminalRenderer) RenderResult(result interface{}) error {
	out, err := renderTerminal(BuildDocument(result))
	if err != nil {
		return err
	}
	_, err = io.WriteString(r.output, out)
	return err
}

func (r *terminalRenderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	_, werr := fmt.Fprintln(r.output, ErrorBanner(err))
	return werr
}

func (r *terminalRenderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintf(r.output, "%s %s\n", pterm.Info.Prefix.Text, msg)
	return err
}

func renderTerminal(doc Document) (string, error) {
	var b strings.Builder

	if doc.Title != "" {
		fmt.Fprintf(&b, "%s %s\n", StatusStyle(doc.Status).Sprint(statusLabel(doc.Status)), TitleStyle.Render(doc.Title))
	}
	writeFields(&b, doc.Fields, func(s string) string { return LabelStyle.Render(s) })

	for _, t := range doc.Tables {
		b.WriteString("\n")
		if t.Title != "" {
			b.WriteString(TitleStyle.Render(t.Title) + "\n")
		}
		if len(t.Rows) == 0 {
			b.WriteString(LabelStyle.Render("  (none)") + "\n")
			continue
		}
		data := pterm.TableData{t.Header}
		data = append(data, t.Rows...)
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return "", err
		}
		b.WriteString(table + "\n")
	}

	for _, note := range doc.Notes {
		if doc.Kind == "message" {
			fmt.Fprintf(&b, "%s %s\n", pterm.Info.Prefix.Text, note)
			continue
		}
		b.WriteString(NoteStyle.Render(note) + "\n")
	}
	return b.String(), nil
}

// ErrorBanner frames an error with its code and details
func ErrorBanner(err error) string {
	code := errors.GetErrorCode(err)

	var lines []string
	lines = append(lines, ErrorCodeStyle.Render(string(code)))
	lines = append(lines, err.Error())

	details := errors.GetErrorDetails(err)
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, LabelStyle.Render(k+":")+" "+fmt.Sprint(details[k]))
	}

	return ErrorBannerStyle.Render(strings.Join(lines, "\n"))
}
