package topics

import "github.com/arthur-debert/relocator/pkg/ui"

// Renderer formats topic content for display
type Renderer interface {
	// Render takes raw content and the file extension of the topic
	Render(content string, ext string) string
}

// PlainRenderer returns content as-is
type PlainRenderer struct{}

func (PlainRenderer) Render(content string, _ string) string {
	return content
}

// MarkdownRenderer styles .md topics with glamour and leaves other
// topics alone
type MarkdownRenderer struct {
	// Width wraps the output; zero keeps the glamour default
	Width int
}

func (r MarkdownRenderer) Render(content string, ext string) string {
	if ext != ".md" {
		return content
	}
	return ui.RenderMarkdown(content, r.Width)
}
