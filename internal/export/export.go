// Package export renders segmented plans for sharing and download.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/tripgenie/internal/segment"
)

// EmptyMessage is shown in place of sections when a plan has none.
const EmptyMessage = "No recommendations available"

// Document is a titled plan ready for rendering.
type Document struct {
	Title    string
	Subtitle string
	Sections []segment.Section
}

// Format names an export encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
)

// ParseFormat accepts a format name or common alias. Empty means markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "html", "htm":
		return FormatHTML, nil
	case "docx", "word":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("unsupported export format: %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "text/markdown; charset=utf-8"
}

func (f Format) Extension() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatHTML:
		return ".html"
	case FormatDOCX:
		return ".docx"
	}
	return ".md"
}

// Write renders doc to w in format f.
func Write(w io.Writer, doc Document, f Format) error {
	var s string
	switch f {
	case FormatDOCX:
		return DOCX(w, doc)
	case FormatHTML:
		out, err := HTML(doc)
		if err != nil {
			return err
		}
		s = out
	case FormatText:
		s = Text(doc)
	default:
		s = Markdown(doc)
	}
	_, err := io.WriteString(w, s)
	return err
}

// StripEmphasis removes "**" bold markers left in model output.
func StripEmphasis(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

// Paragraphs splits section content into its non-blank lines, trimmed.
func Paragraphs(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Markdown renders doc with "#" title and "##" section headings.
func Markdown(doc Document) string {
	var sb strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	}
	if doc.Subtitle != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", doc.Subtitle)
	}
	if len(doc.Sections) == 0 {
		sb.WriteString(EmptyMessage + "\n")
		return sb.String()
	}
	for _, s := range doc.Sections {
		fmt.Fprintf(&sb, "## %s\n\n", s.Title)
		for _, p := range Paragraphs(s.Content) {
			sb.WriteString(p + "\n\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// Text renders doc as share text: title, subtitle, then the numbered
// sections, which segment back into the same titles.
func Text(doc Document) string {
	var head []string
	if doc.Title != "" {
		head = append(head, doc.Title)
	}
	if doc.Subtitle != "" {
		head = append(head, doc.Subtitle)
	}

	sections := make([]segment.Section, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		sections = append(sections, segment.Section{
			Title:   StripEmphasis(s.Title),
			Content: strings.Join(Paragraphs(StripEmphasis(s.Content)), "\n"),
		})
	}
	body := segment.Format(sections)
	if body == "" {
		body = EmptyMessage
	}

	if len(head) == 0 {
		return body + "\n"
	}
	return strings.Join(head, "\n") + "\n\n" + body + "\n"
}
