package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/tripgenie/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Top-level ATX and
// setext headings become nodes; the source between headings is kept verbatim
// so lists and emphasis survive into the plan text.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	b := doctree.NewBuilder()
	pos := 0
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		start, end := headingSpan(h, src)
		b.Text(string(src[pos:start]))
		b.Heading(h.Level, headingTitle(h, src))
		pos = end
	}
	b.Text(string(src[pos:]))

	return b.Tree(baseTitle(filename)), nil
}

// headingSpan returns the byte range of the heading's source lines,
// including a setext underline.
func headingSpan(h *ast.Heading, src []byte) (start, end int) {
	lines := h.Lines()
	start = lineStart(src, lines.At(0).Start)

	last := lines.At(lines.Len() - 1).Stop
	if last > 0 && src[last-1] == '\n' {
		last--
	}
	end = lineEnd(src, last)
	if !isATX(src[start:]) {
		end = lineEnd(src, end)
	}
	return start, end
}

func headingTitle(h *ast.Heading, src []byte) string {
	var parts []string
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if t := strings.TrimSpace(string(seg.Value(src))); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func isATX(line []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("#"))
}

func lineStart(src []byte, off int) int {
	return bytes.LastIndexByte(src[:off], '\n') + 1
}

// lineEnd returns the offset just past the newline ending the line at off.
func lineEnd(src []byte, off int) int {
	if off >= len(src) {
		return len(src)
	}
	i := bytes.IndexByte(src[off:], '\n')
	if i < 0 {
		return len(src)
	}
	return off + i + 1
}
