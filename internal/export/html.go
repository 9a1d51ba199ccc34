package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var sanitizer = bluemonday.UGCPolicy()

// HTML renders doc as a standalone page. Model output is untrusted, so the
// converted body is sanitized before it is wrapped.
func HTML(doc Document) (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(doc)), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	title := doc.Title
	if title == "" {
		title = "Travel Plan"
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(title))
	out.WriteString("</head>\n<body>\n")
	out.Write(sanitizer.SanitizeBytes(body.Bytes()))
	out.WriteString("</body>\n</html>\n")
	return out.String(), nil
}
