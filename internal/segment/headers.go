package segment

import "strings"

// header is a structural header line located in the source text.
type header struct {
	title string
	start int // offset of the first byte of the header line
	end   int // offset just past the line's newline
}

// headerMarker reports whether s starts with a marker and returns the text
// after it. Markers are tried in order and the first match wins.
type headerMarker func(s string) (rest string, ok bool)

var headerMarkers = []headerMarker{ordinalMarker, headingMarker}

// byHeaders is the structured tier: each header's title owns the text up to
// the next header. Text before the first header is not attached to a section.
func byHeaders(text string) []Section {
	var sections []Section
	var title string
	cursor := 0
	for _, h := range scanHeaders(text) {
		if title != "" {
			sections = appendSection(sections, title, text[cursor:h.start])
		}
		title = h.title
		cursor = h.end
	}
	if title != "" {
		sections = appendSection(sections, title, text[cursor:])
	}
	return sections
}

// scanHeaders walks text line by line and returns every header in order.
func scanHeaders(text string) []header {
	var headers []header
	for pos := 0; pos < len(text); {
		line, next := text[pos:], len(text)
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line, next = line[:i], pos+i+1
		}
		if title, ok := matchHeader(line); ok {
			headers = append(headers, header{title: title, start: pos, end: next})
		}
		pos = next
	}
	return headers
}

// matchHeader classifies a single line. Leading indentation is ignored and
// the title must be non-empty once trimmed.
func matchHeader(line string) (string, bool) {
	s := strings.TrimLeft(line, " \t")
	for _, marker := range headerMarkers {
		rest, ok := marker(s)
		if !ok {
			continue
		}
		title := strings.TrimSpace(rest)
		return title, title != ""
	}
	return "", false
}

// ordinalMarker matches "12. ".
func ordinalMarker(s string) (string, bool) {
	n := leadingDigits(s)
	if n == 0 || n >= len(s) || s[n] != '.' {
		return "", false
	}
	return afterBlank(s[n+1:])
}

// headingMarker matches one to six '#' followed by a blank.
func headingMarker(s string) (string, bool) {
	n := 0
	for n < len(s) && s[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return "", false
	}
	return afterBlank(s[n:])
}

// afterBlank requires at least one space or tab and strips the run.
func afterBlank(s string) (string, bool) {
	rest := strings.TrimLeft(s, " \t")
	if len(rest) == len(s) {
		return "", false
	}
	return rest, true
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
