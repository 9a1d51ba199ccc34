package segment

import (
	"strings"
	"unicode/utf8"
)

const (
	// maxTitleRunes is the exclusive upper bound on a title line's length.
	maxTitleRunes = 100
	bulletGlyph   = "•"
)

// byLines is the heuristic tier. A short line that does not end with a period
// starts a section, which then absorbs following lines until one looks like
// the next entry of a bulleted or numbered run.
//
// Only bulleted or numbered title lines end a section. A plain short line in
// the middle of a section is absorbed into that section's content.
func byLines(text string) []Section {
	lines := nonEmptyLines(text)
	var sections []Section
	for i := 0; i < len(lines); i++ {
		title := lines[i]
		if !isTitleLine(title) {
			continue
		}

		var buf strings.Builder
		j := i + 1
		for ; j < len(lines); j++ {
			if isBoundaryLine(lines[j]) {
				break
			}
			buf.WriteString(lines[j])
			buf.WriteString("\n")
		}
		sections = appendSection(sections, title, buf.String())

		// Resume on the boundary line so it is considered as the next title.
		i = j - 1
	}
	return sections
}

// nonEmptyLines returns the trimmed, non-blank lines of text in order.
func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func isTitleLine(line string) bool {
	n := utf8.RuneCountInString(line)
	return n > 0 && n < maxTitleRunes && !strings.HasSuffix(line, ".")
}

func isBoundaryLine(line string) bool {
	if !isTitleLine(line) {
		return false
	}
	if strings.HasPrefix(line, bulletGlyph) {
		return true
	}
	n := leadingDigits(line)
	return n > 0 && n < len(line) && line[n] == '.'
}
