// Package segment splits generated travel-plan text into titled sections.
//
// Parsing runs in three tiers. Structured headers ("3. Dining", "## Lodging")
// are tried first; when none produce a section, a line heuristic looks for
// short unpunctuated title lines; when that also fails, the whole text is
// returned as a single section under DefaultTitle. Every function in this
// package is pure and safe for concurrent use.
package segment

import (
	"strconv"
	"strings"
)

// DefaultTitle labels the single section returned when no structure is found.
const DefaultTitle = "Travel Recommendations"

// Section is one titled chunk of a plan, in source order.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Strategy names the tier that produced a Result.
type Strategy string

const (
	StrategyNone     Strategy = "none"
	StrategyHeaders  Strategy = "headers"
	StrategyLines    Strategy = "lines"
	StrategyFallback Strategy = "fallback"
)

// Result is the outcome of Parse.
type Result struct {
	Strategy Strategy  `json:"strategy"`
	Sections []Section `json:"sections"`
}

// Segment returns the sections of text. The result is empty only when text
// is empty or whitespace.
func Segment(text string) []Section {
	return Parse(text).Sections
}

// Parse segments text and reports which tier matched.
func Parse(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Strategy: StrategyNone}
	}
	if sections := byHeaders(text); len(sections) > 0 {
		return Result{Strategy: StrategyHeaders, Sections: sections}
	}
	if sections := byLines(text); len(sections) > 0 {
		return Result{Strategy: StrategyLines, Sections: sections}
	}
	return Result{
		Strategy: StrategyFallback,
		Sections: []Section{{Title: DefaultTitle, Content: text}},
	}
}

// Format renders sections as numbered plain text. Parsing the output yields
// the same titles and contents.
func Format(sections []Section) string {
	var sb strings.Builder
	n := 0
	for _, s := range sections {
		title := strings.TrimSpace(s.Title)
		content := strings.TrimSpace(s.Content)
		if title == "" || content == "" {
			continue
		}
		n++
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strconv.Itoa(n))
		sb.WriteString(". ")
		sb.WriteString(title)
		sb.WriteString("\n")
		sb.WriteString(content)
	}
	return sb.String()
}

// appendSection adds a section unless its trimmed content is empty.
func appendSection(sections []Section, title, content string) []Section {
	content = strings.TrimSpace(content)
	if content == "" {
		return sections
	}
	return append(sections, Section{Title: title, Content: content})
}
