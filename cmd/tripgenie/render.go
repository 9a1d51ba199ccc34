package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/tripgenie/internal/export"
	"github.com/dgallion1/tripgenie/internal/segment"
)

// result is one segmented document.
type result struct {
	Title    string            `json:"title,omitempty"`
	Subtitle string            `json:"subtitle,omitempty"`
	Strategy segment.Strategy  `json:"strategy"`
	Sections []segment.Section `json:"sections"`
}

func newResult(title, subtitle, text string) result {
	r := segment.Parse(text)
	sections := r.Sections
	if sections == nil {
		sections = []segment.Section{}
	}
	return result{Title: title, Subtitle: subtitle, Strategy: r.Strategy, Sections: sections}
}

// render writes results in format. JSON emits a single object for one result
// and an array otherwise; DOCX accepts exactly one result.
func render(w io.Writer, format string, results []result) error {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	if f == export.FormatDOCX && len(results) != 1 {
		return fmt.Errorf("docx output takes exactly one document, got %d", len(results))
	}
	for i, r := range results {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		doc := export.Document{Title: r.Title, Subtitle: r.Subtitle, Sections: r.Sections}
		if err := export.Write(w, doc, f); err != nil {
			return err
		}
	}
	return nil
}
