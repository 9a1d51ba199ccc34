package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/tripgenie/internal/doctree"
)

// CSVParser handles itinerary spreadsheets. Consecutive rows sharing a first
// column value (e.g. "Day 1") form one section; the other columns are
// rendered as "header: value" lines.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	if len(records) == 0 {
		return tree, nil
	}

	headers := records[0]
	var current *doctree.DocNode
	for _, row := range records[1:] {
		if len(row) == 0 {
			continue
		}
		if key := strings.TrimSpace(row[0]); key != "" && (current == nil || current.Title != key) {
			current = &doctree.DocNode{Title: key}
			tree.Children = append(tree.Children, current)
		} else if current == nil {
			current = &doctree.DocNode{}
			tree.Children = append(tree.Children, current)
		}

		line := rowText(headers, row[1:])
		if line == "" {
			continue
		}
		if current.Text != "" {
			current.Text += "\n"
		}
		current.Text += line
	}

	return tree, nil
}

// rowText renders cells as "header: value" pairs, skipping empty cells.
// headers still includes the grouping column, so cell i maps to headers[i+1].
func rowText(headers, cells []string) string {
	var parts []string
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if i+1 < len(headers) && strings.TrimSpace(headers[i+1]) != "" {
			parts = append(parts, strings.TrimSpace(headers[i+1])+": "+cell)
		} else {
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, ", ")
}
