package export

import (
	"fmt"
	"io"

	"github.com/fumiama/go-docx"
)

// Run sizes in half-points.
const (
	titleSize   = "36"
	sectionSize = "28"
)

// DOCX writes doc as a Word document. Section titles are numbered bold
// paragraphs, so an exported plan imports back into the same sections.
func DOCX(w io.Writer, doc Document) error {
	d := docx.New().WithDefaultTheme()

	if doc.Title != "" {
		d.AddParagraph().AddText(doc.Title).Bold().Size(titleSize)
	}
	if doc.Subtitle != "" {
		d.AddParagraph().AddText(doc.Subtitle).Italic()
	}
	if len(doc.Sections) == 0 {
		d.AddParagraph().AddText(EmptyMessage)
	}

	for i, s := range doc.Sections {
		d.AddParagraph().AddText(fmt.Sprintf("%d. %s", i+1, StripEmphasis(s.Title))).Bold().Size(sectionSize)
		for _, p := range Paragraphs(StripEmphasis(s.Content)) {
			d.AddParagraph().AddText(p)
		}
	}

	if _, err := d.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
