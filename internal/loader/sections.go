package loader

import (
	"strings"

	"github.com/seanblong/paperrag/pkg/models"
)

const sectionMarker = "\n## "

// Section is an H2-delimited slice of a document used as a dataset
// generation excerpt.
type Section struct {
	Content string
	Source  string
	// Index is the position of the section within its document.
	Index int
}

// SectionOptions bounds the excerpts produced by Sections.
type SectionOptions struct {
	// MinChars drops sections whose trimmed length is not above it.
	MinChars int
	// MaxChars truncates section content; 0 disables truncation.
	MaxChars int
}

// DefaultSectionOptions matches the excerpt sizes the generation prompt is
// written for.
var DefaultSectionOptions = SectionOptions{MinChars: 200, MaxChars: 3000}

// Sections splits each document on level-two headings.
func Sections(docs []models.Document, opt SectionOptions) []Section {
	var out []Section
	for _, d := range docs {
		for i, part := range strings.Split(d.Content, sectionMarker) {
			if i > 0 {
				part = "## " + part
			}
			if len([]rune(strings.TrimSpace(part))) <= opt.MinChars {
				continue
			}
			out = append(out, Section{
				Content: truncate(part, opt.MaxChars),
				Source:  d.Source,
				Index:   i,
			})
		}
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
