package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/seanblong/paperrag/pkg/models"
)

// DefaultSeparators are tried in order, coarsest first. The empty
// separator means "cut anywhere".
var DefaultSeparators = []string{"\n## ", "\n### ", "\n#### ", "\n\n", "\n", " ", ""}

// chunkNamespace seeds the deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("paperrag/chunk"))

// Splitter splits text recursively on a list of separators, merging the
// pieces back into chunks of at most Size characters that overlap by up to
// Overlap characters.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
}

// New returns a Splitter using DefaultSeparators.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	seps := make([]string, len(DefaultSeparators))
	copy(seps, DefaultSeparators)
	return &Splitter{Size: size, Overlap: overlap, Separators: seps}, nil
}

// Split returns the ordered chunks of text.
func (s *Splitter) Split(text string) []string {
	if len(s.Separators) == 0 {
		return s.merge([]string{text})
	}
	return s.split(text, s.Separators)
}

// SplitDocument chunks a document and tags every chunk with its position.
func (s *Splitter) SplitDocument(doc models.Document) []models.Chunk {
	texts := s.Split(doc.Content)
	out := make([]models.Chunk, 0, len(texts))
	for i, t := range texts {
		out = append(out, models.Chunk{
			ID:       ChunkID(doc.Source, i, len(texts), t),
			Text:     t,
			Source:   doc.Source,
			Filename: doc.Filename,
			Section:  doc.Section,
			Title:    doc.Title,
			Index:    i,
			Total:    len(texts),
		})
	}
	return out
}

// ChunkID derives a stable UUIDv5 for a chunk so re-ingesting the same
// corpus overwrites entries instead of duplicating them.
func ChunkID(source string, index, total int, text string) string {
	key := source + "#" + strconv.Itoa(index) + "/" + strconv.Itoa(total) + "\x00" + text
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if length(piece) < s.Size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			// indivisible with the separators left
			if t := strings.TrimSpace(piece); t != "" {
				final = append(final, t)
			}
			continue
		}
		final = append(final, s.split(piece, rest)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge greedily packs pieces into chunks of at most Size characters. When
// a chunk is emitted, pieces are dropped from its front until at most
// Overlap characters remain; those carry into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := length(p)
		if total+n > s.Size {
			if len(current) > 0 {
				if doc := join(current); doc != "" {
					docs = append(docs, doc)
				}
				for total > s.Overlap || (total+n > s.Size && total > 0) {
					total -= length(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := join(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator splits text on sep, keeping sep at the start of
// every piece after the first. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var raw []string
	if sep == "" {
		raw = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			raw = append(raw, string(r))
		}
	} else {
		parts := strings.Split(text, sep)
		raw = make([]string, 0, len(parts))
		raw = append(raw, parts[0])
		for _, p := range parts[1:] {
			raw = append(raw, sep+p)
		}
	}
	out := raw[:0]
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func length(s string) int { return utf8.RuneCountInString(s) }
