package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/pkg/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrNoDocuments is returned when the paper tree holds no usable markdown.
var ErrNoDocuments = errors.New("no markdown documents found")

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// Loader reads the markdown sources of the paper.
type Loader struct {
	Root       string
	Extension  string
	FileReader FileReader
}

// New creates a Loader for *.md files under root.
func New(root string) *Loader {
	return &Loader{Root: root, Extension: ".md", FileReader: &DefaultFileReader{}}
}

// Load walks Root recursively and returns one Document per non-empty file,
// ordered by relative path.
func (l *Loader) Load() ([]models.Document, error) {
	fi, err := os.Stat(l.Root)
	if err != nil {
		return nil, fmt.Errorf("paper path: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("paper path %s is not a directory", l.Root)
	}

	var paths []string
	err = godirwalk.Walk(l.Root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), l.Extension) {
				paths = append(paths, path)
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.Root, err)
	}

	rels := make(map[string]string, len(paths))
	for _, p := range paths {
		rels[p] = rel(l.Root, p)
	}
	sort.Slice(paths, func(i, j int) bool { return rels[paths[i]] < rels[paths[j]] })

	var docs []models.Document
	for _, p := range paths {
		b, err := l.FileReader.ReadFile(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to read file")
			continue
		}
		content := string(b)
		if strings.TrimSpace(content) == "" {
			log.Debug().Str("path", p).Msg("skipping empty file")
			continue
		}
		r := rels[p]
		docs = append(docs, models.Document{
			Content:  content,
			Source:   r,
			Filename: filepath.Base(p),
			Section:  section(r),
			Title:    Title(b),
		})
		log.Debug().Str("source", r).Msg("loaded document")
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, l.Root)
	}
	return docs, nil
}

// Title returns the text of the first heading of a markdown source.
func Title(source []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			title = strings.TrimSpace(string(h.Text(source)))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

// section is the name of the directory holding the file, "root" at the top.
func section(relPath string) string {
	dir := filepath.Dir(filepath.ToSlash(relPath))
	if dir == "." || dir == "/" {
		return "root"
	}
	return filepath.Base(dir)
}

func rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(r)
}
