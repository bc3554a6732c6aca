package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultName is the prompt used when none is requested.
const DefaultName = "system_prompt"

const groundingInstructions = "The following excerpts from the Smart Social Contracts paper are relevant to the user's question. " +
	"Use them to ground your response in the paper's specific arguments and terminology. " +
	"Cite the source sections when relevant."

// BuildRAG returns the system and user messages for a grounded query. An
// empty context leaves the base prompt untouched.
func BuildRAG(base, context, query string) (system, user string) {
	if context == "" {
		return base, query
	}
	return base + "\n\n## Grounding Context\n\n" + groundingInstructions + "\n\n" + context, query
}

// Load reads the prompt dir/name.md. If it does not exist the error lists
// the prompts that do.
func Load(dir, name string) (string, error) {
	if name == "" {
		name = DefaultName
	}
	name = strings.TrimSuffix(name, ".md")
	path := filepath.Join(dir, name+".md")

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			avail, _ := Available(dir)
			return "", fmt.Errorf("prompt not found: %s (available prompts: %s)", path, strings.Join(avail, ", "))
		}
		return "", fmt.Errorf("read prompt %s: %w", path, err)
	}
	return string(b), nil
}

// Available lists the prompt names in dir, sorted.
func Available(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".md"))
	}
	sort.Strings(names)
	return names, nil
}
