package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/paperrag/internal/ai"
	"github.com/seanblong/paperrag/internal/loader"
	"github.com/seanblong/paperrag/pkg/models"
)

// OutputFile is the name of the JSONL file written to the output directory.
const OutputFile = "qa_pairs_generated.jsonl"

const (
	DefaultPairsPerSection = 3
	DefaultMaxTokens       = 4096
)

// Principles are the tags a generated pair may carry.
var Principles = []string{
	"entropy", "sentience", "syntropy", "love", "coordination", "transparency",
	"verifiability", "voluntarism", "economic_independence", "love_over_hate",
	"decentralization", "pluralism", "deployment", "power_analysis", "governance_design",
}

// Categories group generated pairs by theme.
var Categories = []string{
	"foundations", "smart_contracts", "realms_gos", "governance_design",
	"power_analysis", "love_ethic", "deployment",
}

var generationTemplate = template.Must(template.New("generation").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`You are generating training data for an AI governance assistant aligned with the Smart Social Contracts framework. The central discovery of this framework is that love—understood as decentralized coordination toward mutual flourishing—is the best way to survive and flourish in a universe governed by entropy.

Given the following excerpt from the Smart Social Contracts paper, generate {{.Pairs}} high-quality question-answer pairs that would help train an AI to understand and reason from these principles.

Requirements:
- Questions should be natural and varied (conceptual, practical, comparative, challenging)
- Answers should reason from first principles, not just repeat the text
- Answers should connect back to the central discovery (love as optimal coordination strategy)
- Include the relevant principle tags from: {{join .Principles ", "}}
- Format as JSON array of objects with keys: question, answer, principles, category

Categories: {{join .Categories ", "}}

Paper excerpt:
---
{{.Excerpt}}
---

Source file: {{.Source}}

Respond with ONLY a valid JSON array, no other text.`))

// Prompt renders the generation request for one excerpt.
func Prompt(pairs int, excerpt, source string) (string, error) {
	var b strings.Builder
	err := generationTemplate.Execute(&b, struct {
		Pairs      int
		Principles []string
		Categories []string
		Excerpt    string
		Source     string
	}{pairs, Principles, Categories, excerpt, source})
	return b.String(), err
}

// Generator turns paper sections into synthetic question/answer pairs.
type Generator struct {
	Completer       ai.Completer
	PairsPerSection int
	MaxTokens       int
}

// Stats summarizes a generation run.
type Stats struct {
	Sections int
	Failed   int
	Pairs    int
}

func New(c ai.Completer, pairsPerSection int) *Generator {
	if pairsPerSection <= 0 {
		pairsPerSection = DefaultPairsPerSection
	}
	return &Generator{Completer: c, PairsPerSection: pairsPerSection, MaxTokens: DefaultMaxTokens}
}

// Generate asks the model for pairs about the i-th section. Pairs without a
// question or answer are dropped; the rest are numbered in reply order.
func (g *Generator) Generate(ctx context.Context, i int, sec loader.Section) ([]models.QAPair, error) {
	p, err := Prompt(g.PairsPerSection, sec.Content, sec.Source)
	if err != nil {
		return nil, err
	}
	reply, err := g.Completer.Complete(ctx, "", []models.Message{{Role: models.RoleUser, Content: p}}, g.MaxTokens)
	if err != nil {
		return nil, err
	}
	parsed, err := ai.ParseJSON[[]models.QAPair](reply)
	if err != nil {
		return nil, err
	}

	out := make([]models.QAPair, 0, len(parsed))
	for _, qa := range parsed {
		if strings.TrimSpace(qa.Question) == "" || strings.TrimSpace(qa.Answer) == "" {
			log.Debug().Str("source", sec.Source).Msg("dropping incomplete pair")
			continue
		}
		qa.ID = fmt.Sprintf("gen_%03d_%03d", i, len(out))
		qa.Source = sec.Source
		out = append(out, qa)
	}
	return out, nil
}

// Run generates pairs for every section and writes them to w as JSON
// lines as soon as each section completes. A section whose request or reply
// fails contributes no pairs; the run goes on with the next one.
func (g *Generator) Run(ctx context.Context, sections []loader.Section, w io.Writer) (Stats, error) {
	var st Stats
	if g.Completer == nil {
		return st, errors.New("generator has no completer")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for i, sec := range sections {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Sections++
		log.Info().Int("section", i+1).Int("of", len(sections)).Str("source", sec.Source).Msg("processing section")

		pairs, err := g.Generate(ctx, i, sec)
		if err != nil {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			st.Failed++
			log.Warn().Err(err).Int("section", i).Str("source", sec.Source).Msg("section produced no pairs")
			continue
		}
		for _, qa := range pairs {
			if err := enc.Encode(qa); err != nil {
				return st, fmt.Errorf("write pair %s: %w", qa.ID, err)
			}
		}
		st.Pairs += len(pairs)
		log.Info().Int("pairs", len(pairs)).Str("source", sec.Source).Msg("generated pairs")
	}
	return st, nil
}
