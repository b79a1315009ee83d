package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/model"
)

// Extractor is an LLM-prompted entity extractor. buildEntities checks
// every entity kind against the closed EntityKind set with
// model.ValidEntityKind, dropping and counting unrecognized kinds, and
// drops names rejected by isValidEntityName.
type Extractor struct {
	llm   *LLMService
	stats *ExtractionStats
}

// ExtractionStats accumulates per-ingest counters surfaced on the
// ingest job's reliability summary.
type ExtractionStats struct {
	UnknownKindsDropped   int
	JSONParseFailures     int
	SectionCallsAttempted int
	SectionCallsFailed    int
}

// NewExtractor builds an Extractor over a shared LLMService and a fresh
// stats accumulator.
func NewExtractor(llm *LLMService) *Extractor {
	return &Extractor{llm: llm, stats: &ExtractionStats{}}
}

// Stats returns the accumulator so callers (the ingest pipeline) can fold
// it into the job's reliability summary.
func (e *Extractor) Stats() *ExtractionStats { return e.stats }

// extractedItem is one LLM-extracted mention: a name plus the supporting
// context the extractor asks for alongside it, so downstream resolution
// (homonym disambiguation, evidence display) has something to read besides
// a bare string.
type extractedItem struct {
	Name       string  `json:"name"`
	Definition string  `json:"definition"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
}

type abstractExtraction struct {
	Concepts []extractedItem `json:"concepts"`
	Methods  []extractedItem `json:"methods"`
	Findings []extractedItem `json:"findings"`
}

// ExtractAbstractOnly issues one LLM call over title+abstract, capped at
// 10 concepts / 5 methods / 5 findings.
func (e *Extractor) ExtractAbstractOnly(ctx context.Context, paper *model.Paper) ([]*model.Entity, error) {
	user := "Title: " + paper.Title + "\nAbstract: " + paper.Abstract

	raw, err := e.llm.MustGenerate(ctx, abstractExtractionSystemPrompt, user, true)
	if err != nil {
		return nil, err
	}

	var parsed abstractExtraction
	if err := ParseJSON(raw, &parsed); err != nil {
		e.stats.JSONParseFailures++
		return nil, err
	}

	var entities []*model.Entity
	entities = append(entities, e.buildEntities(paper.ProjectID, model.KindConcept, capItems(parsed.Concepts, 10), model.SectionAbstract)...)
	entities = append(entities, e.buildEntities(paper.ProjectID, model.KindMethod, capItems(parsed.Methods, 5), model.SectionAbstract)...)
	entities = append(entities, e.buildEntities(paper.ProjectID, model.KindFinding, capItems(parsed.Findings, 5), model.SectionAbstract)...)

	return entities, nil
}

// sectionExtraction is the superset of fields any section-specific
// template may populate; unused fields stay empty for a given section.
type sectionExtraction struct {
	Concepts    []extractedItem `json:"concepts"`
	Methods     []extractedItem `json:"methods"`
	Datasets    []extractedItem `json:"datasets"`
	Problems    []extractedItem `json:"problems"`
	Findings    []extractedItem `json:"findings"`
	Metrics     []extractedItem `json:"metrics"`
	Results     []extractedItem `json:"results"`
	Claims      []extractedItem `json:"claims"`
	Limitations []extractedItem `json:"limitations"`
	Innovations []extractedItem `json:"innovations"`
}

// ExtractSectionAware issues one LLM call per recognized section with a
// section-specific prompt template, gated by the caller on
// EnableLexicalGraph. Every returned entity is stamped with its
// extraction_section and source_chunk_ids.
func (e *Extractor) ExtractSectionAware(ctx context.Context, chunk *model.Chunk) ([]*model.Entity, error) {
	e.stats.SectionCallsAttempted++

	prompt := sectionPrompt(string(chunk.SectionType), chunk.Content)
	raw, err := e.llm.MustGenerate(ctx, "You are a literature-review extraction assistant.", prompt, true)
	if err != nil {
		e.stats.SectionCallsFailed++
		return nil, err
	}

	var parsed sectionExtraction
	if err := ParseJSON(raw, &parsed); err != nil {
		e.stats.JSONParseFailures++
		e.stats.SectionCallsFailed++
		return nil, err
	}

	var entities []*model.Entity
	add := func(kind model.EntityKind, items []extractedItem) {
		built := e.buildEntities(chunk.ProjectID, kind, items, chunk.SectionType)
		entities = append(entities, built...)
	}

	add(model.KindConcept, parsed.Concepts)
	add(model.KindMethod, parsed.Methods)
	add(model.KindDataset, parsed.Datasets)
	add(model.KindProblem, parsed.Problems)
	add(model.KindFinding, parsed.Findings)
	add(model.KindMetric, parsed.Metrics)
	add(model.KindResult, parsed.Results)
	add(model.KindClaim, parsed.Claims)
	add(model.KindLimitation, parsed.Limitations)
	add(model.KindInnovation, parsed.Innovations)

	for _, ent := range entities {
		ent.SourceChunkIDs = append(ent.SourceChunkIDs, chunk.ID)
	}

	return entities, nil
}

// defaultExtractionConfidence is used when the LLM omits or zeroes the
// confidence field rather than silently scoring the entity at 0.
const defaultExtractionConfidence = 0.8

func (e *Extractor) buildEntities(projectID uuid.UUID, kind model.EntityKind, items []extractedItem, section model.SectionType) []*model.Entity {
	var entities []*model.Entity
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if !isValidEntityName(name) {
			continue
		}
		if !model.ValidEntityKind(kind) {
			e.stats.UnknownKindsDropped++
			continue
		}

		confidence := item.Confidence
		if confidence <= 0 {
			confidence = defaultExtractionConfidence
		}

		entity := &model.Entity{
			ProjectID:         projectID,
			Kind:              kind,
			Name:              name,
			NormalizedName:    strings.ToLower(name),
			ExtractionSection: string(section),
			Confidence:        model.ClampWeight(confidence),
		}

		if def := strings.TrimSpace(item.Definition); def != "" {
			entity.Properties = model.Metadata{"definition": def}
		}
		if ev := strings.TrimSpace(item.Evidence); ev != "" {
			entity.EvidenceSpans = model.Metadata{string(section): ev}
		}

		entities = append(entities, entity)
	}
	return entities
}

// isValidEntityName filters out empty, punctuation-only, or
// tokenization-artifact names.
func isValidEntityName(name string) bool {
	if len(name) < 2 {
		return false
	}
	cleaned := strings.TrimFunc(name, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	if len(cleaned) < 2 {
		return false
	}
	if strings.HasPrefix(name, "#") {
		return false
	}
	return true
}

func capItems(s []extractedItem, max int) []extractedItem {
	if len(s) > max {
		return s[:max]
	}
	return s
}
