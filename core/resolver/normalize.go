package resolver

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/litreview/conceptgraph/model"
)

// NormalizeName lowercases, trims, collapses whitespace, and normalizes
// hyphen/space variants so "Fine-Tuning", "finetuning", and "fine tuning"
// all resolve to the same key.
func NormalizeName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	lower = strings.Join(strings.Fields(lower), " ")
	lower = strings.ReplaceAll(lower, "-", "")
	lower = strings.ReplaceAll(lower, " ", "")
	return lower
}

// longFormAcronymPattern detects "Long Form (ACRONYM)" definitions, e.g.
// "Large Language Model (LLM)".
var longFormAcronymPattern = regexp.MustCompile(`^(.+?)\s*\(([A-Z]{2,})\)\s*$`)

// AcronymExpansion reports the long form and acronym found in a
// definition string, if any.
func AcronymExpansion(definition string) (longForm, acronym string, ok bool) {
	m := longFormAcronymPattern.FindStringSubmatch(strings.TrimSpace(definition))
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), m[2], true
}

// homonymContextKeywords disambiguates names that refer to unrelated
// concepts depending on domain context, so "transformer" (NLP
// architecture) never merges with "transformer" (electrical device) and
// "SAT" (exam) never merges with "SAT" (satisfiability problem).
var homonymContextKeywords = map[string][]string{
	"transformer": {"attention", "encoder", "decoder", "nlp", "language model"},
	"sat":         {"exam", "test", "admission", "college", "satellite", "orbit", "satisfiability", "boolean", "np-complete", "solver"},
	"tree":        {"data structure", "algorithm", "graph"},
	"kernel":      {"operating system", "os", "linux"},
}

// ContextBucket derives a coarse disambiguation bucket for an entity from
// keywords found in its properties (definition/description), falling
// back to "default" for names with no registered homonym ambiguity.
func ContextBucket(entity *model.Entity) string {
	key := NormalizeName(entity.Name)
	keywords, ambiguous := homonymContextKeywords[key]
	if !ambiguous {
		return "default"
	}

	text := strings.ToLower(propertyText(entity))
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return "unclassified"
}

func propertyText(entity *model.Entity) string {
	var parts []string
	for _, key := range []string{"definition", "description"} {
		if v, ok := entity.Properties[key]; ok {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// GroupKey is the stage-1 grouping key: same type, same normalized name,
// same context bucket.
type GroupKey struct {
	ProjectID      uuid.UUID
	Kind           model.EntityKind
	NormalizedName string
	ContextBucket  string
}

// GroupDeterministic groups entities by (project, type, normalized-name,
// context-bucket) -- entities never merge across projects or types.
// Singleton groups pass through untouched; multi-element groups are
// auto-merge candidates.
func GroupDeterministic(entities []*model.Entity) map[GroupKey][]*model.Entity {
	groups := make(map[GroupKey][]*model.Entity)
	for _, e := range entities {
		key := GroupKey{
			ProjectID:      e.ProjectID,
			Kind:           e.Kind,
			NormalizedName: NormalizeName(e.Name),
			ContextBucket:  ContextBucket(e),
		}
		groups[key] = append(groups[key], e)
	}
	return groups
}
