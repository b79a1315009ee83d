package pipeline

import "fmt"

// abstractExtractionSystemPrompt drives ExtractAbstractOnly: one call over
// title+abstract, capped at 10 concepts / 5 methods / 5 findings.
const abstractExtractionSystemPrompt = `You are a literature-review assistant extracting structured entities from an academic paper's title and abstract.
Return JSON only, shaped as:
{"concepts": [item, ...], "methods": [item, ...], "findings": [item, ...]}
where each item is {"name": string, "definition": string, "evidence": string, "confidence": number}.
"name" is the term in the paper's own terminology, not a paraphrase. "definition" is a one-sentence
gloss of what the term means in this paper's context, disambiguating homonyms (e.g. "SAT" as the
satisfiability problem vs. "SAT" as a standardized exam). "evidence" is the exact sentence or clause
the term was found in. "confidence" is your certainty this is a real, paper-specific entity, from 0 to 1.
Return at most 10 concepts, 5 methods, and 5 findings.`

// itemShapeInstruction is appended to every section prompt so the model
// returns the same {name, definition, evidence, confidence} item shape
// regardless of which section template fired.
const itemShapeInstruction = `
Each array element is an item: {"name": string, "definition": string, "evidence": string, "confidence": number}.
"definition" is a one-sentence gloss disambiguating the term in this section's context (e.g. "SAT" as the
satisfiability problem vs. "SAT" as a standardized exam). "evidence" is the exact sentence or clause it
appeared in. "confidence" is your certainty this is a real, paper-specific entity, from 0 to 1.`

// sectionPromptTemplates holds one template per recognized section kind:
// methodology, results, discussion, and introduction.
var sectionPromptTemplates = map[string]string{
	"methodology": `Extract the methods, datasets, and problems addressed in this METHODOLOGY section.
Return JSON: {"methods": [item,...], "datasets": [item,...], "problems": [item,...]}` + itemShapeInstruction + `
Section text:
%s`,
	"results": `Extract the findings, metrics, and results reported in this RESULTS section.
Return JSON: {"findings": [item,...], "metrics": [item,...], "results": [item,...]}` + itemShapeInstruction + `
Section text:
%s`,
	"discussion": `Extract the claims, limitations, and innovations discussed in this DISCUSSION section.
Return JSON: {"claims": [item,...], "limitations": [item,...], "innovations": [item,...]}` + itemShapeInstruction + `
Section text:
%s`,
	"introduction": `Extract the problems and concepts motivating this INTRODUCTION section.
Return JSON: {"problems": [item,...], "concepts": [item,...]}` + itemShapeInstruction + `
Section text:
%s`,
}

// sectionPrompt renders the prompt template for a recognized section kind,
// falling back to a generic concept-extraction prompt for sections with no
// dedicated template (e.g. background, related_work, unknown).
func sectionPrompt(sectionKey, text string) string {
	if tmpl, ok := sectionPromptTemplates[sectionKey]; ok {
		return fmt.Sprintf(tmpl, text)
	}
	return fmt.Sprintf(`Extract the concepts discussed in this section.
Return JSON: {"concepts": [item,...]}`+itemShapeInstruction+`
Section text:
%s`, text)
}

// resolutionJudgmentPrompt builds a single yes/no same-entity judgment
// prompt over a candidate merge pair. Nothing calls it: the entity
// resolver's stage-3 confirmation builds its own prompt (judgmentPrompt
// in core/resolver).
func resolutionJudgmentPrompt(nameA, nameB, contextA, contextB string) (system, user string) {
	system = `You judge whether two extracted entity mentions refer to the same real-world concept, method, dataset, or finding in an academic literature review. Return JSON only: {"same_entity": true|false, "reason": string}`
	user = fmt.Sprintf("Entity A: %q (context: %s)\nEntity B: %q (context: %s)\n\nDo these refer to the same entity?", nameA, contextA, nameB, contextB)
	return system, user
}

// gapQuestionPrompt asks the LLM to propose research questions bridging
// two structurally disconnected clusters.
func gapQuestionPrompt(clusterALabel, clusterBLabel string, keywordsA, keywordsB []string) (system, user string) {
	system = `You propose concrete research questions that would bridge two topic clusters in a literature review that currently have little structural connection. Return JSON only: {"questions": [string,...]}, at most 3 questions.`
	user = fmt.Sprintf("Cluster A: %q (keywords: %v)\nCluster B: %q (keywords: %v)\n\nPropose research questions connecting these clusters.", clusterALabel, keywordsA, clusterBLabel, keywordsB)
	return system, user
}

// GapQuestionPrompt exposes gapQuestionPrompt to core/gaps, which cannot
// reach the unexported prompt builders directly.
func GapQuestionPrompt(clusterALabel, clusterBLabel string, keywordsA, keywordsB []string) (system, user string) {
	return gapQuestionPrompt(clusterALabel, clusterBLabel, keywordsA, keywordsB)
}
