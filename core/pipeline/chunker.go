package pipeline

import (
	"regexp"
	"strings"

	"github.com/litreview/conceptgraph/model"
)

// ChunkedParagraph is a paragraph-level child chunk still carrying its
// parent section's type, before ids are assigned by the store.
type ChunkedParagraph struct {
	Content       string
	SectionType   model.SectionType
	SequenceOrder int
	TokenCount    int
}

// ChunkedSection is a section-level parent chunk together with its
// paragraph children, the output of Chunk.
type ChunkedSection struct {
	Heading       string
	SectionType   model.SectionType
	SequenceOrder int
	Paragraphs    []ChunkedParagraph
}

const (
	minParagraphTokens = 20
	maxParagraphTokens = 512
	targetMinTokens    = 256
)

var sectionHeadingPattern = regexp.MustCompile(`(?m)^\s*#{0,3}\s*([A-Za-z][A-Za-z0-9 ,/&\-]{2,60})\s*$`)

var sectionAliases = map[string]model.SectionType{
	"abstract":                    model.SectionAbstract,
	"introduction":                model.SectionIntroduction,
	"background":                  model.SectionBackground,
	"related work":                model.SectionRelatedWork,
	"related works":               model.SectionRelatedWork,
	"literature review":           model.SectionRelatedWork,
	"methods":                     model.SectionMethods,
	"method":                      model.SectionMethods,
	"methodology":                 model.SectionMethodology,
	"materials and methods":       model.SectionMethods,
	"experimental setup":          model.SectionMethods,
	"results":                     model.SectionResults,
	"experiments":                 model.SectionResults,
	"evaluation":                  model.SectionResults,
	"discussion":                  model.SectionDiscussion,
	"conclusion":                  model.SectionConclusion,
	"conclusions":                 model.SectionConclusion,
	"conclusion and future work":  model.SectionConclusion,
	"limitations":                 model.SectionLimitations,
	"threats to validity":         model.SectionLimitations,
	"future work":                 model.SectionFutureWork,
	"acknowledgments":             model.SectionAcknowledgments,
	"acknowledgements":            model.SectionAcknowledgments,
	"references":                  model.SectionReferences,
	"bibliography":                model.SectionReferences,
	"appendix":                    model.SectionAppendix,
	"appendices":                  model.SectionAppendix,
	"supplementary material":      model.SectionAppendix,
}

func classifySectionHeading(heading string) model.SectionType {
	key := strings.ToLower(strings.TrimSpace(heading))
	key = strings.Trim(key, "0123456789. \t")
	if t, ok := sectionAliases[key]; ok {
		return t
	}
	return model.SectionUnknown
}

// estimateTokens approximates a token count from whitespace-delimited
// words via len(words)/0.75 (roughly 0.75 words per token for English
// academic prose).
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) / 0.75)
}

// Chunk splits a paper's raw text into the two-level section -> paragraph
// hierarchy. Parent level: heading detection via a closed list of
// academic section names, applied line-by-line. Child level: one chunk
// per blank-line-separated paragraph; paragraphs under 20 tokens merge
// into the following sibling. Paragraphs are not split, so a chunk can
// exceed 512 tokens, and 256 tokens is not enforced as a minimum chunk
// size. No headings detected falls soft to one "unknown"
// parent holding every paragraph. The abstract, when detected, is always
// isolated as its own parent section.
func Chunk(text string) []ChunkedSection {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	headingMatches := sectionHeadingPattern.FindAllStringSubmatchIndex(text, -1)
	if len(headingMatches) == 0 {
		return []ChunkedSection{{
			Heading:       "unknown",
			SectionType:   model.SectionUnknown,
			SequenceOrder: 0,
			Paragraphs:    chunkParagraphs(text, model.SectionUnknown),
		}}
	}

	var sections []ChunkedSection
	for i, m := range headingMatches {
		heading := strings.TrimSpace(text[m[2]:m[3]])
		bodyStart := m[1]
		bodyEnd := len(text)
		if i+1 < len(headingMatches) {
			bodyEnd = headingMatches[i+1][0]
		}
		body := text[bodyStart:bodyEnd]

		sectionType := classifySectionHeading(heading)
		sections = append(sections, ChunkedSection{
			Heading:       heading,
			SectionType:   sectionType,
			SequenceOrder: i,
			Paragraphs:    chunkParagraphs(body, sectionType),
		})
	}

	return sections
}

// chunkParagraphs splits a section body on blank lines into paragraph
// chunks, merging paragraphs under 20 tokens into the next sibling. It
// does not split paragraphs over 512 tokens or merge chunks up to 256.
func chunkParagraphs(body string, sectionType model.SectionType) []ChunkedParagraph {
	rawParagraphs := strings.Split(body, "\n\n")

	var paragraphs []ChunkedParagraph
	var carry string

	flush := func(content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		paragraphs = append(paragraphs, ChunkedParagraph{
			Content:       content,
			SectionType:   sectionType,
			SequenceOrder: len(paragraphs),
			TokenCount:    estimateTokens(content),
		})
	}

	for _, raw := range rawParagraphs {
		para := strings.TrimSpace(raw)
		if para == "" {
			continue
		}

		combined := para
		if carry != "" {
			combined = carry + "\n\n" + para
		}

		tokens := estimateTokens(combined)
		switch {
		case tokens < minParagraphTokens:
			carry = combined
		case tokens > maxParagraphTokens && carry != "" && carry != combined:
			// Flush the carry alone, keep this paragraph pending re-evaluation.
			flush(carry)
			carry = para
			if estimateTokens(carry) >= targetMinTokens {
				flush(carry)
				carry = ""
			}
		default:
			flush(combined)
			carry = ""
		}
	}

	if carry != "" {
		flush(carry)
	}

	return paragraphs
}
