package model

import (
	"time"

	"github.com/google/uuid"
)

// SectionType is the closed set of recognized academic-paper section
// kinds used to drive section-aware chunking and extraction.
type SectionType string

const (
	SectionAbstract        SectionType = "abstract"
	SectionIntroduction    SectionType = "introduction"
	SectionRelatedWork     SectionType = "related_work"
	SectionBackground      SectionType = "background"
	SectionMethods         SectionType = "methods"
	SectionMethodology     SectionType = "methodology"
	SectionResults         SectionType = "results"
	SectionDiscussion      SectionType = "discussion"
	SectionConclusion      SectionType = "conclusion"
	SectionLimitations     SectionType = "limitations"
	SectionFutureWork      SectionType = "future_work"
	SectionAcknowledgments SectionType = "acknowledgments"
	SectionReferences      SectionType = "references"
	SectionAppendix        SectionType = "appendix"
	SectionUnknown         SectionType = "unknown"
)

// HierarchyLevel distinguishes section-level parent chunks from the
// paragraph-level children beneath them.
type HierarchyLevel int

const (
	HierarchySection   HierarchyLevel = 0
	HierarchyParagraph HierarchyLevel = 1
)

// Chunk is a node in the two-level section -> paragraph hierarchy
// produced by the semantic chunker.
type Chunk struct {
	ID            uuid.UUID      `json:"id"`
	ProjectID     uuid.UUID      `json:"project_id"`
	PaperID       uuid.UUID      `json:"paper_id"`
	ParentChunkID *uuid.UUID     `json:"parent_chunk_id,omitempty"`
	HierarchyLvl  HierarchyLevel `json:"hierarchy_level"`
	SectionType   SectionType    `json:"section_type"`
	SequenceOrder int            `json:"sequence_order"`

	Content    string    `json:"content"`
	Summary    string    `json:"summary,omitempty"`
	TokenCount int       `json:"token_count"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Metadata   Metadata  `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Populated on retrieval results only; never persisted.
	Similarity *float64 `json:"similarity,omitempty"`
}
