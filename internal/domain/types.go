// Package domain holds the core entities shared by every stage of the
// ingestion and retrieval pipeline.
package domain

import "time"

// DocumentType classifies a document for type-specialized summarization
// prompts.
type DocumentType string

const (
	DocumentTypeAPIDoc     DocumentType = "API_DOC"
	DocumentTypeTechDoc    DocumentType = "TECH_DOC"
	DocumentTypeCodeLogic  DocumentType = "CODE_LOGIC_DOC"
	DocumentTypeGeneralDoc DocumentType = "GENERAL_DOC"
)

// QueryStrategy is the transformation strategy chosen for a retrieval
// query.
type QueryStrategy string

const (
	StrategyDirect    QueryStrategy = "direct"
	StrategyExpansion QueryStrategy = "expansion"
	StrategyHyDE      QueryStrategy = "hyde"
)

// Document is the top-level unit of ingestion.
type Document struct {
	ID          string
	ProjectName string
	Title       string
	Content     string
	DocType     DocumentType
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChunkStrategy names a (parent_chunk_size, child_chunk_size,
// overlap_percent) triple that parent and child chunks are grouped
// under. The triple is globally unique, not scoped per project:
// documents in different projects that use the same strategy share a
// row.
type ChunkStrategy struct {
	ID              string
	Name            string
	ParentChunkSize int
	ChildChunkSize  int
	OverlapPercent  int
	CreatedAt       time.Time
}

// ParentChunk is a large, context-preserving span of a document, produced
// by the first pass of the recursive splitter.
type ParentChunk struct {
	ID         string
	DocumentID string
	StrategyID string
	Index      int
	Content    string
	Summary    string
	StartPos   int
	EndPos     int
	CreatedAt  time.Time
}

// ChildChunk is a smaller, retrieval-precision span nested inside a
// ParentChunk.
type ChildChunk struct {
	ID            string
	ParentChunkID string
	Index         int
	Content       string
	StartPos      int
	EndPos        int
	CreatedAt     time.Time
}

// ChunkEmbedding is the dense vector representation of a ChildChunk's
// contextualized content, under a particular embedding model.
type ChunkEmbedding struct {
	ID           string
	ChildChunkID string
	Model        string
	Dimensions   int
	Vector       []float32
	CreatedAt    time.Time
}
