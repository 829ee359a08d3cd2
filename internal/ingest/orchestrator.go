// Package ingest wires the chunker, summarizer, and embedder into the
// per-document, per-strategy write pipeline (component C4).
package ingest

import (
	"context"
	"strings"

	"github.com/ragforge/ragindex/internal/chunking"
	"github.com/ragforge/ragindex/internal/config"
	"github.com/ragforge/ragindex/internal/domain"
	"github.com/ragforge/ragindex/internal/embedder"
	"github.com/ragforge/ragindex/internal/logger"
	"github.com/ragforge/ragindex/internal/summarizer"
)

// EmbeddingTypeContent is the embedding_type value written for a child
// chunk's primary contextual embedding.
const EmbeddingTypeContent = "content"

// ProgressStage names a phase boundary for the optional progress
// callback, in data-flow order.
type ProgressStage string

const (
	StageChunking    ProgressStage = "chunking"
	StageSummarizing ProgressStage = "summarizing"
	StageEmbedding   ProgressStage = "embedding"
	StageWriting     ProgressStage = "writing"
)

// ProgressFunc is invoked synchronously at phase boundaries; it must
// not block on I/O.
type ProgressFunc func(stage ProgressStage, current, total int)

// Writer is the persistence dependency the orchestrator needs.
type Writer interface {
	InsertDocument(ctx context.Context, doc *domain.Document) error
	EnsureStrategy(ctx context.Context, name string, parentSize, childSize, overlapPercent int) (*domain.ChunkStrategy, error)
	InsertParentChunk(ctx context.Context, p *domain.ParentChunk) error
	InsertChildChunk(ctx context.Context, c *domain.ChildChunk) error
	InsertEmbedding(ctx context.Context, emb *domain.ChunkEmbedding, embeddingType string) error
}

// Archiver is the optional best-effort raw-content archival dependency.
type Archiver interface {
	StoreDocument(ctx context.Context, documentID, content string) error
}

// Request is the input to Ingest, after boundary normalization (type
// lookup, defaulting) has already been applied by the caller.
type Request struct {
	Content     string
	DocType     domain.DocumentType
	ProjectName string
	Title       string
	Metadata    map[string]any
}

// StrategyOutcome reports one chunk strategy's contribution to an
// ingest, echoed in the ingest response.
type StrategyOutcome struct {
	Name           string
	ParentSize     int
	ChildSize      int
	OverlapPercent int
}

// Result is the outcome of Ingest.
type Result struct {
	DocumentID          string
	Title               string
	ParentChunksCreated int
	ChildChunksCreated  int
	EmbeddingsCreated   int
	Strategies          []StrategyOutcome
}

// Orchestrator wires C1 (chunking), C2 (summarization), and C3
// (embedding) into document writes.
type Orchestrator struct {
	writer          Writer
	splitter        *chunking.Splitter
	summarizer      *summarizer.Summarizer
	embedder        *embedder.Embedder
	archiver        Archiver
	embeddingModel  string
	strategies      []config.ChunkStrategyConfig
}

func New(writer Writer, summarizer *summarizer.Summarizer, emb *embedder.Embedder, embeddingModel string, strategies []config.ChunkStrategyConfig) *Orchestrator {
	return &Orchestrator{
		writer:         writer,
		splitter:       chunking.NewSplitter(),
		summarizer:     summarizer,
		embedder:       emb,
		embeddingModel: embeddingModel,
		strategies:     strategies,
	}
}

// WithArchiver attaches the optional A6 archival dependency. Passing
// nil leaves ingestion without raw-content archival.
func (o *Orchestrator) WithArchiver(a Archiver) *Orchestrator {
	o.archiver = a
	return o
}

// Ingest runs the full per-document pipeline (chunk, summarize, embed,
// write) across every configured chunk strategy, and returns aggregate counts.
// Any step's error aborts ingestion for the current document; writes
// already committed for prior strategies are not rolled back.
func (o *Orchestrator) Ingest(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	title := req.Title
	if title == "" {
		title = chunking.DetectTitle(req.Content)
	}

	doc := &domain.Document{
		ProjectName: req.ProjectName,
		Title:       title,
		Content:     req.Content,
		DocType:     req.DocType,
		Metadata:    req.Metadata,
	}
	if err := o.writer.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}

	if o.archiver != nil {
		if err := o.archiver.StoreDocument(ctx, doc.ID, req.Content); err != nil {
			logger.GetLogger().Sugar().Warnw("document archival failed, continuing without it",
				"document_id", doc.ID, "error", err)
		}
	}

	result := &Result{DocumentID: doc.ID, Title: title}

	if strings.TrimSpace(req.Content) == "" {
		return result, nil
	}

	for _, strategy := range o.strategies {
		outcome, err := o.ingestStrategy(ctx, doc, strategy, progress)
		if err != nil {
			return nil, err
		}
		result.ParentChunksCreated += outcome.parentCount
		result.ChildChunksCreated += outcome.childCount
		result.EmbeddingsCreated += outcome.embeddingCount
		result.Strategies = append(result.Strategies, StrategyOutcome{
			Name:           strategy.Name,
			ParentSize:     strategy.ParentSize,
			ChildSize:      strategy.ChildSize,
			OverlapPercent: strategy.OverlapPercent,
		})
	}

	return result, nil
}

type strategyCounts struct {
	parentCount    int
	childCount     int
	embeddingCount int
}

func (o *Orchestrator) ingestStrategy(ctx context.Context, doc *domain.Document, strategy config.ChunkStrategyConfig, progress ProgressFunc) (strategyCounts, error) {
	var counts strategyCounts

	strat, err := o.writer.EnsureStrategy(ctx, strategy.Name, strategy.ParentSize, strategy.ChildSize, strategy.OverlapPercent)
	if err != nil {
		return counts, err
	}

	notify(progress, StageChunking, 0, 1)
	parents, err := o.splitter.SplitHierarchical(doc.Content, strategy.ParentSize, strategy.ChildSize, strategy.OverlapPercent)
	if err != nil {
		return counts, err
	}
	notify(progress, StageChunking, 1, 1)

	parentContents := make([]string, len(parents))
	for i, p := range parents {
		parentContents[i] = p.Content
	}

	notify(progress, StageSummarizing, 0, len(parents))
	summaries, err := o.summarizer.SummarizeBatch(ctx, parentContents, doc.DocType)
	if err != nil {
		return counts, err
	}
	notify(progress, StageSummarizing, len(parents), len(parents))

	type childWithContext struct {
		parentIdx int
		childIdx  int
		span      chunking.Span
	}
	var flatChildren []childWithContext
	for pi, p := range parents {
		for ci, c := range p.Children {
			flatChildren = append(flatChildren, childWithContext{parentIdx: pi, childIdx: ci, span: c})
		}
	}

	contextFields := make([]embedder.ContextFields, len(flatChildren))
	for i, fc := range flatChildren {
		contextFields[i] = embedder.ContextFields{
			Title:   doc.Title,
			Type:    string(doc.DocType),
			Summary: summaries[fc.parentIdx],
			Content: fc.span.Content,
		}
	}

	notify(progress, StageEmbedding, 0, len(flatChildren))
	vectors, err := o.embedder.EmbedContextualBatch(ctx, contextFields)
	if err != nil {
		return counts, err
	}
	notify(progress, StageEmbedding, len(flatChildren), len(flatChildren))

	notify(progress, StageWriting, 0, len(parents))
	childIdx := 0
	for pi, p := range parents {
		parent := &domain.ParentChunk{
			DocumentID: doc.ID,
			StrategyID: strat.ID,
			Index:      pi,
			Content:    p.Content,
			Summary:    summaries[pi],
			StartPos:   p.Start,
			EndPos:     p.End,
		}
		if err := o.writer.InsertParentChunk(ctx, parent); err != nil {
			return counts, err
		}
		counts.parentCount++

		for ci, c := range p.Children {
			child := &domain.ChildChunk{
				ParentChunkID: parent.ID,
				Index:         ci,
				Content:       c.Content,
				StartPos:      c.Start,
				EndPos:        c.End,
			}
			if err := o.writer.InsertChildChunk(ctx, child); err != nil {
				return counts, err
			}
			counts.childCount++

			vector := vectors[childIdx]
			childIdx++
			if len(vector) == 0 {
				continue
			}
			emb := &domain.ChunkEmbedding{
				ChildChunkID: child.ID,
				Model:        o.embeddingModel,
				Dimensions:   len(vector),
				Vector:       vector,
			}
			if err := o.writer.InsertEmbedding(ctx, emb, EmbeddingTypeContent); err != nil {
				return counts, err
			}
			counts.embeddingCount++
		}
		notify(progress, StageWriting, pi+1, len(parents))
	}

	return counts, nil
}

func notify(progress ProgressFunc, stage ProgressStage, current, total int) {
	if progress != nil {
		progress(stage, current, total)
	}
}
