// Package store is the Postgres/pgvector persistence layer (component
// A1): schema, writes, cascading delete, and the nearest-neighbor query
// behind the retriever.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ragforge/ragindex/internal/domain"
)

// Store wraps a pgx connection pool and owns the schema: documents,
// chunk_strategies, parent_chunks, child_chunks, chunk_embeddings.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres, ensures the pgvector extension and schema
// exist, and returns a ready Store.
func New(ctx context.Context, dsn string, dimensions int) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, domain.Wrap(domain.KindPersistence, "store.New", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, domain.Wrap(domain.KindPersistence, "store.New", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx, dimensions); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) migrate(ctx context.Context, dimensions int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			project_name TEXT NOT NULL,
			title TEXT,
			content TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			metadata JSONB DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS chunk_strategies (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT,
			parent_chunk_size INTEGER NOT NULL,
			child_chunk_size INTEGER NOT NULL,
			overlap_percent INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE(parent_chunk_size, child_chunk_size, overlap_percent)
		)`,
		`CREATE TABLE IF NOT EXISTS parent_chunks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			strategy_id UUID NOT NULL REFERENCES chunk_strategies(id),
			parent_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			start_position INTEGER NOT NULL,
			end_position INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE(document_id, strategy_id, parent_index)
		)`,
		`CREATE TABLE IF NOT EXISTS child_chunks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			parent_chunk_id UUID NOT NULL REFERENCES parent_chunks(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			start_position INTEGER NOT NULL,
			end_position INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE(parent_chunk_id, chunk_index)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunk_embeddings (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			child_chunk_id UUID NOT NULL REFERENCES child_chunks(id) ON DELETE CASCADE,
			embedding_type TEXT NOT NULL,
			model TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE(child_chunk_id, embedding_type, model)
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS chunk_embeddings_ivfflat ON chunk_embeddings USING ivfflat (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS documents_project_name_idx ON documents (project_name)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return domain.Wrap(domain.KindPersistence, "store.migrate", err)
		}
	}
	return nil
}

// InsertDocument writes a Document row, assigning its ID.
func (s *Store) InsertDocument(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	metaJSON, err := sonic.Marshal(doc.Metadata)
	if err != nil {
		return domain.Wrap(domain.KindPersistence, "store.InsertDocument", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (id, project_name, title, content, doc_type, metadata) VALUES ($1,$2,$3,$4,$5,$6)`,
		doc.ID, doc.ProjectName, doc.Title, doc.Content, string(doc.DocType), metaJSON)
	if err != nil {
		return domain.Wrap(domain.KindPersistence, "store.InsertDocument", err)
	}
	return nil
}

// EnsureStrategy is the find-or-create for ChunkStrategy's globally
// unique (parent_chunk_size, child_chunk_size, overlap_percent) triple
// — projects sharing the same strategy share the same row. On a
// duplicate-key race it retries the find.
func (s *Store) EnsureStrategy(ctx context.Context, name string, parentSize, childSize, overlapPercent int) (*domain.ChunkStrategy, error) {
	strat := &domain.ChunkStrategy{
		Name:            name,
		ParentChunkSize: parentSize,
		ChildChunkSize:  childSize,
		OverlapPercent:  overlapPercent,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO chunk_strategies (name, parent_chunk_size, child_chunk_size, overlap_percent)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (parent_chunk_size, child_chunk_size, overlap_percent) DO NOTHING
		 RETURNING id, created_at`,
		name, parentSize, childSize, overlapPercent,
	).Scan(&strat.ID, &strat.CreatedAt)
	if err == nil {
		return strat, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Wrap(domain.KindPersistence, "store.EnsureStrategy", err)
	}

	// DO NOTHING path: row already existed, find it.
	err = s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM chunk_strategies WHERE parent_chunk_size=$1 AND child_chunk_size=$2 AND overlap_percent=$3`,
		parentSize, childSize, overlapPercent,
	).Scan(&strat.ID, &strat.Name, &strat.CreatedAt)
	if err != nil {
		return nil, domain.Wrap(domain.KindPersistence, "store.EnsureStrategy", err)
	}
	return strat, nil
}

// InsertParentChunk writes a ParentChunk row, assigning its ID.
func (s *Store) InsertParentChunk(ctx context.Context, p *domain.ParentChunk) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO parent_chunks (id, document_id, strategy_id, parent_index, content, summary, start_position, end_position)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.DocumentID, p.StrategyID, p.Index, p.Content, p.Summary, p.StartPos, p.EndPos)
	if err != nil {
		return domain.Wrap(domain.KindPersistence, "store.InsertParentChunk", err)
	}
	return nil
}

// InsertChildChunk writes a ChildChunk row, assigning its ID.
func (s *Store) InsertChildChunk(ctx context.Context, c *domain.ChildChunk) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO child_chunks (id, parent_chunk_id, chunk_index, content, start_position, end_position)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.ParentChunkID, c.Index, c.Content, c.StartPos, c.EndPos)
	if err != nil {
		return domain.Wrap(domain.KindPersistence, "store.InsertChildChunk", err)
	}
	return nil
}

// InsertEmbedding writes a ChunkEmbedding row for a child chunk.
func (s *Store) InsertEmbedding(ctx context.Context, emb *domain.ChunkEmbedding, embeddingType string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chunk_embeddings (child_chunk_id, embedding_type, model, embedding) VALUES ($1,$2,$3,$4)`,
		emb.ChildChunkID, embeddingType, emb.Model, pgvector.NewVector(emb.Vector))
	if err != nil {
		return domain.Wrap(domain.KindPersistence, "store.InsertEmbedding", err)
	}
	return nil
}

// DeleteDocument removes the Document row; ON DELETE CASCADE removes
// every owned parent chunk, child chunk, and embedding.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, documentID)
	if err != nil {
		return domain.Wrap(domain.KindPersistence, "store.DeleteDocument", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Newf(domain.KindNotFound, "store.DeleteDocument", "document %q not found", documentID)
	}
	return nil
}

// CandidateRow is one nearest-neighbor hit joined up to its document.
type CandidateRow struct {
	DocumentID      string
	DocumentTitle   string
	ProjectName     string
	DocumentType    string
	ParentChunkID   string
	ParentContent   string
	ParentSummary   string
	ChildChunkID    string
	ChildContent    string
	Similarity      float64
}

// SearchChildEmbeddings executes the cosine nearest-neighbor query over
// ChunkEmbedding joined to child, parent, and document, filtering by
// threshold and optional project scoping, ordered by distance ascending.
func (s *Store) SearchChildEmbeddings(ctx context.Context, vector []float32, model string, projectName string, threshold float64, limit int) ([]CandidateRow, error) {
	args := []any{pgvector.NewVector(vector), model, threshold, limit}
	query := `
		SELECT d.id, COALESCE(d.title,''), d.project_name, d.doc_type,
		       p.id, p.content, p.summary,
		       c.id, c.content,
		       1 - (e.embedding <=> $1) AS similarity
		FROM chunk_embeddings e
		JOIN child_chunks c ON c.id = e.child_chunk_id
		JOIN parent_chunks p ON p.id = c.parent_chunk_id
		JOIN documents d ON d.id = p.document_id
		WHERE e.model = $2 AND e.embedding_type = 'content'
		  AND 1 - (e.embedding <=> $1) >= $3`
	if projectName != "" {
		query += " AND d.project_name = $5"
		args = append(args, projectName)
	}
	query += " ORDER BY e.embedding <=> $1 ASC LIMIT $4"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Wrap(domain.KindPersistence, "store.SearchChildEmbeddings", err)
	}
	defer rows.Close()

	var results []CandidateRow
	for rows.Next() {
		var r CandidateRow
		if err := rows.Scan(&r.DocumentID, &r.DocumentTitle, &r.ProjectName, &r.DocumentType,
			&r.ParentChunkID, &r.ParentContent, &r.ParentSummary,
			&r.ChildChunkID, &r.ChildContent, &r.Similarity); err != nil {
			return nil, domain.Wrap(domain.KindPersistence, "store.SearchChildEmbeddings", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Wrap(domain.KindPersistence, "store.SearchChildEmbeddings", err)
	}
	return results, nil
}
