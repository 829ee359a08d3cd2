// Package app wires the pipeline components together with
// go.uber.org/fx, in the same infrastructure/clients/services/http_server
// module shape the corpus's own fx wiring uses.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ragforge/ragindex/internal/archive"
	"github.com/ragforge/ragindex/internal/clients/chat"
	"github.com/ragforge/ragindex/internal/clients/embedding"
	"github.com/ragforge/ragindex/internal/clients/rerank"
	"github.com/ragforge/ragindex/internal/config"
	"github.com/ragforge/ragindex/internal/embedder"
	"github.com/ragforge/ragindex/internal/httpapi"
	"github.com/ragforge/ragindex/internal/ingest"
	"github.com/ragforge/ragindex/internal/logger"
	"github.com/ragforge/ragindex/internal/querytransform"
	redisclient "github.com/ragforge/ragindex/internal/redis"
	"github.com/ragforge/ragindex/internal/reranker"
	"github.com/ragforge/ragindex/internal/retriever"
	"github.com/ragforge/ragindex/internal/store"
	"github.com/ragforge/ragindex/internal/summarizer"
)

// Module is the complete fx application.
var Module = fx.Options(
	InfrastructureModule,
	ClientsModule,
	ServicesModule,
	HTTPServerModule,
	fx.Invoke(StartHTTPServer),
)

// InfrastructureModule provides config, logging, storage, cache, and
// archival.
var InfrastructureModule = fx.Module("infrastructure",
	fx.Provide(
		NewAppConfig,
		NewAppLogger,
		NewStore,
		NewOptionalCache,
		NewOptionalArchive,
	),
)

// ClientsModule provides the remote service clients.
var ClientsModule = fx.Module("clients",
	fx.Provide(
		NewChatClient,
		NewEmbeddingClient,
		NewOptionalRerankClient,
	),
)

// ServicesModule provides the pipeline components built on top of the
// clients and storage.
var ServicesModule = fx.Module("services",
	fx.Provide(
		NewSummarizer,
		NewEmbedder,
		NewOrchestrator,
		NewQueryTransformer,
		NewRetriever,
		NewReranker,
	),
)

// HTTPServerModule provides the HTTP handler and server.
var HTTPServerModule = fx.Module("http_server",
	fx.Provide(
		NewHTTPAPIServer,
		NewHTTPServer,
	),
)

// NewAppConfig loads configuration from the working directory.
func NewAppConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// NewAppLogger initializes the process-wide zap logger.
func NewAppLogger() (*zap.Logger, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.GetLogger(), nil
}

// NewStore connects to Postgres/pgvector and ensures the schema exists.
func NewStore(lc fx.Lifecycle, cfg *config.Config) (*store.Store, error) {
	dimensions := embedding.GetDefaultDimensions(cfg.Services.Embedding.Model)
	if cfg.EmbeddingDimensions != 0 {
		dimensions = cfg.EmbeddingDimensions
	}
	logger.GetLogger().Sugar().Infow("initializing vector store", "model", cfg.Services.Embedding.Model, "dimensions", dimensions)

	s, err := store.New(context.Background(), cfg.DSN(), dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			s.Close()
			return nil
		},
	})
	return s, nil
}

// NewOptionalCache returns a Redis-backed cache, or nil if Redis was not
// configured. A nil *redis.Cache disables caching transparently.
func NewOptionalCache(lc fx.Lifecycle, cfg *config.Config) (*redisclient.Cache, error) {
	if !cfg.Redis.Enabled() {
		return nil, nil
	}
	client, err := redisclient.NewClientFromConfig(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			client.Close()
			return nil
		},
	})
	return redisclient.NewCache(client), nil
}

// NewOptionalArchive returns a MinIO-backed archive, or nil if MinIO was
// not configured.
func NewOptionalArchive(cfg *config.Config) (*archive.Archive, error) {
	if !cfg.MinIO.Enabled() {
		return nil, nil
	}
	a, err := archive.New(context.Background(), cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	return a, nil
}

func NewChatClient(cfg *config.Config) *chat.Client {
	return chat.NewClient(cfg.Services.LLM)
}

func NewEmbeddingClient(cfg *config.Config) *embedding.Client {
	return embedding.NewClient(cfg.Services.Embedding)
}

// NewOptionalRerankClient returns a cross-encoder reranking client, or
// nil if no dedicated reranker endpoint was configured.
func NewOptionalRerankClient(cfg *config.Config) *rerank.Client {
	if !cfg.Services.Reranker.Enabled() {
		return nil
	}
	return rerank.NewClient(cfg.Services.Reranker)
}

func NewSummarizer(cfg *config.Config, chatClient *chat.Client) *summarizer.Summarizer {
	return summarizer.New(chatClient, cfg.Services.LLM.Model)
}

func NewEmbedder(cfg *config.Config, embedClient *embedding.Client) *embedder.Embedder {
	return embedder.New(embedClient, cfg.Services.Embedding.Model)
}

func NewOrchestrator(cfg *config.Config, s *store.Store, sum *summarizer.Summarizer, emb *embedder.Embedder, a *archive.Archive) *ingest.Orchestrator {
	orch := ingest.New(s, sum, emb, cfg.Services.Embedding.Model, cfg.ChunkStrategies)
	if a != nil {
		orch = orch.WithArchiver(a)
	}
	return orch
}

func NewQueryTransformer(cfg *config.Config, chatClient *chat.Client) *querytransform.Transformer {
	return querytransform.New(chatClient, cfg.Services.LLM.Model)
}

func NewRetriever(s *store.Store, emb *embedder.Embedder, cache *redisclient.Cache) *retriever.Retriever {
	r := retriever.New(s, emb)
	if cache != nil {
		r = r.WithCache(cache)
	}
	return r
}

func NewReranker(cfg *config.Config, chatClient *chat.Client, rerankClient *rerank.Client) *reranker.Reranker {
	rr := reranker.New(chatClient, cfg.Services.LLM.Model)
	if rerankClient != nil {
		rr = rr.WithCrossEncoder(rerankClient, cfg.Services.Reranker.Enabled())
	}
	return rr
}

func NewHTTPAPIServer(cfg *config.Config, orch *ingest.Orchestrator, s *store.Store, tr *querytransform.Transformer, r *retriever.Retriever, rr *reranker.Reranker, a *archive.Archive) *httpapi.Server {
	srv := httpapi.New(orch, s, tr, r, rr, cfg.Services.Embedding.Model)
	if a != nil {
		srv = srv.WithArchiver(a)
	}
	return srv
}

// NewHTTPServer builds the stdlib server around the API routes.
func NewHTTPServer(cfg *config.Config, api *httpapi.Server) *http.Server {
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.GetLogger().Sugar().Infow("http server configured", "address", addr)
	return &http.Server{
		Addr:    addr,
		Handler: api.Routes(),
	}
}

// StartHTTPServer registers the HTTP server's start/stop with the fx
// lifecycle.
func StartHTTPServer(httpServer *http.Server, lifecycle fx.Lifecycle, shutdowner fx.Shutdowner) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.GetLogger().Sugar().Infow("starting http server", "addr", httpServer.Addr)
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.GetLogger().Sugar().Errorw("http server failed", "error", err)
					if shutdownErr := shutdowner.Shutdown(); shutdownErr != nil {
						logger.GetLogger().Sugar().Errorw("application shutdown failed", "error", shutdownErr)
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.GetLogger().Sugar().Info("stopping http server")
			return httpServer.Shutdown(ctx)
		},
	})
}
