package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/davidgpt/david-gpt/internal/config"
	"github.com/davidgpt/david-gpt/internal/core/domain"
	"github.com/davidgpt/david-gpt/internal/core/ports"
	"github.com/davidgpt/david-gpt/internal/core/usecase"
	"github.com/davidgpt/david-gpt/internal/infrastructure/chunking"
	"github.com/davidgpt/david-gpt/internal/infrastructure/embedding"
	entneo4j "github.com/davidgpt/david-gpt/internal/infrastructure/entity/neo4j"
	"github.com/davidgpt/david-gpt/internal/infrastructure/extractor"
	"github.com/davidgpt/david-gpt/internal/infrastructure/extractor/pdfdoc"
	"github.com/davidgpt/david-gpt/internal/infrastructure/extractor/plaintext"
	"github.com/davidgpt/david-gpt/internal/infrastructure/extractor/spreadsheet"
	"github.com/davidgpt/david-gpt/internal/infrastructure/llm/ollama"
	"github.com/davidgpt/david-gpt/internal/infrastructure/queue/nats"
	"github.com/davidgpt/david-gpt/internal/infrastructure/repository/postgres"
	"github.com/davidgpt/david-gpt/internal/infrastructure/resilience"
	"github.com/davidgpt/david-gpt/internal/infrastructure/sectionizer/markdown"
	"github.com/davidgpt/david-gpt/internal/infrastructure/storage/localfs"
	"github.com/davidgpt/david-gpt/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config   config.Config
	Personas *config.PersonaRegistry

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	SearchUC  ports.Searcher

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	personas, err := config.LoadPersonas(cfg.PersonasPath)
	if err != nil {
		return nil, fmt.Errorf("load personas: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chunkStore := postgres.NewChunkRepository(db)
	lexicalLeg := postgres.NewLexicalLeg(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.WithResilienceExecutor(executor))
	pooledEmbedder, err := embedding.NewPooledEmbedder(ollamaClient, cfg.EmbedWorkers, cfg.EmbedBatchSize)
	if err != nil {
		return nil, fmt.Errorf("init embedding pool: %w", err)
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	vectorLeg := qdrant.NewVectorLeg(vectorDB, pooledEmbedder)

	counter, err := chunking.NewTokenCounter(cfg.TokenizerModel)
	if err != nil {
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}
	chunker := chunking.NewSemanticChunker(counter)
	sectionizer := markdown.New()

	textExtractor := extractor.NewRouter(
		plaintext.NewExtractor(storage),
		pdfdoc.NewExtractor(storage),
		spreadsheet.NewExtractor(storage),
	)

	chunkCfg := domain.ChunkConfig{
		TargetMinTokens: cfg.ChunkTargetMinTokens,
		TargetMaxTokens: cfg.ChunkTargetMaxTokens,
		OverlapPercent:  cfg.ChunkOverlapPercent,
		TokenizerModel:  cfg.TokenizerModel,
	}
	if err := chunkCfg.Validate(); err != nil {
		return nil, fmt.Errorf("chunk config: %w", err)
	}

	searchOpts := []usecase.SearchOption{
		usecase.WithLegTimeout(time.Duration(cfg.SearchLegTimeoutMS) * time.Millisecond),
		usecase.WithQueryDefaults(domain.SearchQuery{
			Limit:              cfg.SearchLimit,
			VectorLimit:        cfg.SearchLegCandidates,
			BM25Limit:          cfg.SearchLegCandidates,
			RRFK:               cfg.SearchRRFK,
			TagBoostMultiplier: cfg.SearchTagBoost,
			MaxChunksPerDoc:    cfg.SearchMaxChunksPerDoc,
		}),
		usecase.WithSearchLogger(logger),
	}

	processOpts := []usecase.ProcessOption{usecase.WithProcessLogger(logger)}

	var entityStore *entneo4j.Store
	if cfg.Neo4jURI != "" {
		entityStore, err = entneo4j.NewStore(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return nil, fmt.Errorf("init entity store: %w", err)
		}
		expansion := usecase.NewExpansionLayer(entityStore, time.Second, logger)
		searchOpts = append(searchOpts, usecase.WithExpansionLayer(expansion))
		processOpts = append(processOpts, usecase.WithEntityLinker(entityStore))
	}

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, textExtractor, sectionizer, chunker, pooledEmbedder, vectorDB, chunkStore, chunkCfg,
		processOpts...)
	searchUC := usecase.NewSearchUseCase(vectorLeg, lexicalLeg, searchOpts...)

	return &App{
		Config:   cfg,
		Personas: personas,
		Queue:    queue,
		Repo:     repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		SearchUC:  searchUC,

		closeFn: func() {
			queue.Close()
			pooledEmbedder.Release()
			if entityStore != nil {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = entityStore.Close(closeCtx)
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
