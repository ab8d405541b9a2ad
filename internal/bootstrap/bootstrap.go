package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegbakhtin/document-qa-service/internal/config"
	"github.com/olegbakhtin/document-qa-service/internal/core/ports"
	"github.com/olegbakhtin/document-qa-service/internal/core/usecase"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/cache/memory"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/extractor"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/extractor/pdf"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/extractor/plaintext"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/extractor/xlsx"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/llm/ollama"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/queue/nats"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/repository/postgres"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/resilience"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/segmenter"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/storage/localfs"
	"github.com/olegbakhtin/document-qa-service/internal/infrastructure/vector/qdrant"
)

// App holds the wired dependencies shared by the api and worker
// binaries. Close releases the underlying connections.
type App struct {
	Config config.Config

	DB    *sql.DB
	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	Conversations ports.ConversationLog
	History       ports.ConversationReader
	Cache         *memory.SynthesisCache

	AskUC     ports.QuestionService
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	RemoveUC  ports.DocumentRemover

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	convRepo := postgres.NewConversationRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, cfg.NATSInvalidateSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel,
		resilience.NewExecutor(resilience.LLMConfig()))
	planner := ollama.NewPlanner(ollamaClient, cfg.AskMaxSubQueries)
	expander := ollama.NewExpander(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	embedder, err := ollama.NewCachingEmbedder(ollama.NewEmbedder(ollamaClient), cfg.QueryEmbeddingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	splitter := segmenter.NewSplitter(cfg.SegmentSize, cfg.SegmentOverlap)
	textExtractor := extractor.NewComposite(
		plaintext.NewExtractor(storage),
		pdf.NewExtractor(storage),
		xlsx.NewExtractor(storage),
	)

	cache := memory.New(memory.Config{
		MaxEntries:              cfg.CacheMaxEntries,
		MaxAge:                  time.Duration(cfg.CacheMaxAgeSeconds) * time.Second,
		SlidingExpiration:       time.Duration(cfg.CacheSlidingSeconds) * time.Second,
		InvalidateOnModelChange: cfg.CacheInvalidateOnModelSwap,
		Model:                   ollamaClient.GenModel(),
	})

	askCfg, err := askConfig(cfg)
	if err != nil {
		return nil, err
	}

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, textExtractor, splitter, embedder, vectorDB, queue)
	removeUC := usecase.NewRemoveDocumentUseCase(repo, storage, vectorDB, queue)
	askUC := usecase.NewAskUseCase(planner, embedder, vectorDB, expander, generator, convRepo, repo, cache, askCfg)

	return &App{
		Config: cfg,

		DB:    db,
		Queue: queue,
		Repo:  repo,

		Conversations: convRepo,
		History:       convRepo,
		Cache:         cache,

		AskUC:     askUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		RemoveUC:  removeUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// askConfig builds the pipeline configuration from the environment and
// overlays the optional tuning file on top of it.
func askConfig(cfg config.Config) (usecase.AskConfig, error) {
	askCfg := usecase.AskConfig{
		TopK:                 cfg.AskTopK,
		SubQueryTopK:         cfg.AskSubQueryTopK,
		MaxSubQueries:        cfg.AskMaxSubQueries,
		MaxConcurrent:        cfg.AskMaxConcurrent,
		MaxExpansionsPerTerm: cfg.AskExpansionsPerTerm,
		ContextMaxMessages:   cfg.AskContextMessages,
		SynthesisTemperature: cfg.AskSynthesisTemperature,
		DemoMode:             cfg.DemoMode,
		OffTopicMessage:      cfg.DemoOffTopicMessage,
	}

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		return usecase.AskConfig{}, fmt.Errorf("load tuning: %w", err)
	}
	if tuning == nil {
		return askCfg, nil
	}
	if tuning.RRFK > 0 {
		askCfg.RRFK = tuning.RRFK
	}
	if tuning.KeywordWeights != nil {
		askCfg.KeywordWeights = *tuning.KeywordWeights
	}
	if tuning.HybridWeights != nil {
		askCfg.HybridWeights = *tuning.HybridWeights
	}
	if tuning.BM25K1 > 0 {
		askCfg.BM25K1 = tuning.BM25K1
	}
	if tuning.BM25B > 0 {
		askCfg.BM25B = tuning.BM25B
	}
	if tuning.MinRelevanceScore > 0 {
		askCfg.MinRelevanceScore = tuning.MinRelevanceScore
	}
	return askCfg, nil
}

// SubscribeCacheInvalidation drops cached syntheses for documents that
// were reprocessed or removed by any instance. It blocks until ctx is
// canceled.
func (a *App) SubscribeCacheInvalidation(ctx context.Context) error {
	return a.Queue.SubscribeDocumentInvalidated(ctx, func(_ context.Context, documentID string) error {
		removed := a.Cache.InvalidateForDocument(documentID)
		if removed > 0 {
			slog.Info("synthesis_cache_invalidated", "document_id", documentID, "entries", removed)
		}
		return nil
	})
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
