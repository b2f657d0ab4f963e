// Package bootstrap assembles the knowledge base from configuration. Both
// the HTTP service and the CLI build their components here.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"taxkb/internal/config"
	"taxkb/internal/database/milvus"
	"taxkb/internal/database/redis"
	"taxkb/internal/kb"
	"taxkb/internal/kb/docstore"
	"taxkb/internal/kb/embeddings"
	"taxkb/internal/kb/interfaces"
	"taxkb/internal/kb/llms"
	"taxkb/internal/kb/pipeline"
	"taxkb/internal/kb/preprocess"
	"taxkb/internal/kb/rerankers"
	"taxkb/internal/kb/splitters"
	"taxkb/internal/kb/vectorstore"
	"taxkb/pkg/logger"
)

// App bundles the assembled knowledge base and the handles that need closing
// on shutdown.
type App struct {
	KB           *kb.KnowledgeBase
	MilvusClient *milvus.Client

	closers []func() error
}

// Close releases the external connections.
func (a *App) Close() {
	for _, close := range a.closers {
		_ = close()
	}
	if a.MilvusClient != nil {
		a.MilvusClient.Close()
	}
}

// Build connects to the configured backends and wires the full pipeline.
func Build(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*App, error) {
	app := &App{}

	milvusClient, err := milvus.NewClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}
	app.MilvusClient = milvusClient
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to ensure milvus collection: %w", err)
	}

	redisClient, err := redis.NewClient(ctx, &cfg.Databases.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.closers = append(app.closers, redisClient.Close)

	vectorStore, err := vectorstore.NewMilvusStore(milvusClient, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	docStore := docstore.NewRedisDocStore(redisClient)

	embedder, err := buildEmbedder(cfg, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	splitter, err := splitters.NewCharacterSplitter(cfg.KnowledgeBase.ChunkSize, cfg.KnowledgeBase.ChunkOverlap)
	if err != nil {
		app.Close()
		return nil, err
	}

	indexing := pipeline.NewIndexingPipeline(
		preprocess.NewPreprocessor(), splitter, embedder, docStore, vectorStore, log)
	retrieval := pipeline.NewRetrievalPipeline(embedder, vectorStore, buildReranker(cfg, log), log)

	var qa *pipeline.QAPipeline
	llm, err := buildLLM(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	if llm != nil {
		qa = pipeline.NewQAPipeline(llm, log)
	}

	app.KB = kb.NewKnowledgeBase(indexing, retrieval, qa, docStore, cfg.KnowledgeBase.TopK, log)
	return app, nil
}

// buildEmbedder selects the embedding provider and wraps it with the retry
// and batching layers.
func buildEmbedder(cfg *config.AppConfig, log *logger.Logger) (interfaces.EmbeddingModel, error) {
	var base interfaces.EmbeddingModel
	var err error

	switch cfg.Embedding.Provider {
	case "openai":
		base = embeddings.NewOpenAIModel(os.Getenv(cfg.Embedding.OpenAI.APIKeyEnv), cfg.Embedding.OpenAI.Model)
	case "ollama":
		base, err = embeddings.NewOllamaModel(cfg.Embedding.Ollama.Model, cfg.Embedding.Ollama.BaseURL)
		if err != nil {
			return nil, err
		}
	case "huggingface":
		base = embeddings.NewHuggingFaceModel(
			os.Getenv(cfg.Embedding.HuggingFace.APIKeyEnv),
			cfg.Embedding.HuggingFace.Model,
			cfg.Embedding.HuggingFace.BaseURL)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	retrying := embeddings.NewRetryingModel(base, cfg.Embedding.RetryAttempts, 0, cfg.EmbeddingTimeout(), log)
	return embeddings.NewBatchEmbedder(retrying, cfg.Embedding.BatchSize, cfg.Embedding.MaxParallelism), nil
}

// buildLLM selects the answer-generation provider. An empty provider leaves
// answer generation disabled.
func buildLLM(cfg *config.AppConfig) (interfaces.LLM, error) {
	switch cfg.LLM.Provider {
	case "":
		return nil, nil
	case "openai":
		return llms.NewOpenAILLM(os.Getenv(cfg.LLM.OpenAI.APIKeyEnv), cfg.LLM.OpenAI.Model), nil
	case "ollama":
		return llms.NewOllamaLLM(cfg.LLM.Ollama.Model, cfg.LLM.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func buildReranker(cfg *config.AppConfig, log *logger.Logger) interfaces.Reranker {
	if !cfg.Reranker.Enabled {
		return nil
	}
	apiKey := os.Getenv(cfg.Reranker.APIKeyEnv)
	if apiKey == "" {
		log.Warn("reranker enabled but its API key is not set, continuing without reranking")
		return nil
	}
	return rerankers.NewCohereReranker(apiKey, cfg.Reranker.Model, cfg.Reranker.TopN)
}
