package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/customHttpClient"
	"github.com/akolanti/DocVault/internal/data/redisStore"
	"github.com/akolanti/DocVault/internal/data/store"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/domain/jobModel"
	"github.com/akolanti/DocVault/internal/rag"
	"github.com/akolanti/DocVault/internal/rag/embedding"
	"github.com/akolanti/DocVault/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/DocVault/internal/rag/embedding/ollamaEmbedding"
	"github.com/akolanti/DocVault/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/DocVault/internal/rag/ingest"
	"github.com/akolanti/DocVault/internal/rag/lifecycle"
	"github.com/akolanti/DocVault/internal/rag/llm"
	"github.com/akolanti/DocVault/internal/rag/llm/gemini"
	"github.com/akolanti/DocVault/internal/rag/llm/ollama"
	"github.com/akolanti/DocVault/internal/rag/llm/openaiLLM"
	"github.com/akolanti/DocVault/internal/rag/vectorDB"
	"github.com/akolanti/DocVault/internal/rag/vectorDB/chromemDB"
	"github.com/akolanti/DocVault/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

var logger = logger_i.NewLogger("bootstrap")

type BuildOptions struct {
	// SkipLLM leaves Engine nil; commands that never answer questions use it.
	SkipLLM bool
}

// App holds every long lived component, wired from one Config.
type App struct {
	Config   *config.Config
	Blobs    commonModels.BlobStore
	Metadata commonModels.MetadataStore
	Index    vectorDB.Index
	Embedder embedding.Embedder
	LLM      llm.Provider
	Pipeline *ingest.Pipeline
	Engine   *rag.Engine
	Library  *lifecycle.Manager
}

// Build connects to the configured backends. A dimension mismatch between the
// embedder and the index fails here, before anything is served.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*App, error) {
	a := &App{Config: cfg}

	blobs, err := store.NewFileBlobStore(cfg.Storage.DocsDir)
	if err != nil {
		return nil, err
	}
	a.Blobs = blobs

	if a.Metadata, err = NewMetadataStore(ctx, cfg); err != nil {
		return nil, err
	}
	if a.Embedder, err = NewEmbedder(ctx, cfg); err != nil {
		return nil, err
	}
	if a.Index, err = NewIndex(ctx, cfg); err != nil {
		return nil, err
	}

	a.Pipeline, err = ingest.NewPipeline(ingest.Dependencies{
		Blobs:       a.Blobs,
		Metadata:    a.Metadata,
		Index:       a.Index,
		Embedder:    a.Embedder,
		Partitioner: ingest.NewFilePartitioner(filepath.Join(os.TempDir(), "docvault-extract")),
	}, IngestOptions(cfg))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Library = lifecycle.NewManager(a.Blobs, a.Metadata, a.Index, a.Pipeline, cfg.Ingest.Extensions)

	if opts.SkipLLM {
		return a, nil
	}
	if a.LLM, err = NewLLM(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.Engine, err = rag.NewEngine(a.Index, a.LLM, a.Embedder, EngineOptions(cfg)); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) Close() error {
	if a.Index == nil {
		return nil
	}
	return a.Index.Close()
}

func IngestOptions(cfg *config.Config) ingest.Options {
	return ingest.Options{
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		BatchSize:      cfg.Ingest.BatchSize,
		Parallelism:    cfg.Ingest.Parallelism,
		OnNameConflict: cfg.Ingest.OnNameConflict,
		Departments:    cfg.Access.Departments,
		Extensions:     cfg.Ingest.Extensions,
	}
}

func EngineOptions(cfg *config.Config) rag.Options {
	return rag.Options{
		TopK:            cfg.Retrieval.TopK,
		OverfetchFactor: cfg.Retrieval.OverfetchFactor,
		MaxFetch:        cfg.Retrieval.MaxFetch,
		DeniedMessage:   cfg.Retrieval.DeniedMessage,
		PromptTemplate:  cfg.Retrieval.PromptTemplate,
		Timeout:         cfg.LLM.Timeout,
	}
}

func NewIndex(ctx context.Context, cfg *config.Config) (vectorDB.Index, error) {
	switch cfg.Index.Backend {
	case "qdrant":
		timeout := cfg.Index.QdrantTimeout
		if timeout <= 0 {
			timeout = config.QdrantConnectionTimeout
		}
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return qdrantDB.New(connectCtx, qdrantDB.Options{
			Host:       cfg.Index.QdrantHost,
			Port:       cfg.Index.QdrantPort,
			APIKey:     cfg.Index.QdrantAPIKey,
			UseTLS:     cfg.Index.QdrantUseTLS,
			PoolSize:   cfg.Index.QdrantPoolSize,
			Collection: cfg.Index.Collection,
			Dimension:  cfg.Index.Dimension,
		})
	case "chromem":
		path := cfg.Index.ChromemPath
		if cfg.Index.ChromemInMemory {
			path = ""
		}
		return chromemDB.New(ctx, chromemDB.Options{
			Path:       path,
			Compress:   cfg.Index.ChromemCompress,
			Collection: cfg.Index.Collection,
			Dimension:  cfg.Index.Dimension,
		})
	}
	return nil, fmt.Errorf("%w: unknown index backend %q", commonModels.ErrConfiguration, cfg.Index.Backend)
}

func NewEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "google":
		return googleEmbedding.New(ctx, googleEmbedding.Options{
			APIKey:     e.APIKey,
			Model:      modelFor(e.Model, config.OllamaEmbeddingModel, config.GoogleEmbeddingModel),
			Dimension:  cfg.Index.Dimension,
			BatchSize:  cfg.Ingest.BatchSize,
			MaxRetries: e.MaxRetries,
		})
	case "ollama":
		return ollamaEmbedding.New(ollamaEmbedding.Options{
			ServerURL:  e.BaseURL,
			Model:      e.Model,
			Dimension:  cfg.Index.Dimension,
			BatchSize:  cfg.Ingest.BatchSize,
			MaxRetries: e.MaxRetries,
			HTTPClient: customHttpClient.NewClient(cfg.LLM.Timeout),
		})
	case "openai":
		return openaiEmbedding.New(openaiEmbedding.Options{
			APIKey:     e.APIKey,
			BaseURL:    baseURLFor(e.BaseURL),
			Model:      modelFor(e.Model, config.OllamaEmbeddingModel, config.OpenAIEmbeddingModel),
			Dimension:  cfg.Index.Dimension,
			BatchSize:  cfg.Ingest.BatchSize,
			MaxRetries: e.MaxRetries,
			HTTPClient: customHttpClient.NewClient(cfg.LLM.Timeout),
		}), nil
	}
	return nil, fmt.Errorf("%w: unknown embedding provider %q", commonModels.ErrConfiguration, e.Provider)
}

func NewLLM(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	l := cfg.LLM
	switch l.Provider {
	case "gemini":
		return gemini.New(ctx, l.APIKey, modelFor(l.Model, config.OllamaModelName, config.GeminiModelName), l.Temperature)
	case "ollama":
		return ollama.New(l.BaseURL, l.Model, l.Temperature, customHttpClient.NewClient(l.Timeout))
	case "openai":
		return openaiLLM.New(l.APIKey, baseURLFor(l.BaseURL), modelFor(l.Model, config.OllamaModelName, config.OpenAIModelName),
			l.Temperature, customHttpClient.NewClient(l.Timeout)), nil
	}
	return nil, fmt.Errorf("%w: unknown llm provider %q", commonModels.ErrConfiguration, l.Provider)
}

func NewMetadataStore(ctx context.Context, cfg *config.Config) (commonModels.MetadataStore, error) {
	switch cfg.Storage.MetadataBackend {
	case "sidecar":
		return store.NewSidecarMetadataStore(cfg.Storage.DocsDir, cfg.Access.DefaultDepartment)
	case "redis":
		rs, err := redisStore.GetRedisStore(ctx, redisStore.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       config.RedisMetadataStore,
		})
		if err != nil {
			// metadata decides visibility, so there is no fallback here
			return nil, fmt.Errorf("%w: metadata store: %v", commonModels.ErrConfiguration, err)
		}
		return store.NewRedisMetadataStore(rs, cfg.Access.DefaultDepartment), nil
	}
	return nil, fmt.Errorf("%w: unknown metadata backend %q", commonModels.ErrConfiguration, cfg.Storage.MetadataBackend)
}

// NewJobStore prefers Redis and falls back to memory when Redis is offline.
func NewJobStore(ctx context.Context, cfg *config.Config) jobModel.JobStore {
	rs, err := redisStore.GetRedisStore(ctx, redisStore.Options{
		Addr:     cfg.Storage.RedisAddr,
		Password: cfg.Storage.RedisPassword,
		DB:       config.RedisJobStore,
	})
	if err != nil {
		logger.Warn("Redis job store offline, keeping jobs in memory", "err", err)
		return store.NewInMemoryJobStore(cfg.Jobs.RedisTTL)
	}
	return store.NewRedisJobStore(rs, cfg.Jobs.RedisTTL)
}

// modelFor swaps the compiled-in ollama default for the provider's own
// default, so switching provider alone gives a working model name.
func modelFor(model string, ollamaDefault string, providerDefault string) string {
	if model == "" || model == ollamaDefault {
		return providerDefault
	}
	return model
}

// baseURLFor drops the ollama default URL for hosted providers.
func baseURLFor(url string) string {
	if url == config.OllamaServerURL {
		return ""
	}
	return url
}
