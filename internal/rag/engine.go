package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/metrics"
	"github.com/akolanti/DocVault/internal/permission"
	"github.com/akolanti/DocVault/internal/rag/embedding"
	"github.com/akolanti/DocVault/internal/rag/llm"
	"github.com/akolanti/DocVault/internal/rag/vectorDB"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

type Options struct {
	TopK            int
	OverfetchFactor int
	MaxFetch        int
	DeniedMessage   string
	PromptTemplate  string
	Timeout         time.Duration
}

func DefaultOptions() Options {
	return Options{
		TopK:            config.TopK,
		OverfetchFactor: config.OverfetchFactor,
		MaxFetch:        config.MaxFetch,
		DeniedMessage:   config.AccessDeniedMessage,
		PromptTemplate:  config.GroundedPromptTemplate,
		Timeout:         config.LLMConnectionTimeout,
	}
}

// Engine answers questions from the chunks a department may see.
type Engine struct {
	index       vectorDB.Index
	llmProvider llm.Provider
	embedder    embedding.Embedder
	opts        Options
	logger      *logger_i.Logger
}

func NewEngine(index vectorDB.Index, llmProvider llm.Provider, embedder embedding.Embedder, opts Options) (*Engine, error) {
	if index == nil || llmProvider == nil || embedder == nil {
		return nil, fmt.Errorf("%w: query engine is missing a collaborator", commonModels.ErrConfiguration)
	}
	if embedder.Dimension() != index.Dimension() {
		return nil, fmt.Errorf("%w: %w: embedder produces %d, index expects %d", commonModels.ErrConfiguration,
			commonModels.ErrDimensionMismatch, embedder.Dimension(), index.Dimension())
	}
	if opts.TopK < 1 {
		return nil, fmt.Errorf("%w: top_k must be at least 1", commonModels.ErrConfiguration)
	}
	if opts.OverfetchFactor < 1 {
		opts.OverfetchFactor = 1
	}
	if opts.MaxFetch < opts.TopK {
		opts.MaxFetch = opts.TopK
	}
	if opts.DeniedMessage == "" {
		opts.DeniedMessage = config.AccessDeniedMessage
	}
	if strings.Count(opts.PromptTemplate, "%s") != 2 {
		return nil, fmt.Errorf("%w: prompt template needs a context and a question placeholder", commonModels.ErrConfiguration)
	}
	return &Engine{
		index:       index,
		llmProvider: llmProvider,
		embedder:    embedder,
		opts:        opts,
		logger:      logger_i.NewLogger("RAG Engine"),
	}, nil
}

// Answer embeds the question, retrieves the top visible chunks and asks the
// LLM to answer from them only. With nothing visible it returns the fixed
// denial without calling the LLM.
func (e *Engine) Answer(ctx context.Context, question string, department string) (commonModels.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return commonModels.QueryResult{}, commonModels.ErrEmptyQuestion
	}
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	log := e.logger.WithTrace(ctx).With(config.DEPARTMENT_KEY, department)

	vector, err := e.executeEmbeddingStep(ctx, question)
	if err != nil {
		log.Error("EMBEDDING_FAILURE", "error", err)
		return commonModels.QueryResult{}, fmt.Errorf("%w: embedding question: %w", commonModels.ErrRetrievalFailed, err)
	}
	if len(vector) != e.index.Dimension() {
		return commonModels.QueryResult{}, fmt.Errorf("%w: %w: query vector has %d dimensions, index expects %d",
			commonModels.ErrConfiguration, commonModels.ErrDimensionMismatch, len(vector), e.index.Dimension())
	}

	visible, err := e.executeVectorSearchStep(ctx, vector, department)
	if err != nil {
		log.Error("VECTOR_DB_FAILURE", "error", err)
		return commonModels.QueryResult{}, fmt.Errorf("%w: searching index: %w", commonModels.ErrRetrievalFailed, err)
	}
	if len(visible) == 0 {
		metrics.CaptureRetrievalDenied()
		log.Info("No visible context, returning denial")
		return commonModels.QueryResult{Answer: e.opts.DeniedMessage, Sources: []string{}}, nil
	}

	sources := UniqueSources(visible)
	prompt := BuildPrompt(e.opts.PromptTemplate, visible, question)
	log.Debug("Grounded prompt ready", "chunks", len(visible), "sources", sources)

	answer, err := e.executeLLMStep(ctx, prompt)
	if err != nil {
		log.Error("LLM_GENERATION_FAILURE", "error", err)
		return commonModels.QueryResult{}, fmt.Errorf("%w: generating answer: %w", commonModels.ErrRetrievalFailed, err)
	}
	return commonModels.QueryResult{Answer: answer, Sources: sources}, nil
}

// retrieve asks the index for more than TopK and re-checks every hit, growing
// the fetch until TopK visible chunks are found, the index runs out or the
// MaxFetch ceiling is reached.
func (e *Engine) retrieve(ctx context.Context, vector []float32, department string) ([]commonModels.RetrievedChunk, error) {
	filter := permission.ForDepartment(department)
	fetch := min(e.opts.TopK*e.opts.OverfetchFactor, e.opts.MaxFetch)

	for {
		results, err := e.index.Search(ctx, vector, fetch, filter)
		if err != nil {
			return nil, err
		}

		visible := make([]commonModels.RetrievedChunk, 0, min(len(results), e.opts.TopK))
		for _, r := range results {
			if filter.Allows(r) {
				visible = append(visible, r)
			}
		}
		if dropped := len(results) - len(visible); dropped > 0 {
			metrics.CaptureFilteredChunks(dropped)
		}

		if len(visible) >= e.opts.TopK || len(results) < fetch || fetch >= e.opts.MaxFetch {
			return visible[:min(len(visible), e.opts.TopK)], nil
		}
		fetch = min(fetch*2, e.opts.MaxFetch)
	}
}

// UniqueSources lists each source document once, in ranking order.
func UniqueSources(chunks []commonModels.RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.SourceDocumentId]; ok {
			continue
		}
		seen[c.SourceDocumentId] = struct{}{}
		sources = append(sources, c.SourceDocumentId)
	}
	return sources
}

func BuildPrompt(template string, chunks []commonModels.RetrievedChunk, question string) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return fmt.Sprintf(template, strings.Join(texts, "\n\n"), question)
}
