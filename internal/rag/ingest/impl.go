package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/metrics"
	"github.com/akolanti/DocVault/internal/rag/embedding"
	"github.com/google/uuid"
)

// IndexDocument extracts, chunks, embeds and upserts one stored document.
// It returns ErrNothingToIndex when extraction fails or yields no text, and
// leaves any earlier index entries for doc untouched in that case.
func (p *Pipeline) IndexDocument(ctx context.Context, doc commonModels.Document, content []byte) (int, error) {
	return p.indexDocument(ctx, doc, content, nil)
}

// indexDocument embeds every chunk before writing any of them. beforeUpsert
// runs once, after the last embedding and before the first upsert.
func (p *Pipeline) indexDocument(ctx context.Context, doc commonModels.Document, content []byte, beforeUpsert func(ctx context.Context) error) (int, error) {
	log := logger.WithTrace(ctx).With("file", doc.Id)

	pages, err := p.executeExtractionStep(ctx, doc.Id, content)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNothingToIndex, err)
	}
	log.Debug("Processing document", "pages", len(pages), "type", doc.ContentType)

	chunks := PrepareChunks(pages, doc, p.opts.ChunkSize, p.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, ErrNothingToIndex
	}
	log.Debug("Processing document", "chunks", len(chunks))

	if err = p.embedBatches(ctx, chunks); err != nil {
		return 0, err
	}
	if beforeUpsert != nil {
		if err = beforeUpsert(ctx); err != nil {
			return 0, err
		}
	}
	if err = p.upsertBatches(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// PrepareChunks splits every page and stamps each piece with the document's
// permission fields. Whitespace-only pieces are dropped.
func PrepareChunks(pages []Page, doc commonModels.Document, chunkSize int, overlap int) []commonModels.DocChunk {
	var allChunks []commonModels.DocChunk
	for _, page := range pages {
		order := 0
		for _, text := range splitTextIntoChunks(page.Content, chunkSize, overlap) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			allChunks = append(allChunks, commonModels.DocChunk{
				Doc:            doc,
				ChunkId:        ChunkID(doc, page.Number, order),
				Chunk:          text,
				PageNum:        page.Number,
				ChunkPageOrder: order,
			})
			order++
		}
	}
	return allChunks
}

// ChunkID is stable for a given document content, page and position, so
// re-running an ingest overwrites rather than duplicates points.
func ChunkID(doc commonModels.Document, page int, order int) string {
	key := strings.Join([]string{doc.Id, doc.ContentHash, strconv.Itoa(page), strconv.Itoa(order)}, "|")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// BatchIngest embeds and upserts chunks in groups of the configured batch size.
func (p *Pipeline) BatchIngest(ctx context.Context, chunks []commonModels.DocChunk) error {
	if err := p.embedBatches(ctx, chunks); err != nil {
		return err
	}
	return p.upsertBatches(ctx, chunks)
}

func (p *Pipeline) embedBatches(ctx context.Context, chunks []commonModels.DocChunk) error {
	for start := 0; start < len(chunks); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(chunks))
		currentBatch := chunks[start:end]

		texts := make([]string, len(currentBatch))
		for i, c := range currentBatch {
			texts[i] = c.Chunk
		}

		vectors, err := p.executeEmbeddingStep(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}
		for i := range currentBatch {
			currentBatch[i].Embedding = vectors[i]
		}
	}
	return nil
}

func (p *Pipeline) upsertBatches(ctx context.Context, chunks []commonModels.DocChunk) error {
	for start := 0; start < len(chunks); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(chunks))
		if err := p.executeUpsertStep(ctx, chunks[start:end]); err != nil {
			return fmt.Errorf("upserting batch failed: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) executeExtractionStep(ctx context.Context, name string, content []byte) ([]Page, error) {
	start := time.Now()
	pages, err := p.deps.Partitioner.Extract(ctx, name, content)
	metrics.CaptureExecutionMetrics("extraction", time.Since(start))
	return pages, err
}

func (p *Pipeline) executeEmbeddingStep(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := p.deps.Embedder.BatchEmbedding(ctx, texts)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		return nil, err
	}
	if err = embedding.CheckDimensions(vectors, len(texts), p.deps.Index.Dimension()); err != nil {
		return nil, fmt.Errorf("%w: %w", commonModels.ErrConfiguration, err)
	}
	return vectors, nil
}

func (p *Pipeline) executeUpsertStep(ctx context.Context, chunks []commonModels.DocChunk) error {
	start := time.Now()
	err := p.deps.Index.Upsert(ctx, chunks)
	metrics.CaptureExecutionMetrics("vectorDB", time.Since(start))
	return err
}
