package chromemDB

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/permission"
	"github.com/akolanti/DocVault/internal/rag/vectorDB"
	"github.com/akolanti/DocVault/pkg/logger_i"
	chromem "github.com/philippgille/chromem-go"
)

var logger = logger_i.NewLogger("chromem")

var errEmbeddingNotSupported = errors.New("chromem index stores precomputed embeddings only")

type Options struct {
	// Path is the persistence directory; empty keeps everything in memory.
	Path       string
	Compress   bool
	Collection string
	Dimension  int
}

// Index is an embedded vector index. Permission filters are pushed down as
// one equality filtered query per visible clause.
type Index struct {
	db         *chromem.DB
	collection string
	dimension  int

	// guards swapping the collection on Reset
	mu   sync.RWMutex
	coll *chromem.Collection
}

func New(ctx context.Context, opts Options) (*Index, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("%w: empty collection name", commonModels.ErrConfiguration)
	}

	var db *chromem.DB
	if opts.Path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", opts.Path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(opts.Path, opts.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: opening chromem db at %s: %v", commonModels.ErrConfiguration, opts.Path, err)
		}
	}

	index := &Index{db: db, collection: opts.Collection, dimension: opts.Dimension}
	if err := index.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	logger.Info("Chromem collection ready", "collection", opts.Collection, "path", opts.Path, "chunks", index.current().Count())
	return index, nil
}

func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errEmbeddingNotSupported
}

func (i *Index) current() *chromem.Collection {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.coll
}

func (i *Index) Dimension() int {
	return i.dimension
}

func (i *Index) Close() error {
	return nil
}

func (i *Index) EnsureCollection(ctx context.Context) error {
	coll, err := i.db.GetOrCreateCollection(i.collection, map[string]string{"dimension": strconv.Itoa(i.dimension)}, noEmbedding)
	if err != nil {
		return fmt.Errorf("%w: opening collection %s: %v", commonModels.ErrConfiguration, i.collection, err)
	}
	i.mu.Lock()
	i.coll = coll
	i.mu.Unlock()
	return i.checkDimension(ctx)
}

// checkDimension probes a non-empty collection with a vector of the
// configured size; chromem rejects vectors of a different length.
func (i *Index) checkDimension(ctx context.Context) error {
	coll := i.current()
	if coll.Count() == 0 {
		return nil
	}
	results, err := coll.QueryEmbedding(ctx, i.probe(), 1, nil, nil)
	if err == nil && len(results) > 0 && len(results[0].Embedding) != i.dimension {
		err = fmt.Errorf("stored vectors have %d dimensions", len(results[0].Embedding))
	}
	if err != nil {
		return fmt.Errorf("%w: %w: collection %s does not hold %d dimensional vectors: %v",
			commonModels.ErrConfiguration, commonModels.ErrDimensionMismatch, i.collection, i.dimension, err)
	}
	return nil
}

func (i *Index) probe() []float32 {
	vector := make([]float32, i.dimension)
	vector[0] = 1
	return vector
}

func (i *Index) Upsert(ctx context.Context, chunks []commonModels.DocChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for n, chunk := range chunks {
		if len(chunk.Embedding) != i.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
				commonModels.ErrDimensionMismatch, chunk.ChunkId, len(chunk.Embedding), i.dimension)
		}
		docs[n] = chromem.Document{
			ID:        chunk.ChunkId,
			Content:   chunk.Chunk,
			Embedding: chunk.Embedding,
			Metadata: map[string]string{
				vectorDB.FieldPageNum:         strconv.Itoa(chunk.PageNum),
				vectorDB.FieldSourceDocId:     chunk.Doc.Id,
				vectorDB.FieldChunkOrder:      strconv.Itoa(chunk.ChunkPageOrder),
				vectorDB.FieldChunkId:         chunk.ChunkId,
				vectorDB.FieldIngestedAt:      strconv.FormatInt(chunk.Doc.UploadTimestamp.Unix(), 10),
				vectorDB.FieldContentHash:     chunk.Doc.ContentHash,
				vectorDB.FieldAccessLevel:     string(chunk.Doc.AccessLevel),
				vectorDB.FieldOwnerDepartment: chunk.Doc.OwnerDepartment,
			},
		}
	}
	// chromem replaces documents with an existing ID
	if err := i.current().AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("chromem upsert failed: %w", err)
	}
	return nil
}

func (i *Index) Search(ctx context.Context, vector []float32, limit int, filter *permission.Filter) ([]commonModels.RetrievedChunk, error) {
	coll := i.current()
	total := coll.Count()
	if limit <= 0 || total == 0 {
		return nil, nil
	}
	n := min(limit, total)

	var wheres []map[string]string
	if filter == nil {
		wheres = []map[string]string{nil}
	} else {
		for _, clause := range filter.Clauses() {
			where := map[string]string{vectorDB.FieldAccessLevel: string(clause.AccessLevel)}
			if clause.Department != "" {
				where[vectorDB.FieldOwnerDepartment] = clause.Department
			}
			wheres = append(wheres, where)
		}
	}

	var merged []commonModels.RetrievedChunk
	for _, where := range wheres {
		results, err := coll.QueryEmbedding(ctx, vector, n, where, nil)
		if err != nil {
			return nil, fmt.Errorf("chromem query failed: %w", err)
		}
		for _, r := range results {
			merged = append(merged, toRetrieved(r))
		}
	}

	sort.SliceStable(merged, func(a, b int) bool { return merged[a].Score > merged[b].Score })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	logger.With("traceId", ctx.Value(config.TRACE_ID_KEY)).Debug("Chromem search", "limit", limit, "hits", len(merged))
	return merged, nil
}

func toRetrieved(r chromem.Result) commonModels.RetrievedChunk {
	return commonModels.RetrievedChunk{
		ChunkId:          r.ID,
		SourceDocumentId: r.Metadata[vectorDB.FieldSourceDocId],
		Text:             r.Content,
		AccessLevel:      commonModels.AccessLevel(r.Metadata[vectorDB.FieldAccessLevel]),
		OwnerDepartment:  r.Metadata[vectorDB.FieldOwnerDepartment],
		Score:            r.Similarity,
	}
}

func (i *Index) DeleteDocument(ctx context.Context, docId string) error {
	coll := i.current()
	if coll.Count() == 0 {
		return nil
	}
	if err := coll.Delete(ctx, map[string]string{vectorDB.FieldSourceDocId: docId}, nil); err != nil {
		return fmt.Errorf("deleting chunks of %s: %w", docId, err)
	}
	return nil
}

func (i *Index) CountDocumentChunks(ctx context.Context, docId string) (int, error) {
	results, err := i.all(ctx, map[string]string{vectorDB.FieldSourceDocId: docId})
	return len(results), err
}

func (i *Index) ListDocumentIds(ctx context.Context) ([]string, error) {
	results, err := i.all(ctx, nil)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, r := range results {
		seen[r.Metadata[vectorDB.FieldSourceDocId]] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// all returns every chunk matching where. chromem has no scroll API, so this
// ranks the whole collection against a probe vector.
func (i *Index) all(ctx context.Context, where map[string]string) ([]chromem.Result, error) {
	coll := i.current()
	total := coll.Count()
	if total == 0 {
		return nil, nil
	}
	return coll.QueryEmbedding(ctx, i.probe(), total, where, nil)
}

func (i *Index) Reset(ctx context.Context) error {
	if err := i.db.DeleteCollection(i.collection); err != nil {
		return fmt.Errorf("dropping collection %s: %w", i.collection, err)
	}
	logger.Warn("Collection dropped", "collection", i.collection)
	return i.EnsureCollection(ctx)
}
