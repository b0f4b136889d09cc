package qdrantDB

import (
	"context"
	"fmt"
	"sort"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/permission"
	"github.com/akolanti/DocVault/internal/rag/vectorDB"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const scrollPageSize = 256

var logger = logger_i.NewLogger("Qdrant")

// keyword indexes so permission filters are evaluated inside qdrant
var indexedFields = []string{vectorDB.FieldAccessLevel, vectorDB.FieldOwnerDepartment, vectorDB.FieldSourceDocId}

type Options struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	PoolSize   int
	Collection string
	Dimension  int
}

type ClientHolder struct {
	QObj       *qdrant.Client
	collection string
	dimension  int
}

// New connects to qdrant, creates the collection if needed and verifies that
// an existing collection has the configured vector size.
func New(ctx context.Context, opts Options) (*ClientHolder, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("%w: empty collection name", commonModels.ErrConfiguration)
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     opts.Host,
		Port:     opts.Port,
		APIKey:   opts.APIKey,
		UseTLS:   opts.UseTLS,
		PoolSize: uint(opts.PoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant at %s:%d: %v", commonModels.ErrConfiguration, opts.Host, opts.Port, err)
	}

	db := &ClientHolder{QObj: client, collection: opts.Collection, dimension: opts.Dimension}
	if err = db.EnsureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.Info("Qdrant collection ready", "collection", opts.Collection, "dimension", opts.Dimension)
	return db, nil
}

func (db *ClientHolder) Dimension() int {
	return db.dimension
}

func (db *ClientHolder) Close() error {
	logger.Info("Closing Qdrant")
	return db.QObj.Close()
}

func (db *ClientHolder) EnsureCollection(ctx context.Context) error {
	exists, err := db.QObj.CollectionExists(ctx, db.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %s: %v", commonModels.ErrConfiguration, db.collection, err)
	}
	if exists {
		return db.checkDimension(ctx)
	}

	err = db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(db.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", db.collection, err)
	}

	for _, field := range indexedFields {
		_, err = db.QObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: db.collection,
			FieldName:      field,
			FieldType:      qdrant.PtrOf(qdrant.FieldType_FieldTypeKeyword),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("creating payload index %s: %w", field, err)
		}
	}
	logger.Info("Created collection", "collection", db.collection)
	return nil
}

func (db *ClientHolder) checkDimension(ctx context.Context) error {
	info, err := db.QObj.GetCollectionInfo(ctx, db.collection)
	if err != nil {
		return fmt.Errorf("%w: reading collection %s: %v", commonModels.ErrConfiguration, db.collection, err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != 0 && size != uint64(db.dimension) {
		return fmt.Errorf("%w: %w: collection %s has %d dimensions, embedder produces %d",
			commonModels.ErrConfiguration, commonModels.ErrDimensionMismatch, db.collection, size, db.dimension)
	}
	return nil
}

func (db *ClientHolder) Upsert(ctx context.Context, chunks []commonModels.DocChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))

	for i, chunk := range chunks {
		if len(chunk.Embedding) != db.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
				commonModels.ErrDimensionMismatch, chunk.ChunkId, len(chunk.Embedding), db.dimension)
		}
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkId),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				vectorDB.FieldContent:         chunk.Chunk,
				vectorDB.FieldPageNum:         chunk.PageNum,
				vectorDB.FieldSourceDocId:     chunk.Doc.Id,
				vectorDB.FieldChunkOrder:      chunk.ChunkPageOrder,
				vectorDB.FieldChunkId:         chunk.ChunkId,
				vectorDB.FieldIngestedAt:      chunk.Doc.UploadTimestamp.Unix(),
				vectorDB.FieldContentHash:     chunk.Doc.ContentHash,
				vectorDB.FieldAccessLevel:     string(chunk.Doc.AccessLevel),
				vectorDB.FieldOwnerDepartment: chunk.Doc.OwnerDepartment,
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, vector []float32, limit int, filter *permission.Filter) ([]commonModels.RetrievedChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	chunks := make([]commonModels.RetrievedChunk, 0, len(result))
	for _, hit := range result {
		payload := hit.GetPayload()
		chunks = append(chunks, commonModels.RetrievedChunk{
			ChunkId:          payload[vectorDB.FieldChunkId].GetStringValue(),
			SourceDocumentId: payload[vectorDB.FieldSourceDocId].GetStringValue(),
			Text:             payload[vectorDB.FieldContent].GetStringValue(),
			AccessLevel:      commonModels.AccessLevel(payload[vectorDB.FieldAccessLevel].GetStringValue()),
			OwnerDepartment:  payload[vectorDB.FieldOwnerDepartment].GetStringValue(),
			Score:            hit.GetScore(),
		})
	}
	loggr.Debug("Qdrant search", "limit", limit, "hits", len(chunks))
	return chunks, nil
}

func (db *ClientHolder) DeleteDocument(ctx context.Context, docId string) error {
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: documentFilter(docId),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting chunks of %s: %w", docId, err)
	}
	return nil
}

func (db *ClientHolder) CountDocumentChunks(ctx context.Context, docId string) (int, error) {
	count, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Filter:         documentFilter(docId),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// ListDocumentIds scrolls the whole collection and returns the distinct
// source document ids, sorted.
func (db *ClientHolder) ListDocumentIds(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var offset *qdrant.PointId
	for {
		points, next, err := db.QObj.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: db.collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, err
		}
		for _, point := range points {
			seen[point.GetPayload()[vectorDB.FieldSourceDocId].GetStringValue()] = struct{}{}
		}
		if next == nil || len(points) == 0 {
			break
		}
		offset = next
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (db *ClientHolder) Reset(ctx context.Context) error {
	err := db.QObj.DeleteCollection(ctx, db.collection)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("dropping collection %s: %w", db.collection, err)
	}
	logger.Warn("Collection dropped", "collection", db.collection)
	return db.EnsureCollection(ctx)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func keywordCondition(field string, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: field,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func documentFilter(docId string) *qdrant.Filter {
	return &qdrant.Filter{Must: []*qdrant.Condition{keywordCondition(vectorDB.FieldSourceDocId, docId)}}
}

// toQdrantFilter turns the permission clauses into a Should of nested Musts.
func toQdrantFilter(filter *permission.Filter) *qdrant.Filter {
	if filter == nil {
		return nil
	}
	clauses := filter.Clauses()
	should := make([]*qdrant.Condition, 0, len(clauses))
	for _, clause := range clauses {
		must := []*qdrant.Condition{keywordCondition(vectorDB.FieldAccessLevel, string(clause.AccessLevel))}
		if clause.Department != "" {
			must = append(must, keywordCondition(vectorDB.FieldOwnerDepartment, clause.Department))
		}
		should = append(should, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Filter{
				Filter: &qdrant.Filter{Must: must},
			},
		})
	}
	return &qdrant.Filter{Should: should}
}
