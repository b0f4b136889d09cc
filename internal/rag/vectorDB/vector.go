package vectorDB

import (
	"context"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/permission"
)

// Payload keys shared by every backend.
const (
	FieldContent         = "content"
	FieldPageNum         = "page_num"
	FieldSourceDocId     = "source_doc_id"
	FieldChunkOrder      = "chunk_order"
	FieldChunkId         = "chunk_id"
	FieldIngestedAt      = "ingested_at"
	FieldContentHash     = "content_hash"
	FieldAccessLevel     = "access_level"
	FieldOwnerDepartment = "owner_department"
)

// Index stores embedded chunks with their denormalized permission fields.
type Index interface {
	Dimension() int
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, chunks []commonModels.DocChunk) error
	// Search returns at most limit chunks ranked by similarity. A non-nil
	// filter is evaluated by the backend before ranking.
	Search(ctx context.Context, vector []float32, limit int, filter *permission.Filter) ([]commonModels.RetrievedChunk, error)
	DeleteDocument(ctx context.Context, docId string) error
	CountDocumentChunks(ctx context.Context, docId string) (int, error)
	ListDocumentIds(ctx context.Context) ([]string, error)
	// Reset drops every chunk and recreates an empty collection.
	Reset(ctx context.Context) error
	Close() error
}
