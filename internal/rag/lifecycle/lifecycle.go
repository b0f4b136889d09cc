package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/data/store"
	"github.com/akolanti/DocVault/internal/dedup"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/metrics"
	"github.com/akolanti/DocVault/internal/permission"
	"github.com/akolanti/DocVault/internal/rag/ingest"
	"github.com/akolanti/DocVault/internal/rag/vectorDB"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Lifecycle")

// Indexer rebuilds the index entries of one stored document.
type Indexer interface {
	IndexDocument(ctx context.Context, doc commonModels.Document, content []byte) (int, error)
}

// Manager owns operations that span the blob store, the metadata store and
// the index. None of them is atomic.
type Manager struct {
	blobs      commonModels.BlobStore
	metas      commonModels.MetadataStore
	index      vectorDB.Index
	indexer    Indexer
	extensions []string
}

func NewManager(blobs commonModels.BlobStore, metas commonModels.MetadataStore, index vectorDB.Index, indexer Indexer, extensions []string) *Manager {
	if len(extensions) == 0 {
		extensions = config.SupportedExtensions
	}
	return &Manager{blobs: blobs, metas: metas, index: index, indexer: indexer, extensions: extensions}
}

// Delete removes the blob, then the metadata, then the index entries. An index
// failure is reported as a warning; the document is still gone from storage.
// Deleted is true iff a blob existed and the department may see it; a hidden
// document answers exactly like a missing one.
func (m *Manager) Delete(ctx context.Context, name string, department string) (commonModels.DeleteResult, error) {
	log := logger.WithTrace(ctx).With("file", name)
	if department == "" {
		return commonModels.DeleteResult{}, commonModels.ErrDepartmentRequired
	}
	if err := store.ValidateName(name); err != nil {
		return commonModels.DeleteResult{}, err
	}

	meta, err := m.metas.Get(ctx, name)
	if err != nil {
		return commonModels.DeleteResult{}, fmt.Errorf("reading metadata: %w", err)
	}
	if !permission.IsVisible(meta.AccessLevel, meta.OwnerDepartment, department) {
		log.Warn("Delete refused outside the requester's visibility", "department", department)
		return commonModels.DeleteResult{}, nil
	}

	existed, err := m.blobs.Delete(ctx, name)
	if err != nil {
		return commonModels.DeleteResult{}, fmt.Errorf("deleting blob: %w", err)
	}
	result := commonModels.DeleteResult{Deleted: existed}

	var metaErr error
	if _, err = m.metas.Delete(ctx, name); err != nil {
		metaErr = fmt.Errorf("deleting metadata: %w", err)
	}

	if err = m.index.DeleteDocument(ctx, name); err != nil {
		metrics.CaptureDeleteCleanupFailure()
		log.Warn("Index cleanup failed, stale chunks remain until reindex", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("index cleanup failed: %v", err))
	}

	if metaErr != nil {
		return result, metaErr
	}
	if existed {
		log.Info("Document deleted", "warnings", len(result.Warnings))
	}
	return result, nil
}

// LoadDocuments joins every stored blob with its metadata. Blobs without
// metadata get the fail-open default.
func (m *Manager) LoadDocuments(ctx context.Context) ([]commonModels.Document, error) {
	infos, err := m.blobs.List(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]commonModels.Document, 0, len(infos))
	for _, info := range infos {
		meta, err := m.metas.Get(ctx, info.Name)
		if err != nil {
			return nil, fmt.Errorf("reading metadata of %s: %w", info.Name, err)
		}
		doc := commonModels.Document{
			Id:              info.Name,
			ContentHash:     meta.ContentHash,
			SizeBytes:       info.Size,
			AccessLevel:     meta.AccessLevel,
			OwnerDepartment: meta.OwnerDepartment,
			UploadTimestamp: info.ModTime,
			ContentType:     commonModels.FileType(info.Name),
		}
		if meta.UploadTimestamp != nil {
			doc.UploadTimestamp = *meta.UploadTimestamp
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

type ListFilter struct {
	// Query matches a case-insensitive substring of the name.
	Query       string
	Departments []string
	Types       []string
}

// ListVisible returns the library as the given department may see it.
func (m *Manager) ListVisible(ctx context.Context, department string, filter ListFilter) ([]commonModels.LibraryEntry, error) {
	docs, err := m.LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	entries := make([]commonModels.LibraryEntry, 0, len(docs))
	for _, doc := range docs {
		if !ingest.SupportedExtension(doc.Id, m.extensions) {
			continue
		}
		if !permission.IsVisible(doc.AccessLevel, doc.OwnerDepartment, department) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(doc.Id), query) {
			continue
		}
		if len(filter.Departments) > 0 && !slices.Contains(filter.Departments, doc.OwnerDepartment) {
			continue
		}
		docType := typeLabel(doc.Id)
		if len(filter.Types) > 0 && !slices.ContainsFunc(filter.Types, func(t string) bool { return strings.EqualFold(t, docType) }) {
			continue
		}
		entries = append(entries, commonModels.LibraryEntry{
			Name:            doc.Id,
			OwnerDepartment: doc.OwnerDepartment,
			AccessLevel:     doc.AccessLevel,
			SizeBytes:       doc.SizeBytes,
			SizeKB:          float64(doc.SizeBytes) / 1024,
			Type:            commonModels.DocType(docType),
			ModTime:         doc.UploadTimestamp,
		})
	}
	return entries, nil
}

// typeLabel is the upper-case extension without its dot.
func typeLabel(name string) string {
	return strings.ToUpper(strings.TrimPrefix(filepath.Ext(name), "."))
}

type ReindexReport struct {
	Indexed    []string          `json:"indexed"`
	NotIndexed []string          `json:"not_indexed"`
	Failed     map[string]string `json:"failed,omitempty"`
	Chunks     int               `json:"chunks"`
}

// Reindex rebuilds the index from the stored documents using their current
// metadata. With reset the collection is dropped first.
func (m *Manager) Reindex(ctx context.Context, reset bool) (ReindexReport, error) {
	log := logger.WithTrace(ctx)
	if reset {
		if err := m.index.Reset(ctx); err != nil {
			return ReindexReport{}, fmt.Errorf("resetting index: %w", err)
		}
	}

	docs, err := m.LoadDocuments(ctx)
	if err != nil {
		return ReindexReport{}, err
	}

	report := ReindexReport{Indexed: []string{}, NotIndexed: []string{}, Failed: map[string]string{}}
	for _, doc := range docs {
		if err = ctx.Err(); err != nil {
			return report, err
		}
		if !ingest.SupportedExtension(doc.Id, m.extensions) {
			continue
		}
		chunks, err := m.reindexOne(ctx, doc)
		switch {
		case errors.Is(err, ingest.ErrNothingToIndex):
			report.NotIndexed = append(report.NotIndexed, doc.Id)
		case err != nil:
			log.Error("Reindex failed", "file", doc.Id, "error", err)
			report.Failed[doc.Id] = err.Error()
		default:
			report.Indexed = append(report.Indexed, doc.Id)
			report.Chunks += chunks
		}
	}
	log.Info("Reindex finished", "indexed", len(report.Indexed), "notIndexed", len(report.NotIndexed), "failed", len(report.Failed))
	return report, nil
}

func (m *Manager) reindexOne(ctx context.Context, doc commonModels.Document) (int, error) {
	content, err := m.blobs.Read(ctx, doc.Id)
	if err != nil {
		return 0, err
	}
	if doc.ContentHash == "" {
		doc.ContentHash = dedup.Fingerprint(content)
	}
	if err = m.index.DeleteDocument(ctx, doc.Id); err != nil {
		return 0, fmt.Errorf("purging old chunks: %w", err)
	}
	return m.indexer.IndexDocument(ctx, doc, content)
}

type ReconcileReport struct {
	// Unindexed blobs have no chunks in the index.
	Unindexed []string `json:"unindexed"`
	// OrphanSidecars describe blobs that no longer exist.
	OrphanSidecars []string `json:"orphan_sidecars"`
	// StaleVectors belong to documents that no longer exist.
	StaleVectors []string `json:"stale_vectors"`
	Fixed        bool     `json:"fixed"`
}

// Reconcile reports drift between the three stores. With fix, orphan
// metadata and stale chunks are removed; unindexed blobs need a reindex.
func (m *Manager) Reconcile(ctx context.Context, fix bool) (ReconcileReport, error) {
	log := logger.WithTrace(ctx)
	report := ReconcileReport{Unindexed: []string{}, OrphanSidecars: []string{}, StaleVectors: []string{}, Fixed: fix}

	infos, err := m.blobs.List(ctx)
	if err != nil {
		return report, err
	}
	blobs := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		blobs[info.Name] = struct{}{}
	}

	indexed, err := m.index.ListDocumentIds(ctx)
	if err != nil {
		return report, fmt.Errorf("listing index documents: %w", err)
	}
	inIndex := make(map[string]struct{}, len(indexed))
	for _, id := range indexed {
		inIndex[id] = struct{}{}
		if _, ok := blobs[id]; !ok {
			report.StaleVectors = append(report.StaleVectors, id)
		}
	}
	for _, info := range infos {
		if _, ok := inIndex[info.Name]; !ok && ingest.SupportedExtension(info.Name, m.extensions) {
			report.Unindexed = append(report.Unindexed, info.Name)
		}
	}

	entries, err := m.metas.List(ctx)
	if err != nil {
		return report, fmt.Errorf("listing metadata: %w", err)
	}
	for _, entry := range entries {
		if _, ok := blobs[entry.Name]; !ok {
			report.OrphanSidecars = append(report.OrphanSidecars, entry.Name)
		}
	}

	if !fix {
		return report, nil
	}
	for _, name := range report.OrphanSidecars {
		if _, err = m.metas.Delete(ctx, name); err != nil {
			return report, fmt.Errorf("removing orphan metadata %s: %w", name, err)
		}
	}
	for _, id := range report.StaleVectors {
		if err = m.index.DeleteDocument(ctx, id); err != nil {
			return report, fmt.Errorf("purging stale chunks of %s: %w", id, err)
		}
	}
	log.Info("Reconcile fixed drift", "orphanSidecars", len(report.OrphanSidecars), "staleVectors", len(report.StaleVectors))
	return report, nil
}
