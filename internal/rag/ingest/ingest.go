package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/data/store"
	"github.com/akolanti/DocVault/internal/dedup"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/metrics"
	"github.com/akolanti/DocVault/internal/rag/embedding"
	"github.com/akolanti/DocVault/internal/rag/vectorDB"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

var logger = logger_i.NewLogger("Document Ingestion")

// ErrNothingToIndex means the document was readable as bytes but produced no
// searchable text.
var ErrNothingToIndex = errors.New("document has no extractable text")

const (
	ConflictReject    = "reject"
	ConflictOverwrite = "overwrite"
)

type Dependencies struct {
	Blobs       commonModels.BlobStore
	Metadata    commonModels.MetadataStore
	Index       vectorDB.Index
	Embedder    embedding.Embedder
	Partitioner Partitioner
}

type Options struct {
	ChunkSize      int
	ChunkOverlap   int
	BatchSize      int
	Parallelism    int
	OnNameConflict string
	Departments    []string
	Extensions     []string
	Now            func() time.Time
}

func DefaultOptions() Options {
	return Options{
		ChunkSize:      config.ChunkSize,
		ChunkOverlap:   config.ChunkOverlap,
		BatchSize:      config.EmbedBatchSize,
		Parallelism:    config.IngestParallelism,
		OnNameConflict: config.OnNameConflict,
		Departments:    config.Departments,
		Extensions:     config.SupportedExtensions,
	}
}

// Pipeline stores uploads and makes them searchable. Each step commits on its
// own; a failed embed or upsert undoes the earlier steps for that file.
type Pipeline struct {
	deps Dependencies
	opts Options
}

func NewPipeline(deps Dependencies, opts Options) (*Pipeline, error) {
	if deps.Blobs == nil || deps.Metadata == nil || deps.Index == nil || deps.Embedder == nil || deps.Partitioner == nil {
		return nil, fmt.Errorf("%w: ingest pipeline is missing a collaborator", commonModels.ErrConfiguration)
	}
	if deps.Embedder.Dimension() != deps.Index.Dimension() {
		return nil, fmt.Errorf("%w: %w: embedder produces %d, index expects %d", commonModels.ErrConfiguration,
			commonModels.ErrDimensionMismatch, deps.Embedder.Dimension(), deps.Index.Dimension())
	}
	switch opts.OnNameConflict {
	case "":
		opts.OnNameConflict = ConflictReject
	case ConflictReject, ConflictOverwrite:
	default:
		return nil, fmt.Errorf("%w: unknown name conflict policy %q", commonModels.ErrConfiguration, opts.OnNameConflict)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = config.ChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.EmbedBatchSize
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = config.SupportedExtensions
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{deps: deps, opts: opts}, nil
}

// IngestBatch processes every file independently and returns one outcome per
// file, in input order.
func (p *Pipeline) IngestBatch(ctx context.Context, files []commonModels.UploadFile) []commonModels.IngestOutcome {
	outcomes := make([]commonModels.IngestOutcome, len(files))

	var group errgroup.Group
	group.SetLimit(p.opts.Parallelism)
	for i, file := range files {
		group.Go(func() error {
			outcomes[i] = p.Ingest(ctx, file)
			return nil
		})
	}
	_ = group.Wait()
	return outcomes
}

func (p *Pipeline) Ingest(ctx context.Context, file commonModels.UploadFile) commonModels.IngestOutcome {
	log := logger.WithTrace(ctx).With("file", file.Name)
	outcome := p.ingest(ctx, log, file)
	metrics.CaptureIngestOutcome(string(outcome.Status))

	switch outcome.Status {
	case commonModels.StatusStored:
		log.Info("Document stored", "chunks", outcome.Chunks)
	case commonModels.StatusSkippedDuplicate:
		log.Info("Duplicate upload skipped", "duplicateOf", outcome.DuplicateOf)
	case commonModels.StatusFailed:
		log.Error("Document ingest failed", "error", outcome.Err)
	default:
		log.Warn("Document ingest degraded", "status", outcome.Status, "message", outcome.Message)
	}
	return outcome
}

func (p *Pipeline) ingest(ctx context.Context, log *logger_i.Logger, file commonModels.UploadFile) commonModels.IngestOutcome {
	if err := p.validate(file); err != nil {
		return failed(file.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return failed(file.Name, err)
	}

	candidate := dedup.Candidate{Name: file.Name, Size: int64(len(file.Content)), Hash: dedup.Fingerprint(file.Content)}
	existing, err := p.lookup(ctx, candidate)
	if err != nil {
		return failed(file.Name, fmt.Errorf("reading current document: %w", err))
	}

	if isDup, matched := dedup.IsDuplicate(candidate, existing); isDup {
		return commonModels.IngestOutcome{File: file.Name, Status: commonModels.StatusSkippedDuplicate, DuplicateOf: matched}
	}

	var prev *previousVersion
	if previous, conflict := dedup.FindNameConflict(candidate, existing); conflict {
		if p.opts.OnNameConflict != ConflictOverwrite {
			return commonModels.IngestOutcome{
				File:    file.Name,
				Status:  commonModels.StatusRejectedNameConflict,
				Message: fmt.Sprintf("a different document named %s already exists", previous.Id),
				Err:     commonModels.ErrNameConflict,
			}
		}
		log.Debug("Overwriting document with new content", "previousHash", previous.ContentHash)
		if prev, err = p.snapshot(ctx, previous); err != nil {
			return failed(file.Name, fmt.Errorf("reading previous version: %w", err))
		}
	}

	uploaded := p.opts.Now().UTC()
	doc := commonModels.Document{
		Id:              file.Name,
		ContentHash:     candidate.Hash,
		SizeBytes:       candidate.Size,
		AccessLevel:     file.AccessLevel,
		OwnerDepartment: file.OwnerDepartment,
		UploadTimestamp: uploaded,
		ContentType:     commonModels.FileType(file.Name),
	}

	if err = p.deps.Blobs.Write(ctx, file.Name, file.Content); err != nil {
		return failed(file.Name, fmt.Errorf("writing blob: %w", err))
	}
	sidecar := commonModels.MetadataSidecar{
		AccessLevel:     doc.AccessLevel,
		OwnerDepartment: doc.OwnerDepartment,
		ContentHash:     doc.ContentHash,
		UploadTimestamp: &uploaded,
	}
	if err = p.deps.Metadata.Put(ctx, file.Name, sidecar); err != nil {
		p.compensate(ctx, log, file.Name, false, prev)
		return failed(file.Name, fmt.Errorf("writing metadata: %w", err))
	}

	// the index is only touched once the new version is fully embedded
	touched := false
	chunks, err := p.indexDocument(ctx, doc, file.Content, func(ctx context.Context) error {
		touched = true
		if prev == nil {
			return nil
		}
		if err := p.deps.Index.DeleteDocument(ctx, file.Name); err != nil {
			return fmt.Errorf("purging previous chunks: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrNothingToIndex) {
		if prev != nil {
			// the old chunks would keep answering for content that is gone
			if purgeErr := p.deps.Index.DeleteDocument(ctx, file.Name); purgeErr != nil {
				p.compensate(ctx, log, file.Name, true, prev)
				return failed(file.Name, fmt.Errorf("purging previous chunks: %w", purgeErr))
			}
		}
		return commonModels.IngestOutcome{
			File:    file.Name,
			Status:  commonModels.StatusStoredNotIndexed,
			Message: err.Error(),
			Err:     err,
		}
	}
	if err != nil {
		p.compensate(ctx, log, file.Name, touched, prev)
		return failed(file.Name, err)
	}
	return commonModels.IngestOutcome{File: file.Name, Status: commonModels.StatusStored, Chunks: chunks}
}

// previousVersion is the stored document an overwrite replaces.
type previousVersion struct {
	doc     commonModels.Document
	sidecar commonModels.MetadataSidecar
	content []byte
}

func (p *Pipeline) snapshot(ctx context.Context, doc commonModels.Document) (*previousVersion, error) {
	content, err := p.deps.Blobs.Read(ctx, doc.Id)
	if err != nil {
		return nil, err
	}
	sidecar, err := p.deps.Metadata.Get(ctx, doc.Id)
	if err != nil {
		return nil, err
	}
	if sidecar.ContentHash == "" {
		sidecar.ContentHash = doc.ContentHash
	}
	if sidecar.UploadTimestamp != nil {
		doc.UploadTimestamp = *sidecar.UploadTimestamp
	}
	return &previousVersion{doc: doc, sidecar: sidecar, content: content}, nil
}

func (p *Pipeline) validate(file commonModels.UploadFile) error {
	if err := store.ValidateName(file.Name); err != nil {
		return err
	}
	if !p.supported(file.Name) {
		return fmt.Errorf("%w: %s", commonModels.ErrUnsupportedExtension, file.Name)
	}
	if !file.AccessLevel.Valid() {
		return fmt.Errorf("%w: %q", commonModels.ErrInvalidAccessLevel, file.AccessLevel)
	}
	if file.OwnerDepartment == "" {
		return fmt.Errorf("%w: owner department is required", commonModels.ErrUnknownDepartment)
	}
	if len(p.opts.Departments) > 0 && !slices.Contains(p.opts.Departments, file.OwnerDepartment) {
		return fmt.Errorf("%w: %q", commonModels.ErrUnknownDepartment, file.OwnerDepartment)
	}
	return nil
}

func (p *Pipeline) supported(name string) bool {
	return SupportedExtension(name, p.opts.Extensions)
}

// SupportedExtension reports whether name ends in one of extensions, compared
// case-insensitively. Entries may omit the leading dot.
func SupportedExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, allowed := range extensions {
		if "."+strings.TrimPrefix(strings.ToLower(allowed), ".") == ext {
			return true
		}
	}
	return false
}

// lookup returns the stored document sharing the candidate's name, if any.
// State is re-read on every call since concurrent writers are not locked out.
func (p *Pipeline) lookup(ctx context.Context, candidate dedup.Candidate) ([]commonModels.Document, error) {
	info, found, err := p.deps.Blobs.Stat(ctx, candidate.Name)
	if err != nil || !found {
		return nil, err
	}
	meta, err := p.deps.Metadata.Get(ctx, candidate.Name)
	if err != nil {
		return nil, err
	}
	doc := commonModels.Document{
		Id:              info.Name,
		ContentHash:     meta.ContentHash,
		SizeBytes:       info.Size,
		AccessLevel:     meta.AccessLevel,
		OwnerDepartment: meta.OwnerDepartment,
		ContentType:     commonModels.FileType(info.Name),
	}
	// documents stored before hashes were tracked are fingerprinted on demand
	if doc.ContentHash == "" && doc.SizeBytes == candidate.Size {
		content, err := p.deps.Blobs.Read(ctx, candidate.Name)
		if err != nil {
			return nil, err
		}
		doc.ContentHash = dedup.Fingerprint(content)
	}
	return []commonModels.Document{doc}, nil
}

// compensate undoes a failed ingest. A new document is removed; an overwritten
// one is put back, including its chunks when the index was already touched.
// It runs even when the caller has gone away.
func (p *Pipeline) compensate(ctx context.Context, log *logger_i.Logger, name string, indexed bool, prev *previousVersion) {
	ctx = context.WithoutCancel(ctx)
	if indexed {
		if err := p.deps.Index.DeleteDocument(ctx, name); err != nil {
			log.Warn("Compensation could not purge chunks", "error", err)
		}
	}

	if prev == nil {
		if _, err := p.deps.Metadata.Delete(ctx, name); err != nil {
			log.Warn("Compensation could not delete metadata", "error", err)
		}
		if _, err := p.deps.Blobs.Delete(ctx, name); err != nil {
			log.Warn("Compensation could not delete blob", "error", err)
		}
		return
	}

	if err := p.deps.Blobs.Write(ctx, name, prev.content); err != nil {
		log.Error("Compensation could not restore previous blob", "error", err)
		return
	}
	if err := p.deps.Metadata.Put(ctx, name, prev.sidecar); err != nil {
		log.Error("Compensation could not restore previous metadata", "error", err)
	}
	if indexed {
		if _, err := p.IndexDocument(ctx, prev.doc, prev.content); err != nil {
			log.Warn("Previous version restored without index entries, reindex to recover", "error", err)
		}
	}
}

func failed(name string, err error) commonModels.IngestOutcome {
	return commonModels.IngestOutcome{File: name, Status: commonModels.StatusFailed, Message: err.Error(), Err: err}
}
