package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/akolanti/DocVault/internal/data/store"
	"github.com/akolanti/DocVault/internal/dedup"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/rag/vectorDB/chromemDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockEmbedder struct {
	dim       int
	batchFunc func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *mockEmbedder) Dimension() int { return m.dim }

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return unitVector(query), nil
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if m.batchFunc != nil {
		return m.batchFunc(ctx, chunks)
	}
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i] = unitVector(c)
	}
	return out, nil
}

func unitVector(text string) []float32 {
	return []float32{1, float32(len(text)%7) / 10, 0}
}

type mockPartitioner struct {
	extractFunc func(ctx context.Context, name string, content []byte) ([]Page, error)
}

func (m *mockPartitioner) Extract(ctx context.Context, name string, content []byte) ([]Page, error) {
	if m.extractFunc != nil {
		return m.extractFunc(ctx, name, content)
	}
	return []Page{{Number: 1, Content: string(content)}}, nil
}

// flakyIndex fails the next upsertErrs upserts.
type flakyIndex struct {
	*chromemDB.Index
	upsertErrs int
}

func (f *flakyIndex) Upsert(ctx context.Context, chunks []commonModels.DocChunk) error {
	if f.upsertErrs > 0 {
		f.upsertErrs--
		return errors.New("qdrant timeout")
	}
	return f.Index.Upsert(ctx, chunks)
}

type fixture struct {
	blobs    *store.FileBlobStore
	metas    *store.SidecarMetadataStore
	index    *chromemDB.Index
	embedder *mockEmbedder
	parts    *mockPartitioner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	blobs, err := store.NewFileBlobStore(dir)
	require.NoError(t, err)
	metas, err := store.NewSidecarMetadataStore(dir, "IT")
	require.NoError(t, err)
	index, err := chromemDB.New(context.Background(), chromemDB.Options{Collection: "docs", Dimension: 3})
	require.NoError(t, err)
	return &fixture{blobs: blobs, metas: metas, index: index, embedder: &mockEmbedder{dim: 3}, parts: &mockPartitioner{}}
}

func (f *fixture) pipeline(t *testing.T, mutate func(*Options)) *Pipeline {
	t.Helper()
	opts := DefaultOptions()
	opts.ChunkSize = 40
	opts.ChunkOverlap = 8
	opts.Now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	if mutate != nil {
		mutate(&opts)
	}
	p, err := NewPipeline(Dependencies{
		Blobs:       f.blobs,
		Metadata:    f.metas,
		Index:       f.index,
		Embedder:    f.embedder,
		Partitioner: f.parts,
	}, opts)
	require.NoError(t, err)
	return p
}

func upload(name string, content string, level commonModels.AccessLevel, dept string) commonModels.UploadFile {
	return commonModels.UploadFile{Name: name, Content: []byte(content), AccessLevel: level, OwnerDepartment: dept}
}

// --- Splitter ---

func TestSplitTextIntoChunks(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		limit   int
		overlap int
	}{
		{"sentences", "This is a long sentence. This is another sentence that will be split.", 30, 5},
		{"paragraphs", strings.Repeat("Primer párrafo con acentos.\n\n", 20), 64, 10},
		{"no separators", strings.Repeat("ñ", 300), 50, 10},
		{"mixed long words", "corto " + strings.Repeat("x", 120) + " fin", 40, 6},
		{"overlap larger than limit", strings.Repeat("palabra ", 40), 20, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitTextIntoChunks(tt.text, tt.limit, tt.overlap)
			require.NotEmpty(t, chunks)
			for _, c := range chunks {
				assert.LessOrEqual(t, len(c), tt.limit, "chunk %q", c)
				assert.True(t, utf8.ValidString(c), "chunk %q is not valid UTF-8", c)
			}
		})
	}
}

func TestSplitTextIntoChunksSmallAndEmpty(t *testing.T) {
	assert.Nil(t, splitTextIntoChunks("  \n\t ", 100, 10))
	assert.Equal(t, []string{"hola"}, splitTextIntoChunks("hola", 100, 10))
}

func TestSplitTextIntoChunksKeepsEveryWord(t *testing.T) {
	text := "alfa beta gamma delta épsilon zeta eta theta iota kappa lambda mu"
	chunks := splitTextIntoChunks(text, 20, 4)
	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		assert.Contains(t, joined, word)
	}
}

func TestChunkIDIsDeterministic(t *testing.T) {
	doc := commonModels.Document{Id: "a.txt", ContentHash: "h1"}
	assert.Equal(t, ChunkID(doc, 1, 0), ChunkID(doc, 1, 0))
	assert.NotEqual(t, ChunkID(doc, 1, 0), ChunkID(doc, 1, 1))
	assert.NotEqual(t, ChunkID(doc, 1, 0), ChunkID(doc, 2, 0))
	assert.NotEqual(t, ChunkID(doc, 1, 0), ChunkID(commonModels.Document{Id: "a.txt", ContentHash: "h2"}, 1, 0))
}

func TestPrepareChunksStampsPermissions(t *testing.T) {
	doc := commonModels.Document{Id: "report.pdf", AccessLevel: commonModels.AccessDepartment, OwnerDepartment: "Finanzas"}
	pages := []Page{
		{Number: 1, Content: strings.Repeat("uno dos tres ", 10)},
		{Number: 2, Content: "   "},
		{Number: 3, Content: "final"},
	}

	chunks := PrepareChunks(pages, doc, 40, 8)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, commonModels.AccessDepartment, c.Doc.AccessLevel)
		assert.Equal(t, "Finanzas", c.Doc.OwnerDepartment)
		assert.NotEqual(t, 2, c.PageNum)
	}
	last := chunks[len(chunks)-1]
	assert.Equal(t, 3, last.PageNum)
	assert.Equal(t, 0, last.ChunkPageOrder)
}

// --- Pipeline ---

func TestNewPipelineRejectsDimensionMismatch(t *testing.T) {
	f := newFixture(t)
	f.embedder.dim = 768

	_, err := NewPipeline(Dependencies{
		Blobs: f.blobs, Metadata: f.metas, Index: f.index, Embedder: f.embedder, Partitioner: f.parts,
	}, DefaultOptions())
	assert.ErrorIs(t, err, commonModels.ErrConfiguration)
	assert.ErrorIs(t, err, commonModels.ErrDimensionMismatch)
}

func TestNewPipelineRejectsUnknownConflictPolicy(t *testing.T) {
	f := newFixture(t)
	opts := DefaultOptions()
	opts.OnNameConflict = "rename"
	_, err := NewPipeline(Dependencies{
		Blobs: f.blobs, Metadata: f.metas, Index: f.index, Embedder: f.embedder, Partitioner: f.parts,
	}, opts)
	assert.ErrorIs(t, err, commonModels.ErrConfiguration)
}

func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.pipeline(t, nil)
	file := upload("report.pdf", strings.Repeat("ingresos del trimestre ", 12), commonModels.AccessDepartment, "Finanzas")

	first := p.Ingest(ctx, file)
	require.Equal(t, commonModels.StatusStored, first.Status, first.Message)
	assert.Positive(t, first.Chunks)

	chunks, err := f.index.CountDocumentChunks(ctx, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, chunks)

	second := p.Ingest(ctx, file)
	assert.Equal(t, commonModels.StatusSkippedDuplicate, second.Status)
	assert.Equal(t, "report.pdf", second.DuplicateOf)

	blobs, err := f.blobs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, blobs, 1)
	again, err := f.index.CountDocumentChunks(ctx, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, chunks, again)

	meta, err := f.metas.Get(ctx, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, commonModels.AccessDepartment, meta.AccessLevel)
	assert.Equal(t, "Finanzas", meta.OwnerDepartment)
	assert.Len(t, meta.ContentHash, 64)
	require.NotNil(t, meta.UploadTimestamp)
	assert.Equal(t, 2025, meta.UploadTimestamp.Year())
}

func TestIngestBatchMixedOutcomes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.pipeline(t, func(o *Options) { o.Parallelism = 3 })

	original := upload("b.txt", "contenido original de b", commonModels.AccessPublic, "IT")
	require.Equal(t, commonModels.StatusStored, p.Ingest(ctx, original).Status)
	before, err := f.metas.Get(ctx, "b.txt")
	require.NoError(t, err)

	outcomes := p.IngestBatch(ctx, []commonModels.UploadFile{
		upload("a.txt", "primer archivo", commonModels.AccessPublic, "IT"),
		original,
		upload("c.txt", "tercer archivo", commonModels.AccessDepartment, "RRHH"),
	})

	require.Len(t, outcomes, 3)
	assert.Equal(t, commonModels.StatusStored, outcomes[0].Status)
	assert.Equal(t, commonModels.StatusSkippedDuplicate, outcomes[1].Status)
	assert.Equal(t, commonModels.StatusStored, outcomes[2].Status)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, []string{outcomes[0].File, outcomes[1].File, outcomes[2].File})

	content, err := f.blobs.Read(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "contenido original de b", string(content))
	after, err := f.metas.Get(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	blobs, err := f.blobs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, blobs, 3)
}

func TestIngestEmptyExtractionIsStoredButNotIndexed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.parts.extractFunc = func(ctx context.Context, name string, content []byte) ([]Page, error) {
		return []Page{{Number: 1, Content: " \n\n "}}, nil
	}
	p := f.pipeline(t, nil)

	outcome := p.Ingest(ctx, upload("escaneo.pdf", "%PDF-1.4 imagen", commonModels.AccessPublic, "IT"))
	assert.Equal(t, commonModels.StatusStoredNotIndexed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, ErrNothingToIndex)

	_, found, err := f.blobs.Stat(ctx, "escaneo.pdf")
	require.NoError(t, err)
	assert.True(t, found)
	entries, err := f.metas.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	count, err := f.index.CountDocumentChunks(ctx, "escaneo.pdf")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngestExtractionErrorIsStoredButNotIndexed(t *testing.T) {
	f := newFixture(t)
	f.parts.extractFunc = func(ctx context.Context, name string, content []byte) ([]Page, error) {
		return nil, errors.New("corrupt xref table")
	}
	p := f.pipeline(t, nil)

	outcome := p.Ingest(context.Background(), upload("roto.pdf", "%PDF", commonModels.AccessPublic, "IT"))
	assert.Equal(t, commonModels.StatusStoredNotIndexed, outcome.Status)
	assert.Contains(t, outcome.Message, "corrupt xref table")
}

func TestIngestCompensatesOnEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.embedder.batchFunc = func(ctx context.Context, chunks []string) ([][]float32, error) {
		return nil, errors.New("provider unavailable")
	}
	p := f.pipeline(t, nil)

	outcome := p.Ingest(ctx, upload("plan.docx", "plan estratégico", commonModels.AccessPublic, "IT"))
	assert.Equal(t, commonModels.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Message, "provider unavailable")

	_, found, err := f.blobs.Stat(ctx, "plan.docx")
	require.NoError(t, err)
	assert.False(t, found)
	entries, err := f.metas.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// a retry after the provider recovers stores the file normally
	f.embedder.batchFunc = nil
	assert.Equal(t, commonModels.StatusStored, p.Ingest(ctx, upload("plan.docx", "plan estratégico", commonModels.AccessPublic, "IT")).Status)
}

func TestIngestWrongVectorLengthFails(t *testing.T) {
	f := newFixture(t)
	f.embedder.batchFunc = func(ctx context.Context, chunks []string) ([][]float32, error) {
		out := make([][]float32, len(chunks))
		for i := range out {
			out[i] = []float32{1, 0}
		}
		return out, nil
	}
	p := f.pipeline(t, nil)

	outcome := p.Ingest(context.Background(), upload("a.txt", "texto", commonModels.AccessPublic, "IT"))
	assert.Equal(t, commonModels.StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, commonModels.ErrDimensionMismatch)
}

func TestIngestNameConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected by default", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t, nil)
		require.Equal(t, commonModels.StatusStored, p.Ingest(ctx, upload("a.txt", "versión uno", commonModels.AccessPublic, "IT")).Status)

		outcome := p.Ingest(ctx, upload("a.txt", "versión dos, distinta", commonModels.AccessPublic, "IT"))
		assert.Equal(t, commonModels.StatusRejectedNameConflict, outcome.Status)
		assert.ErrorIs(t, outcome.Err, commonModels.ErrNameConflict)

		content, err := f.blobs.Read(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "versión uno", string(content))
	})

	t.Run("overwrite replaces blob and chunks", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t, func(o *Options) { o.OnNameConflict = ConflictOverwrite })
		first := p.Ingest(ctx, upload("a.txt", strings.Repeat("versión uno larga ", 10), commonModels.AccessPublic, "IT"))
		require.Equal(t, commonModels.StatusStored, first.Status)

		outcome := p.Ingest(ctx, upload("a.txt", "versión dos", commonModels.AccessDepartment, "RRHH"))
		require.Equal(t, commonModels.StatusStored, outcome.Status)

		content, err := f.blobs.Read(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "versión dos", string(content))
		count, err := f.index.CountDocumentChunks(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, outcome.Chunks, count)
		meta, err := f.metas.Get(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "RRHH", meta.OwnerDepartment)
	})

	assertPreviousVersion := func(t *testing.T, f *fixture, chunks int) {
		t.Helper()
		content, err := f.blobs.Read(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("versión uno larga ", 10), string(content))
		meta, err := f.metas.Get(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "IT", meta.OwnerDepartment)
		assert.Equal(t, commonModels.AccessPublic, meta.AccessLevel)
		assert.Equal(t, dedup.Fingerprint(content), meta.ContentHash)
		count, err := f.index.CountDocumentChunks(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, chunks, count)
	}

	t.Run("failed overwrite keeps the previous version when embedding fails", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t, func(o *Options) { o.OnNameConflict = ConflictOverwrite })
		first := p.Ingest(ctx, upload("a.txt", strings.Repeat("versión uno larga ", 10), commonModels.AccessPublic, "IT"))
		require.Equal(t, commonModels.StatusStored, first.Status)

		f.embedder.batchFunc = func(ctx context.Context, chunks []string) ([][]float32, error) {
			return nil, errors.New("embedding provider down")
		}
		outcome := p.Ingest(ctx, upload("a.txt", "versión dos", commonModels.AccessDepartment, "RRHH"))
		require.Equal(t, commonModels.StatusFailed, outcome.Status)
		assert.Contains(t, outcome.Message, "embedding provider down")

		assertPreviousVersion(t, f, first.Chunks)
	})

	t.Run("failed overwrite restores the previous chunks when upsert fails", func(t *testing.T) {
		f := newFixture(t)
		index := &flakyIndex{Index: f.index}
		opts := DefaultOptions()
		opts.ChunkSize = 40
		opts.ChunkOverlap = 8
		opts.OnNameConflict = ConflictOverwrite
		p, err := NewPipeline(Dependencies{
			Blobs: f.blobs, Metadata: f.metas, Index: index, Embedder: f.embedder, Partitioner: f.parts,
		}, opts)
		require.NoError(t, err)

		first := p.Ingest(ctx, upload("a.txt", strings.Repeat("versión uno larga ", 10), commonModels.AccessPublic, "IT"))
		require.Equal(t, commonModels.StatusStored, first.Status)

		index.upsertErrs = 1
		outcome := p.Ingest(ctx, upload("a.txt", "versión dos", commonModels.AccessDepartment, "RRHH"))
		require.Equal(t, commonModels.StatusFailed, outcome.Status)
		assert.Contains(t, outcome.Message, "qdrant timeout")

		assertPreviousVersion(t, f, first.Chunks)
	})

	t.Run("overwrite with no text drops the previous chunks", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t, func(o *Options) { o.OnNameConflict = ConflictOverwrite })
		require.Equal(t, commonModels.StatusStored, p.Ingest(ctx, upload("a.txt", "versión uno", commonModels.AccessPublic, "IT")).Status)

		outcome := p.Ingest(ctx, upload("a.txt", "   ", commonModels.AccessPublic, "IT"))
		require.Equal(t, commonModels.StatusStoredNotIndexed, outcome.Status)
		count, err := f.index.CountDocumentChunks(ctx, "a.txt")
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestIngestLegacyDocumentWithoutHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.blobs.Write(ctx, "viejo.txt", []byte("documento previo")))
	p := f.pipeline(t, nil)

	outcome := p.Ingest(ctx, upload("viejo.txt", "documento previo", commonModels.AccessPublic, "IT"))
	assert.Equal(t, commonModels.StatusSkippedDuplicate, outcome.Status)
}

func TestIngestValidation(t *testing.T) {
	tests := []struct {
		name string
		file commonModels.UploadFile
		want error
	}{
		{"path traversal", upload("../x.txt", "a", commonModels.AccessPublic, "IT"), commonModels.ErrInvalidDocumentName},
		{"sidecar name", upload("a.txt.meta.json", "a", commonModels.AccessPublic, "IT"), commonModels.ErrInvalidDocumentName},
		{"extension", upload("foto.png", "a", commonModels.AccessPublic, "IT"), commonModels.ErrUnsupportedExtension},
		{"access level", upload("a.txt", "a", commonModels.AccessLevel("secreto"), "IT"), commonModels.ErrInvalidAccessLevel},
		{"missing department", upload("a.txt", "a", commonModels.AccessPublic, ""), commonModels.ErrUnknownDepartment},
		{"unknown department", upload("a.txt", "a", commonModels.AccessPublic, "Ventas"), commonModels.ErrUnknownDepartment},
	}

	f := newFixture(t)
	p := f.pipeline(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := p.Ingest(context.Background(), tt.file)
			assert.Equal(t, commonModels.StatusFailed, outcome.Status)
			assert.ErrorIs(t, outcome.Err, tt.want)
		})
	}

	blobs, err := f.blobs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestSupportedExtension(t *testing.T) {
	exts := []string{".pdf", "TXT"}
	assert.True(t, SupportedExtension("a.PDF", exts))
	assert.True(t, SupportedExtension("notas.txt", exts))
	assert.False(t, SupportedExtension("a.docx", exts))
	assert.False(t, SupportedExtension("pdf", exts))
}

// --- Partitioner ---

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestFilePartitionerPptx(t *testing.T) {
	content := zipOf(t, map[string]string{
		"ppt/slides/slide10.xml":           `<p:sld xmlns:a="a" xmlns:p="p"><a:t>Décima</a:t></p:sld>`,
		"ppt/slides/slide2.xml":            `<p:sld xmlns:a="a" xmlns:p="p"><a:t>Segunda</a:t><a:t>lámina</a:t></p:sld>`,
		"ppt/slides/_rels/slide2.xml.rels": `<Relationships/>`,
		"ppt/presentation.xml":             `<p:presentation xmlns:p="p"/>`,
	})

	pages, err := NewFilePartitioner(t.TempDir()).Extract(context.Background(), "deck.pptx", content)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, Page{Number: 2, Content: "Segunda\nlámina"}, pages[0])
	assert.Equal(t, Page{Number: 10, Content: "Décima"}, pages[1])
}

func TestFilePartitionerXlsx(t *testing.T) {
	content := zipOf(t, map[string]string{
		"xl/sharedStrings.xml": `<sst><si><t>Presupuesto</t></si><si><t> Marketing </t></si></sst>`,
	})

	pages, err := NewFilePartitioner(t.TempDir()).Extract(context.Background(), "cuentas.xlsx", content)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Presupuesto\nMarketing", pages[0].Content)
}

func TestFilePartitionerText(t *testing.T) {
	pages, err := NewFilePartitioner(t.TempDir()).Extract(context.Background(), "notas.txt", []byte("política de vacaciones"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Content, "política de vacaciones")
}

func TestFilePartitionerUnsupported(t *testing.T) {
	_, err := NewFilePartitioner(t.TempDir()).Extract(context.Background(), "foto.png", []byte{0x89})
	assert.ErrorIs(t, err, commonModels.ErrUnsupportedExtension)
}
