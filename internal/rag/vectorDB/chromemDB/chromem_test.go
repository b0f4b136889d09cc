package chromemDB

import (
	"context"
	"testing"
	"time"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(docId string, order int, level commonModels.AccessLevel, dept string, vec []float32) commonModels.DocChunk {
	return commonModels.DocChunk{
		Doc: commonModels.Document{
			Id:              docId,
			AccessLevel:     level,
			OwnerDepartment: dept,
			ContentHash:     "h-" + docId,
			UploadTimestamp: time.Unix(1700000000, 0),
		},
		ChunkId:        docId + "-" + string(rune('a'+order)),
		Chunk:          "texto de " + docId,
		PageNum:        1,
		ChunkPageOrder: order,
		Embedding:      vec,
	}
}

func seededIndex(t *testing.T) *Index {
	t.Helper()
	index, err := New(context.Background(), Options{Collection: "test", Dimension: 3})
	require.NoError(t, err)

	require.NoError(t, index.Upsert(context.Background(), []commonModels.DocChunk{
		chunk("policy.txt", 0, commonModels.AccessPublic, "IT", []float32{1, 0, 0}),
		chunk("report.pdf", 0, commonModels.AccessDepartment, "Finanzas", []float32{0.9, 0.1, 0}),
		chunk("report.pdf", 1, commonModels.AccessDepartment, "Finanzas", []float32{0.8, 0.2, 0}),
		chunk("nomina.xlsx", 0, commonModels.AccessPrivate, "RRHH", []float32{0.95, 0.05, 0}),
		chunk("raro.txt", 0, commonModels.AccessLevel("secreto"), "Finanzas", []float32{1, 0, 0}),
	}))
	return index
}

func sources(chunks []commonModels.RetrievedChunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.SourceDocumentId)
	}
	return out
}

func TestSearchPushesDownPermissions(t *testing.T) {
	ctx := context.Background()
	index := seededIndex(t)

	tests := []struct {
		name    string
		dept    string
		want    []string
		notWant []string
	}{
		{name: "finanzas", dept: "Finanzas", want: []string{"policy.txt", "report.pdf", "report.pdf"}, notWant: []string{"nomina.xlsx", "raro.txt"}},
		{name: "rrhh", dept: "RRHH", want: []string{"policy.txt", "nomina.xlsx"}, notWant: []string{"report.pdf", "raro.txt"}},
		{name: "marketing", dept: "Marketing", want: []string{"policy.txt"}, notWant: []string{"report.pdf", "nomina.xlsx", "raro.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := index.Search(ctx, []float32{1, 0, 0}, 10, permission.ForDepartment(tt.dept))
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, sources(got))
			for _, c := range got {
				assert.True(t, permission.IsChunkVisible(c, tt.dept))
			}
		})
	}
}

func TestSearchRanksAndLimits(t *testing.T) {
	ctx := context.Background()
	index := seededIndex(t)

	got, err := index.Search(ctx, []float32{1, 0, 0}, 2, permission.ForDepartment("Finanzas"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "policy.txt", got[0].SourceDocumentId)
	assert.Equal(t, "report.pdf", got[1].SourceDocumentId)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
	assert.Equal(t, commonModels.AccessDepartment, got[1].AccessLevel)
	assert.Equal(t, "Finanzas", got[1].OwnerDepartment)
	assert.Equal(t, "texto de report.pdf", got[1].Text)

	unfiltered, err := index.Search(ctx, []float32{1, 0, 0}, 100, nil)
	require.NoError(t, err)
	assert.Len(t, unfiltered, 5)
}

func TestSearchEmptyCollection(t *testing.T) {
	index, err := New(context.Background(), Options{Collection: "empty", Dimension: 3})
	require.NoError(t, err)

	got, err := index.Search(context.Background(), []float32{1, 0, 0}, 5, permission.ForDepartment("IT"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCountListDelete(t *testing.T) {
	ctx := context.Background()
	index := seededIndex(t)

	count, err := index.CountDocumentChunks(ctx, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ids, err := index.ListDocumentIds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"nomina.xlsx", "policy.txt", "raro.txt", "report.pdf"}, ids)

	require.NoError(t, index.DeleteDocument(ctx, "report.pdf"))
	count, err = index.CountDocumentChunks(ctx, "report.pdf")
	require.NoError(t, err)
	assert.Zero(t, count)

	// deleting a document with no chunks is not an error
	require.NoError(t, index.DeleteDocument(ctx, "report.pdf"))

	// re-upserting the same chunk id replaces it
	require.NoError(t, index.Upsert(ctx, []commonModels.DocChunk{
		chunk("policy.txt", 0, commonModels.AccessPublic, "IT", []float32{0, 1, 0}),
	}))
	count, err = index.CountDocumentChunks(ctx, "policy.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, index.Reset(ctx))
	ids, err = index.ListDocumentIds(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	index, err := New(context.Background(), Options{Collection: "dim", Dimension: 3})
	require.NoError(t, err)

	err = index.Upsert(context.Background(), []commonModels.DocChunk{
		chunk("a.txt", 0, commonModels.AccessPublic, "IT", []float32{1, 0}),
	})
	assert.ErrorIs(t, err, commonModels.ErrDimensionMismatch)
}

func TestPersistentReopenChecksDimension(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	index, err := New(ctx, Options{Path: dir, Collection: "docs", Dimension: 3})
	require.NoError(t, err)
	require.NoError(t, index.Upsert(ctx, []commonModels.DocChunk{
		chunk("a.txt", 0, commonModels.AccessPublic, "IT", []float32{1, 0, 0}),
	}))

	reopened, err := New(ctx, Options{Path: dir, Collection: "docs", Dimension: 3})
	require.NoError(t, err)
	count, err := reopened.CountDocumentChunks(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = New(ctx, Options{Path: dir, Collection: "docs", Dimension: 4})
	assert.ErrorIs(t, err, commonModels.ErrConfiguration)
	assert.ErrorIs(t, err, commonModels.ErrDimensionMismatch)
}
