package store_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/akolanti/DocVault/internal/data/store"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	valid := []string{"report.pdf", "Política de vacaciones 2024.docx", "a"}
	invalid := []string{"", ".", "..", "../etc/passwd", "dir/file.txt", `dir\file.txt`, ".hidden", "report.pdf.meta.json"}

	for _, name := range valid {
		assert.NoError(t, store.ValidateName(name), name)
	}
	for _, name := range invalid {
		assert.ErrorIs(t, store.ValidateName(name), commonModels.ErrInvalidDocumentName, name)
	}
}

func TestFileBlobStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blobs, err := store.NewFileBlobStore(dir)
	require.NoError(t, err)

	require.NoError(t, blobs.Write(ctx, "b.txt", []byte("segundo")))
	require.NoError(t, blobs.Write(ctx, "a.pdf", []byte("primero")))
	// sidecars and stray temp files never show up as blobs
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf.meta.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	list, err := blobs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.pdf", list[0].Name)
	assert.Equal(t, int64(7), list[0].Size)
	assert.Equal(t, "b.txt", list[1].Name)

	content, err := blobs.Read(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("segundo"), content)

	require.NoError(t, blobs.Write(ctx, "b.txt", []byte("reemplazado")))
	info, found, err := blobs.Stat(ctx, "b.txt")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(len("reemplazado")), info.Size)

	removed, err := blobs.Delete(ctx, "b.txt")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = blobs.Delete(ctx, "b.txt")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = blobs.Read(ctx, "b.txt")
	assert.ErrorIs(t, err, commonModels.ErrDocumentNotFound)

	_, found, err = blobs.Stat(ctx, "b.txt")
	require.NoError(t, err)
	assert.False(t, found)

	assert.ErrorIs(t, blobs.Write(ctx, "../escape.txt", []byte("x")), commonModels.ErrInvalidDocumentName)
}

func TestSidecarMetadataStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	metas, err := store.NewSidecarMetadataStore(dir, "IT")
	require.NoError(t, err)

	t.Run("missing sidecar resolves to public default", func(t *testing.T) {
		meta, err := metas.Get(ctx, "legacy.pdf")
		require.NoError(t, err)
		assert.Equal(t, commonModels.AccessPublic, meta.AccessLevel)
		assert.Equal(t, "IT", meta.OwnerDepartment)
		assert.Empty(t, meta.ContentHash)
	})

	t.Run("put then get", func(t *testing.T) {
		now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		want := commonModels.MetadataSidecar{
			AccessLevel:     commonModels.AccessDepartment,
			OwnerDepartment: "Finanzas",
			ContentHash:     "abc123",
			UploadTimestamp: &now,
		}
		require.NoError(t, metas.Put(ctx, "report.pdf", want))

		got, err := metas.Get(ctx, "report.pdf")
		require.NoError(t, err)
		assert.Equal(t, want.AccessLevel, got.AccessLevel)
		assert.Equal(t, want.OwnerDepartment, got.OwnerDepartment)
		assert.Equal(t, want.ContentHash, got.ContentHash)
		require.NotNil(t, got.UploadTimestamp)
		assert.True(t, now.Equal(*got.UploadTimestamp))
	})

	t.Run("persisted format keeps the original keys", func(t *testing.T) {
		raw, err := os.ReadFile(filepath.Join(dir, "report.pdf.meta.json"))
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"access_level": "departamento"`)
		assert.Contains(t, string(raw), `"owner_department": "Finanzas"`)
		assert.Contains(t, string(raw), `"content_hash": "abc123"`)
	})

	t.Run("sidecar without timestamp is accepted", func(t *testing.T) {
		legacy := `{"access_level": "privado", "owner_department": "RRHH", "content_hash": "ff"}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "nomina.xlsx.meta.json"), []byte(legacy), 0o644))

		meta, err := metas.Get(ctx, "nomina.xlsx")
		require.NoError(t, err)
		assert.Equal(t, commonModels.AccessPrivate, meta.AccessLevel)
		assert.Nil(t, meta.UploadTimestamp)
	})

	t.Run("corrupt sidecar resolves to default", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "roto.txt.meta.json"), []byte("{not json"), 0o644))
		meta, err := metas.Get(ctx, "roto.txt")
		require.NoError(t, err)
		assert.Equal(t, commonModels.DefaultSidecar("IT"), meta)
	})

	t.Run("list and delete", func(t *testing.T) {
		entries, err := metas.List(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name)
		}
		assert.Equal(t, []string{"nomina.xlsx", "report.pdf", "roto.txt"}, names)

		removed, err := metas.Delete(ctx, "report.pdf")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = metas.Delete(ctx, "report.pdf")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestSidecarMissingKeysTakeDefaults(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	metas, err := store.NewSidecarMetadataStore(dir, "IT")
	require.NoError(t, err)

	tests := []struct {
		name  string
		raw   string
		level commonModels.AccessLevel
		owner string
	}{
		{"no access level", `{"owner_department": "Finanzas", "content_hash": "ff"}`, commonModels.AccessPublic, "Finanzas"},
		{"no owner", `{"access_level": "departamento"}`, commonModels.AccessDepartment, "IT"},
		{"empty object", `{}`, commonModels.AccessPublic, "IT"},
		{"unknown level is kept", `{"access_level": "secreto", "owner_department": "RRHH"}`, commonModels.AccessLevel("secreto"), "RRHH"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := fmt.Sprintf("doc%d.txt", i)
			require.NoError(t, os.WriteFile(filepath.Join(dir, name+".meta.json"), []byte(tt.raw), 0o644))

			meta, err := metas.Get(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, tt.level, meta.AccessLevel)
			assert.Equal(t, tt.owner, meta.OwnerDepartment)
		})
	}
}

func TestRedisMetadataStore(t *testing.T) {
	ctx := context.Background()
	mr, internalStore := newMiniRedisStore(t)
	metas := store.NewRedisMetadataStore(internalStore, "IT")

	meta, err := metas.Get(ctx, "missing.pdf")
	require.NoError(t, err)
	assert.Equal(t, commonModels.DefaultSidecar("IT"), meta)

	want := commonModels.MetadataSidecar{AccessLevel: commonModels.AccessDepartment, OwnerDepartment: "Marketing", ContentHash: "h1"}
	require.NoError(t, metas.Put(ctx, "campaña.pptx", want))
	require.NoError(t, metas.Put(ctx, "brief.docx", commonModels.DefaultSidecar("IT")))
	assert.True(t, mr.Exists("docmeta:campaña.pptx"))

	got, err := metas.Get(ctx, "campaña.pptx")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := metas.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "brief.docx", entries[0].Name)
	assert.Equal(t, "campaña.pptx", entries[1].Name)

	removed, err := metas.Delete(ctx, "campaña.pptx")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = metas.Delete(ctx, "campaña.pptx")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, mr.Set("docmeta:bad.txt", "not-json"))
	meta, err = metas.Get(ctx, "bad.txt")
	require.NoError(t, err)
	assert.Equal(t, commonModels.DefaultSidecar("IT"), meta)

	require.NoError(t, mr.Set("docmeta:partial.txt", `{"owner_department": "RRHH"}`))
	meta, err = metas.Get(ctx, "partial.txt")
	require.NoError(t, err)
	assert.Equal(t, commonModels.AccessPublic, meta.AccessLevel)
	assert.Equal(t, "RRHH", meta.OwnerDepartment)
}
