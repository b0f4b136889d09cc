package rag_test

import (
	"context"
	"sync"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/permission"
)

// MockIndex implements vectorDB.Index
type MockIndex struct {
	Dim      int
	OnSearch func(ctx context.Context, vector []float32, limit int, filter *permission.Filter) ([]commonModels.RetrievedChunk, error)

	mu     sync.Mutex
	limits []int
}

func (m *MockIndex) Dimension() int {
	if m.Dim == 0 {
		return 3
	}
	return m.Dim
}

func (m *MockIndex) EnsureCollection(ctx context.Context) error { return nil }

func (m *MockIndex) Upsert(ctx context.Context, chunks []commonModels.DocChunk) error { return nil }

func (m *MockIndex) Search(ctx context.Context, vector []float32, limit int, filter *permission.Filter) ([]commonModels.RetrievedChunk, error) {
	m.mu.Lock()
	m.limits = append(m.limits, limit)
	m.mu.Unlock()
	if m.OnSearch != nil {
		return m.OnSearch(ctx, vector, limit, filter)
	}
	return nil, nil
}

func (m *MockIndex) DeleteDocument(ctx context.Context, docId string) error { return nil }

func (m *MockIndex) CountDocumentChunks(ctx context.Context, docId string) (int, error) { return 0, nil }

func (m *MockIndex) ListDocumentIds(ctx context.Context) ([]string, error) { return nil, nil }

func (m *MockIndex) Reset(ctx context.Context) error { return nil }

func (m *MockIndex) Close() error { return nil }

func (m *MockIndex) Limits() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.limits...)
}

type MockEmbedder struct {
	Dim            int
	OnGetEmbedding func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) Dimension() int {
	if m.Dim == 0 {
		return 3
	}
	return m.Dim
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{1, 0, 0}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// MockLLM implements llm.Provider and remembers every prompt.
type MockLLM struct {
	OnComplete func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.OnComplete != nil {
		return m.OnComplete(ctx, prompt)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

type MockAnswerer struct {
	OnAnswer func(ctx context.Context, question string, department string) (commonModels.QueryResult, error)
}

func (m *MockAnswerer) Answer(ctx context.Context, question string, department string) (commonModels.QueryResult, error) {
	return m.OnAnswer(ctx, question, department)
}

type MockIngester struct {
	OnIngestBatch func(ctx context.Context, files []commonModels.UploadFile) []commonModels.IngestOutcome
}

func (m *MockIngester) IngestBatch(ctx context.Context, files []commonModels.UploadFile) []commonModels.IngestOutcome {
	return m.OnIngestBatch(ctx, files)
}

func retrieved(doc string, text string, level commonModels.AccessLevel, dept string, score float32) commonModels.RetrievedChunk {
	return commonModels.RetrievedChunk{
		ChunkId:          doc + "/" + text,
		SourceDocumentId: doc,
		Text:             text,
		AccessLevel:      level,
		OwnerDepartment:  dept,
		Score:            score,
	}
}
