package mcpServer

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/rag/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAnswerer struct {
	onAnswer func(ctx context.Context, question string, department string) (commonModels.QueryResult, error)
}

func (m *mockAnswerer) Answer(ctx context.Context, question string, department string) (commonModels.QueryResult, error) {
	return m.onAnswer(ctx, question, department)
}

type mockLister struct {
	gotDepartment string
	gotFilter     lifecycle.ListFilter
	entries       []commonModels.LibraryEntry
	err           error
}

func (m *mockLister) ListVisible(ctx context.Context, department string, filter lifecycle.ListFilter) ([]commonModels.LibraryEntry, error) {
	m.gotDepartment = department
	m.gotFilter = filter
	return m.entries, m.err
}

func TestQueryDocumentsIsBoundToDepartment(t *testing.T) {
	var seen string
	answerer := &mockAnswerer{onAnswer: func(ctx context.Context, question string, department string) (commonModels.QueryResult, error) {
		seen = department
		return commonModels.QueryResult{Answer: "22 días", Sources: []string{"vacaciones.pdf"}}, nil
	}}
	s, err := New(answerer, &mockLister{})
	require.NoError(t, err)

	tools := departmentTools{server: s, department: "RRHH"}
	_, out, err := tools.queryDocuments(context.Background(), nil, QueryInput{Question: "¿Vacaciones?"})
	require.NoError(t, err)
	assert.Equal(t, "RRHH", seen)
	assert.Equal(t, "22 días", out.Answer)
	assert.Equal(t, []string{"vacaciones.pdf"}, out.Sources)

	// a denial has no sources but still returns an empty list
	answerer.onAnswer = func(ctx context.Context, question string, department string) (commonModels.QueryResult, error) {
		return commonModels.QueryResult{Answer: "denied"}, nil
	}
	_, out, err = tools.queryDocuments(context.Background(), nil, QueryInput{Question: "x"})
	require.NoError(t, err)
	assert.NotNil(t, out.Sources)
	assert.Empty(t, out.Sources)

	answerer.onAnswer = func(ctx context.Context, question string, department string) (commonModels.QueryResult, error) {
		return commonModels.QueryResult{}, commonModels.ErrRetrievalFailed
	}
	_, _, err = tools.queryDocuments(context.Background(), nil, QueryInput{Question: "x"})
	assert.ErrorIs(t, err, commonModels.ErrRetrievalFailed)
}

func TestListDocuments(t *testing.T) {
	lister := &mockLister{entries: []commonModels.LibraryEntry{
		{Name: "report.pdf", OwnerDepartment: "Finanzas", AccessLevel: commonModels.AccessDepartment, Type: commonModels.PDF, SizeBytes: 2048},
	}}
	s, err := New(&mockAnswerer{}, lister)
	require.NoError(t, err)

	tools := departmentTools{server: s, department: "Finanzas"}
	_, out, err := tools.listDocuments(context.Background(), nil, ListInput{Query: "rep", Types: []string{"PDF"}})
	require.NoError(t, err)

	assert.Equal(t, "Finanzas", lister.gotDepartment)
	assert.Equal(t, lifecycle.ListFilter{Query: "rep", Types: []string{"PDF"}}, lister.gotFilter)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, DocumentOutput{
		Name: "report.pdf", OwnerDepartment: "Finanzas", AccessLevel: "departamento", Type: "PDF", SizeBytes: 2048,
	}, out.Documents[0])

	lister.err = errors.New("disk gone")
	_, _, err = tools.listDocuments(context.Background(), nil, ListInput{})
	assert.ErrorContains(t, err, "disk gone")
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, &mockLister{})
	assert.Error(t, err)

	s, err := New(&mockAnswerer{}, &mockLister{})
	require.NoError(t, err)
	assert.NotNil(t, s.Handler())
	assert.NotNil(t, s.forDepartment("IT"))
}
