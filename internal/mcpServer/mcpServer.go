package mcpServer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/DocVault/internal/adapter/utils"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/rag"
	"github.com/akolanti/DocVault/internal/rag/lifecycle"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

type Lister interface {
	ListVisible(ctx context.Context, department string, filter lifecycle.ListFilter) ([]commonModels.LibraryEntry, error)
}

// Server exposes the query engine and the library to MCP clients. Every
// HTTP request gets its own MCP server bound to the caller's department.
type Server struct {
	engine  rag.Answerer
	library Lister
	logger  *logger_i.Logger
}

func New(engine rag.Answerer, library Lister) (*Server, error) {
	if engine == nil || library == nil {
		return nil, errors.New("mcp server needs an engine and a library")
	}
	return &Server{engine: engine, library: library, logger: logger_i.NewLogger("MCP")}, nil
}

// Handler serves streamable HTTP. It is stateless so the department claim of
// each request is honoured.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.forDepartment(utils.DepartmentFromContext(r.Context()))
	}, &mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true})
}

func (s *Server) forDepartment(department string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "docvault", Version: Version}, nil)
	t := departmentTools{server: s, department: department}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Answer a question from the company documents the caller may read",
	}, t.queryDocuments)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the company documents the caller may read",
	}, t.listDocuments)
	return server
}

type QueryInput struct {
	Question string `json:"question" jsonschema:"the question to answer"`
}

type QueryOutput struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

type ListInput struct {
	Query       string   `json:"query,omitempty" jsonschema:"case-insensitive substring of the document name"`
	Departments []string `json:"departments,omitempty" jsonschema:"only documents owned by these departments"`
	Types       []string `json:"types,omitempty" jsonschema:"only these document types, such as PDF or DOCX"`
}

type ListOutput struct {
	Count     int              `json:"count"`
	Documents []DocumentOutput `json:"documents"`
}

type DocumentOutput struct {
	Name            string `json:"name"`
	OwnerDepartment string `json:"owner_department"`
	AccessLevel     string `json:"access_level"`
	Type            string `json:"type"`
	SizeBytes       int64  `json:"size_bytes"`
}

type departmentTools struct {
	server     *Server
	department string
}

func (t departmentTools) queryDocuments(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	result, err := t.server.engine.Answer(ctx, input.Question, t.department)
	if err != nil {
		t.server.logger.WithTrace(ctx).Error("query_documents failed", "department", t.department, "err", err)
		return nil, QueryOutput{}, fmt.Errorf("query_documents: %w", err)
	}
	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}
	return nil, QueryOutput{Answer: result.Answer, Sources: sources}, nil
}

func (t departmentTools) listDocuments(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	entries, err := t.server.library.ListVisible(ctx, t.department, lifecycle.ListFilter{
		Query:       input.Query,
		Departments: input.Departments,
		Types:       input.Types,
	})
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("list_documents: %w", err)
	}
	out := ListOutput{Count: len(entries), Documents: make([]DocumentOutput, 0, len(entries))}
	for _, e := range entries {
		out.Documents = append(out.Documents, DocumentOutput{
			Name:            e.Name,
			OwnerDepartment: e.OwnerDepartment,
			AccessLevel:     string(e.AccessLevel),
			Type:            string(e.Type),
			SizeBytes:       e.SizeBytes,
		})
	}
	return nil, out, nil
}
