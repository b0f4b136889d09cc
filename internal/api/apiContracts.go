package api

import (
	"time"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id         string            `json:"id" example:"job_cz109"`
	Type       string            `json:"type,omitempty" example:"Query"`
	Department string            `json:"department,omitempty" example:"Finanzas"`
	Result     Result            `json:"result"`
	Error      *JobOutgoingError `json:"error,omitempty"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
}

type Result struct {
	Status              string         `json:"status"`
	RAGExternalResponse *RAGResponse   `json:"rag_response,omitempty"`
	IngestResults       []IngestResult `json:"ingest_results,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// IngestResult is the outcome of one uploaded file.
type IngestResult struct {
	File        string `json:"file" example:"informe.pdf"`
	Status      string `json:"status" example:"stored"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
	Chunks      int    `json:"chunks,omitempty" example:"12"`
	Message     string `json:"message,omitempty"`
}

type IngestResponse struct {
	Results []IngestResult `json:"results"`
}

type QueryResponse struct {
	Answer  string   `json:"answer" example:"Las vacaciones son 22 días."`
	Sources []string `json:"sources"`
}

type DeleteResponse struct {
	Name     string   `json:"name" example:"informe.pdf"`
	Deleted  bool     `json:"deleted"`
	Warnings []string `json:"warnings,omitempty"`
}

type LibraryResponse struct {
	Count     int                         `json:"count"`
	Documents []commonModels.LibraryEntry `json:"documents"`
}

// requests---------------------

type QueryRequest struct {
	Question string `json:"question" validate:"required" example:"¿Cuántos días de vacaciones tengo?"`
}
