package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/DocVault/internal/api"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
	}
	if len(job.JobPayload.IngestOutcomes) > 0 {
		result.IngestResults = ToIngestResults(job.JobPayload.IngestOutcomes)
	}

	return api.JobResponse{
		Id:         job.Id,
		Type:       string(job.JobType),
		Department: job.Department,
		StartTime:  job.CreatedTime,
		EndTime:    job.EndTime,
		Error:      errorPtr,
		Result:     result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question: ragData.Question,
		Answer:   ragData.Answer,
		Sources:  ragData.Sources,
	}
}

func ToIngestResults(outcomes []commonModels.IngestOutcome) []api.IngestResult {
	results := make([]api.IngestResult, 0, len(outcomes))
	for _, o := range outcomes {
		results = append(results, api.IngestResult{
			File:        o.File,
			Status:      string(o.Status),
			DuplicateOf: o.DuplicateOf,
			Chunks:      o.Chunks,
			Message:     o.Message,
		})
	}
	return results
}

func ToQueryResponse(result commonModels.QueryResult) api.QueryResponse {
	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}
	return api.QueryResponse{Answer: result.Answer, Sources: sources}
}

func ToDeleteResponse(name string, result commonModels.DeleteResult) api.DeleteResponse {
	return api.DeleteResponse{Name: name, Deleted: result.Deleted, Warnings: result.Warnings}
}

func ToLibraryResponse(entries []commonModels.LibraryEntry) api.LibraryResponse {
	if entries == nil {
		entries = []commonModels.LibraryEntry{}
	}
	return api.LibraryResponse{Count: len(entries), Documents: entries}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status:              string(api.JobStatusError),
			RAGExternalResponse: ToRAGExternalStatus(jobModel.JobPayload{}),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   code == 429 || code >= 500,
		},
	}
}
