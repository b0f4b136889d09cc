package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/akolanti/DocVault/internal/adapter"
	"github.com/akolanti/DocVault/internal/adapter/utils"
	"github.com/akolanti/DocVault/internal/api"
	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/job"
	"github.com/akolanti/DocVault/internal/rag"
	"github.com/akolanti/DocVault/internal/rag/lifecycle"
)

// Library is the document lifecycle surface the handlers need.
type Library interface {
	Delete(ctx context.Context, name string, department string) (commonModels.DeleteResult, error)
	ListVisible(ctx context.Context, department string, filter lifecycle.ListFilter) ([]commonModels.LibraryEntry, error)
	Reindex(ctx context.Context, reset bool) (lifecycle.ReindexReport, error)
	Reconcile(ctx context.Context, fix bool) (lifecycle.ReconcileReport, error)
}

type Dependencies struct {
	Jobs     *job.Service
	Engine   rag.Answerer
	Ingester rag.Ingester
	Library  Library
}

type Options struct {
	MaxUploadSize int64
	// StagingDir holds uploads waiting for an ingest job.
	StagingDir  string
	Departments []string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxUploadSize: cfg.Server.MaxUploadSize,
		StagingDir:    cfg.Server.UploadTempDir,
		Departments:   cfg.Access.Departments,
	}
}

type Handler struct {
	jobs     *job.Service
	engine   rag.Answerer
	ingester rag.Ingester
	library  Library
	opts     Options
}

func New(deps Dependencies, opts Options) *Handler {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = config.MaxUploadSize
	}
	if len(opts.Departments) == 0 {
		opts.Departments = config.Departments
	}
	return &Handler{
		jobs:     deps.Jobs,
		engine:   deps.Engine,
		ingester: deps.Ingester,
		library:  deps.Library,
		opts:     opts,
	}
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// QueryHandler godoc
// @Summary      Ask a question
// @Description  Answers from the documents visible to the caller's department. Returns a fixed denial when nothing visible matches.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        X-Department  header    string            false  "Caller department"
// @Param        request       body      api.QueryRequest  true   "Question"
// @Success      200           {object}  api.QueryResponse
// @Failure      400           {object}  api.JobResponse   "Empty question"
// @Failure      500           {object}  api.JobResponse   "Retrieval failure"
// @Router       /query [post]
func (h *Handler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	requestData, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Answer(r.Context(), requestData.Question, utils.DepartmentFromContext(r.Context()))
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToQueryResponse(result))
}

// PostQueryJobHandler godoc
// @Summary      Queue a question
// @Description  Queues the question for the worker pool and returns a job ID to track status.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        X-Department  header    string               false  "Caller department"
// @Param        request       body      api.QueryRequest     true   "Question"
// @Success      202           {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400           {object}  api.JobResponse      "Invalid request data"
// @Router       /jobs/query [post]
func (h *Handler) PostQueryJobHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	requestData, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	data := jobDataFrom(r.Context())
	data.question = requestData.Question
	created, err := h.createNewJob(r.Context(), data)
	if err != nil {
		writeError(w, r, created.Id, err)
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(created.Id))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a job. Jobs of other departments are reported as not found.
// @Tags         Jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse  "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse  "Job not found"
// @Router       /status/{id} [get]
func (h *Handler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, err := h.jobs.Get(r.Context(), idString)
	if err == nil && result.Department != utils.DepartmentFromContext(r.Context()) {
		err = job.ErrJobNotFound
	}
	if err != nil {
		writeError(w, r, idString, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (api.QueryRequest, bool) {
	var requestData api.QueryRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the query reader", "err", err)
		}
	}(r.Body)

	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		logRH.WithTrace(r.Context()).Warn("Bad query request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return requestData, false
	}
	if strings.TrimSpace(requestData.Question) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", commonModels.ErrEmptyQuestion.Error())
		return requestData, false
	}
	return requestData, true
}
