package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/akolanti/DocVault/internal/adapter"
	"github.com/akolanti/DocVault/internal/adapter/utils"
	"github.com/akolanti/DocVault/internal/api"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/domain/jobModel"
	"github.com/akolanti/DocVault/internal/rag/lifecycle"
)

type uploadForm struct {
	accessLevel     commonModels.AccessLevel
	ownerDepartment string
	files           []*multipart.FileHeader
}

// PostDocumentsHandler godoc
// @Summary      Upload documents
// @Description  Stores and indexes every file of the request. Each file gets its own outcome; one failure never affects its siblings.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        X-Department      header    string  false  "Caller department"
// @Param        files             formData  file    true   "Files to upload, repeatable"
// @Param        access_level      formData  string  true   "publico, departamento or privado"
// @Param        owner_department  formData  string  false  "Owner department, defaults to the caller's"
// @Success      200  {object}  api.IngestResponse
// @Failure      400  {object}  api.JobResponse  "Missing fields, bad access level or file too large"
// @Router       /documents [post]
func (h *Handler) PostDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	form, err := h.parseUploadForm(w, r)
	if err != nil {
		writeError(w, r, "", err)
		return
	}

	files := make([]commonModels.UploadFile, 0, len(form.files))
	for _, header := range form.files {
		content, err := readPart(header)
		if err != nil {
			writeError(w, r, header.Filename, fmt.Errorf("%w: reading %s: %v", errBadUpload, header.Filename, err))
			return
		}
		files = append(files, commonModels.UploadFile{
			Name:            header.Filename,
			Content:         content,
			AccessLevel:     form.accessLevel,
			OwnerDepartment: form.ownerDepartment,
		})
	}

	outcomes := h.ingester.IngestBatch(r.Context(), files)
	writeJsonResponse(w, http.StatusOK, api.IngestResponse{Results: adapter.ToIngestResults(outcomes)})
}

// PostIngestJobHandler godoc
// @Summary      Queue documents for ingestion
// @Description  Stages the files and queues an ingest job. Per-file outcomes appear in the job status.
// @Tags         Jobs
// @Accept       multipart/form-data
// @Produce      json
// @Param        X-Department      header    string  false  "Caller department"
// @Param        files             formData  file    true   "Files to upload, repeatable"
// @Param        access_level      formData  string  true   "publico, departamento or privado"
// @Param        owner_department  formData  string  false  "Owner department, defaults to the caller's"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.JobResponse  "Missing fields or file too large"
// @Failure      500  {object}  api.JobResponse  "Storage or write error"
// @Router       /jobs/ingest [post]
func (h *Handler) PostIngestJobHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	form, err := h.parseUploadForm(w, r)
	if err != nil {
		writeError(w, r, "", err)
		return
	}

	staged, err := h.stage(form)
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Couldn't stage upload", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	data := jobDataFrom(r.Context())
	data.files = staged
	created, err := h.createNewJob(r.Context(), data)
	if err != nil {
		removeStaged(staged)
		writeError(w, r, created.Id, err)
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(created.Id))
}

// ListDocumentsHandler godoc
// @Summary      List the library
// @Description  Documents visible to the caller's department, optionally filtered.
// @Tags         Documents
// @Produce      json
// @Param        X-Department  header    string    false  "Caller department"
// @Param        q             query     string    false  "Case-insensitive name substring"
// @Param        department    query     []string  false  "Owner department, repeatable"
// @Param        type          query     []string  false  "Type such as PDF, repeatable"
// @Success      200  {object}  api.LibraryResponse
// @Router       /documents [get]
func (h *Handler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	query := r.URL.Query()
	filter := lifecycle.ListFilter{
		Query:       query.Get("q"),
		Departments: query["department"],
		Types:       query["type"],
	}
	entries, err := h.library.ListVisible(r.Context(), utils.DepartmentFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToLibraryResponse(entries))
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Removes the blob, its metadata and its index entries. Only documents visible to the caller's department can be deleted; others answer 404. Index cleanup failures come back as warnings.
// @Tags         Documents
// @Produce      json
// @Param        name  path      string  true  "Document name"
// @Success      200   {object}  api.DeleteResponse
// @Failure      400   {object}  api.JobResponse  "Invalid name"
// @Failure      403   {object}  api.JobResponse  "No department claimed"
// @Failure      404   {object}  api.JobResponse  "Document not found"
// @Router       /documents/{name} [delete]
func (h *Handler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	name, err := url.PathUnescape(utils.GetChiURLParam(r, "name"))
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "invalid document name")
		return
	}

	result, err := h.library.Delete(r.Context(), name, utils.DepartmentFromContext(r.Context()))
	if err != nil {
		writeError(w, r, name, err)
		return
	}
	if !result.Deleted {
		writeError(w, r, name, commonModels.ErrDocumentNotFound)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDeleteResponse(name, result))
}

func (h *Handler) parseUploadForm(w http.ResponseWriter, r *http.Request) (uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(h.opts.MaxUploadSize); err != nil {
		return uploadForm{}, fmt.Errorf("%w: file too large or bad request", errBadUpload)
	}

	level, err := commonModels.ParseAccessLevel(r.FormValue("access_level"))
	if err != nil {
		return uploadForm{}, err
	}

	owner := strings.TrimSpace(r.FormValue("owner_department"))
	if owner == "" {
		owner = utils.DepartmentFromContext(r.Context())
	}
	if owner == "" {
		return uploadForm{}, fmt.Errorf("%w: owner_department is required", errBadUpload)
	}
	if !slices.Contains(h.opts.Departments, owner) {
		return uploadForm{}, fmt.Errorf("%w: %q", commonModels.ErrUnknownDepartment, owner)
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return uploadForm{}, fmt.Errorf("%w: no files", errBadUpload)
	}
	return uploadForm{accessLevel: level, ownerDepartment: owner, files: files}, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// stage copies every part to the staging directory. On error nothing staged
// is left behind.
func (h *Handler) stage(form uploadForm) ([]jobModel.StagedFile, error) {
	if err := ensureDirectory(h.opts.StagingDir); err != nil {
		return nil, err
	}
	staged := make([]jobModel.StagedFile, 0, len(form.files))
	for _, header := range form.files {
		path := filepath.Join(h.opts.StagingDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), utils.GetNewUUID()))
		if err := copyPart(header, path); err != nil {
			removeStaged(staged)
			return nil, err
		}
		staged = append(staged, jobModel.StagedFile{
			Name:            header.Filename,
			Path:            path,
			AccessLevel:     form.accessLevel,
			OwnerDepartment: form.ownerDepartment,
		})
	}
	return staged, nil
}

func copyPart(header *multipart.FileHeader, path string) error {
	fileReader, err := header.Open()
	if err != nil {
		return err
	}
	defer fileReader.Close()

	destinationFileWriter, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = io.Copy(destinationFileWriter, fileReader); err != nil {
		destinationFileWriter.Close()
		os.Remove(path)
		return err
	}
	return destinationFileWriter.Close()
}

func removeStaged(staged []jobModel.StagedFile) {
	for _, f := range staged {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			logRH.Warn("Couldn't remove staged file", "path", f.Path, "err", err)
		}
	}
}
