package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/DocVault/internal/adapter"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/job"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

var errBadUpload = errors.New("bad upload request")

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "err", err)
	}
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.WithTrace(ctx).Warn("context error", "err", ctx.Err())
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, commonModels.ErrEmptyQuestion),
		errors.Is(err, commonModels.ErrInvalidDocumentName),
		errors.Is(err, commonModels.ErrInvalidAccessLevel),
		errors.Is(err, commonModels.ErrUnknownDepartment),
		errors.Is(err, commonModels.ErrUnsupportedExtension),
		errors.Is(err, errBadUpload):
		return http.StatusBadRequest
	case errors.Is(err, commonModels.ErrDepartmentRequired):
		return http.StatusForbidden
	case errors.Is(err, commonModels.ErrDocumentNotFound), errors.Is(err, job.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// publicMessage hides collaborator details behind the sentinel for 5xx.
func publicMessage(err error) string {
	switch {
	case statusFor(err) < http.StatusInternalServerError:
		return err.Error()
	case errors.Is(err, commonModels.ErrRetrievalFailed):
		return commonModels.ErrRetrievalFailed.Error()
	case errors.Is(err, commonModels.ErrConfiguration):
		return commonModels.ErrConfiguration.Error()
	}
	return "internal error"
}

func writeError(w http.ResponseWriter, r *http.Request, id string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logRH.WithTrace(r.Context()).Error("Request failed", "path", r.URL.Path, "err", err)
	}
	WriteErrorResponse(w, code, id, publicMessage(err))
}

func ensureDirectory(dir string) error {
	return os.MkdirAll(dir, 0o750)
}
