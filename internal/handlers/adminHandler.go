package handlers

import (
	"net/http"
	"strconv"
)

// ReindexHandler godoc
// @Summary      Rebuild the index
// @Description  Re-extracts, re-chunks and re-embeds every stored document using its current metadata. reset=true drops the collection first.
// @Tags         Admin
// @Produce      json
// @Param        reset  query     bool  false  "Drop and recreate the collection first"
// @Success      200    {object}  lifecycle.ReindexReport
// @Failure      500    {object}  api.JobResponse
// @Router       /admin/reindex [post]
func (h *Handler) ReindexHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	reset, ok := boolParam(w, r, "reset")
	if !ok {
		return
	}
	report, err := h.library.Reindex(r.Context(), reset)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, report)
}

// ReconcileHandler godoc
// @Summary      Report storage drift
// @Description  Lists unindexed blobs, orphan metadata and stale vectors. fix=true removes orphans and stale vectors.
// @Tags         Admin
// @Produce      json
// @Param        fix  query     bool  false  "Remove orphan metadata and stale vectors"
// @Success      200  {object}  lifecycle.ReconcileReport
// @Failure      500  {object}  api.JobResponse
// @Router       /admin/reconcile [get]
func (h *Handler) ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	fix, ok := boolParam(w, r, "fix")
	if !ok {
		return
	}
	report, err := h.library.Reconcile(r.Context(), fix)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, report)
}

func boolParam(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", name+" must be a boolean")
		return false, false
	}
	return value, true
}
