package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/poolcare-ownerverify/internal/importer"
	"github.com/poolcare-ownerverify/internal/store"
)

// ImportHandler drives the chunked assessor-roll import over HTTP. Each
// request imports exactly one batch; the caller inspects the returned
// progress and decides whether to request the next.
type ImportHandler struct {
	Store    *store.Postgres
	Importer *importer.Importer
	Config   *Config
}

// RunBatch imports one batch of the roll extract.
func (h *ImportHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	if !h.Config.Features.ImportEnabled {
		writeError(w, http.StatusForbidden, "import is disabled")
		return
	}

	var body struct {
		Filename    string `json:"filename"`
		BatchNumber int    `json:"batch_number"`
		BatchSize   int    `json:"batch_size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Filename == "" {
		writeError(w, http.StatusBadRequest, "missing filename")
		return
	}

	progress, err := h.Importer.ImportBatch(r.Context(), body.Filename, body.BatchNumber, body.BatchSize)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// Progress returns the persisted import cursor.
func (h *ImportHandler) Progress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.Importer.Cursor(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read import progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// Stats reports dataset-level counts for the admin dashboard.
func (h *ImportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.Store.CountAssessorRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assessor_records": count,
	})
}
