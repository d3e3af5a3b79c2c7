package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/poolcare-ownerverify/internal/store"
	"github.com/poolcare-ownerverify/internal/verify"
)

// AssessorHandler serves the full-dataset search backing manual
// disambiguation and the staff owner-name correction.
type AssessorHandler struct {
	Store      *store.Postgres
	Reconciler *verify.Reconciler
	Config     *Config
}

// Search is a paginated text search over owner name, address lines and
// parcel number.
func (h *AssessorHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := query.Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	page := parseIntParam(query.Get("page"), 1)
	perPage := parseIntParam(query.Get("per_page"), 50)

	records, total, err := h.Store.SearchAssessor(r.Context(), q, page, perPage)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "assessor search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records":  records,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// Get fetches one assessor record by id.
func (h *AssessorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	record, err := h.Store.GetAssessorRecord(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "assessor record not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// UpdateOwnerName records a staff correction of a known-bad owner name.
// The override supersedes the roll value for comparison and display.
func (h *AssessorHandler) UpdateOwnerName(w http.ResponseWriter, r *http.Request) {
	if !h.Config.Features.WritesEnabled {
		writeError(w, http.StatusForbidden, "write operations are disabled")
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	record, err := h.Store.GetAssessorRecord(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "assessor record not found")
		return
	}

	var body struct {
		OwnerName string `json:"owner_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err = h.Reconciler.CorrectOwnerName(r.Context(), record, body.OwnerName, operator(r))
	if errors.Is(err, verify.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update owner name")
		return
	}
	writeJSON(w, http.StatusOK, record)
}
