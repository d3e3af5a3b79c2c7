package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/poolcare-ownerverify/internal/audit"
	"github.com/poolcare-ownerverify/internal/store"
	"github.com/poolcare-ownerverify/internal/verify"
)

// CustomersHandler serves the verification workflow: pending list,
// pipeline runs, candidate listing and the reconciler actions.
type CustomersHandler struct {
	Store      *store.Postgres
	Pipeline   *verify.Pipeline
	Reconciler *verify.Reconciler
	Config     *Config
}

// ListPending returns customers awaiting ownership verification.
func (h *CustomersHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r.URL.Query().Get("limit"), 50)
	if limit > 500 {
		limit = 500
	}

	customers, err := h.Store.PendingVerification(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pending customers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customers": customers,
		"count":     len(customers),
	})
}

// Verify runs the automated pipeline for one customer and returns either a
// comparison verdict or candidates needing manual choice. Read-only and
// safe to re-invoke.
func (h *CustomersHandler) Verify(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.customerFromPath(w, r)
	if !ok {
		return
	}

	outcome := h.Pipeline.VerifyOne(r.Context(), customer)
	writeJSON(w, http.StatusOK, outcome)
}

// VerifyBatch runs the pipeline over pending customers, capped per
// invocation; the limit parameter can only lower the cap.
func (h *CustomersHandler) VerifyBatch(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r.URL.Query().Get("limit"), verify.MaxBatchSize)

	outcomes, err := h.Pipeline.VerifyPending(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "batch verification failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"outcomes": outcomes,
		"count":    len(outcomes),
	})
}

// Candidates returns the located candidates for a customer ranked for
// manual review.
func (h *CustomersHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.customerFromPath(w, r)
	if !ok {
		return
	}

	outcome := h.Pipeline.VerifyOne(r.Context(), customer)

	var options []verify.RankedCandidate
	if outcome.Resolution != nil {
		options = outcome.Resolution.Options
	} else if outcome.Result != nil && outcome.Result.Record != nil {
		options = []verify.RankedCandidate{{Record: *outcome.Result.Record, Score: 2}}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customer":   customer,
		"candidates": options,
	})
}

// Accept marks a customer verified against an operator-chosen record.
func (h *CustomersHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if !h.writesAllowed(w) {
		return
	}
	customer, ok := h.customerFromPath(w, r)
	if !ok {
		return
	}

	if err := h.Reconciler.MarkVerified(r.Context(), customer, operator(r)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark customer verified")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// OwnerChange records that the property changed hands, preserving the
// outgoing name.
func (h *CustomersHandler) OwnerChange(w http.ResponseWriter, r *http.Request) {
	if !h.writesAllowed(w) {
		return
	}
	customer, ok := h.customerFromPath(w, r)
	if !ok {
		return
	}

	var body struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := h.Reconciler.RecordOwnerChange(r.Context(), customer, body.FirstName, body.LastName, operator(r))
	if errors.Is(err, verify.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record owner change")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// AdoptMailing copies the chosen assessor record's mailing address onto
// the customer.
func (h *CustomersHandler) AdoptMailing(w http.ResponseWriter, r *http.Request) {
	if !h.writesAllowed(w) {
		return
	}
	customer, ok := h.customerFromPath(w, r)
	if !ok {
		return
	}

	var body struct {
		RecordID int64 `json:"record_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	record, err := h.Store.GetAssessorRecord(r.Context(), body.RecordID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown assessor record")
		return
	}

	if err := h.Reconciler.AdoptMailingAddress(r.Context(), customer, record, operator(r)); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// FlagNonPima marks the customer's property as outside the assessor
// dataset's coverage region.
func (h *CustomersHandler) FlagNonPima(w http.ResponseWriter, r *http.Request) {
	if !h.writesAllowed(w) {
		return
	}
	customer, ok := h.customerFromPath(w, r)
	if !ok {
		return
	}

	if err := h.Reconciler.FlagOutOfCoverage(r.Context(), customer, operator(r)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to flag customer")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// History returns the customer's verification audit trail.
func (h *CustomersHandler) History(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.customerFromPath(w, r)
	if !ok {
		return
	}

	limit := parseIntParam(r.URL.Query().Get("limit"), 50)
	entries, err := audit.History(r.Context(), h.Store.DB(), customer.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customer_id": customer.ID,
		"history":     entries,
	})
}

func (h *CustomersHandler) customerFromPath(w http.ResponseWriter, r *http.Request) (*verify.Customer, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return nil, false
	}

	customer, err := h.Store.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return nil, false
	}
	return customer, true
}

func (h *CustomersHandler) writesAllowed(w http.ResponseWriter) bool {
	if !h.Config.Features.WritesEnabled {
		writeError(w, http.StatusForbidden, "write operations are disabled")
		return false
	}
	return true
}
