package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Action values recorded in the verification audit trail.
const (
	ActionMarkVerified    = "mark_verified"
	ActionOwnerChange     = "owner_change"
	ActionAdoptMailing    = "adopt_mailing"
	ActionFlagNonPima     = "flag_non_pima"
	ActionOwnerNameUpdate = "owner_name_update"
)

// Execer is satisfied by both *sql.DB and *sql.Tx so entries can be
// written inside the transaction that carries the customer mutation.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Entry is one row in the verification audit trail: who did what to which
// customer, with enough before/after context to reconstruct the decision.
type Entry struct {
	CustomerID       int64
	AssessorRecordID *int64
	Action           string
	OldStatus        string
	NewStatus        string
	Details          map[string]interface{}
	PerformedBy      string
	ClientInfo       string
	PerformedAt      time.Time
}

// Record writes one audit entry. Callers pass their open transaction so
// the trail commits or rolls back with the mutation it describes.
func Record(ctx context.Context, exec Execer, e Entry) error {
	var details []byte
	if e.Details != nil {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	if e.PerformedAt.IsZero() {
		e.PerformedAt = time.Now()
	}

	_, err := exec.ExecContext(ctx, `
		INSERT INTO verification_audit (
			customer_id, assessor_record_id, action, old_status, new_status,
			details, performed_by, client_info, performed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.CustomerID, e.AssessorRecordID, e.Action, e.OldStatus, e.NewStatus,
		details, e.PerformedBy, e.ClientInfo, e.PerformedAt)

	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the audit trail for one customer, newest first.
func History(ctx context.Context, db *sql.DB, customerID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
		SELECT customer_id, assessor_record_id, action, old_status, new_status,
		       COALESCE(details, 'null'), performed_by, client_info, performed_at
		FROM verification_audit
		WHERE customer_id = $1
		ORDER BY performed_at DESC, audit_id DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recordID sql.NullInt64
		var details []byte

		err := rows.Scan(&e.CustomerID, &recordID, &e.Action, &e.OldStatus,
			&e.NewStatus, &details, &e.PerformedBy, &e.ClientInfo, &e.PerformedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if recordID.Valid {
			e.AssessorRecordID = &recordID.Int64
		}
		if len(details) > 0 {
			json.Unmarshal(details, &e.Details)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
