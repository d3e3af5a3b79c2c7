package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/poolcare-ownerverify/internal/audit"
	"github.com/poolcare-ownerverify/internal/verify"
)

const customerColumns = `
	id, first_name, last_name, address, city, state, zip_code,
	mailing_address, mailing_city, mailing_state, mailing_zip_code,
	previous_first_name, previous_last_name, owner_changed_date, owner_changed_by,
	owner_verified_at, owner_verified_by, pima_county_resident,
	verification_status, updated_at
`

const assessorColumns = `
	id, parcel_number, owner_name, mail1, mail2, mail3, mail4, mail5,
	zip, zip4, updated_owner_name, is_owner_updated, owner_updated_at, owner_updated_by
`

// Postgres is the data-access layer over the customer and assessor
// tables. It implements the verify package's searcher, lister and mutator
// interfaces.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open connection.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// DB exposes the underlying connection for audit history queries.
func (s *Postgres) DB() *sql.DB {
	return s.db
}

// --- assessor reads ---

// SearchByAddress finds records whose canonical property address contains
// the given normalized address string.
func (s *Postgres) SearchByAddress(ctx context.Context, addr string) ([]verify.AssessorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assessorColumns+`
		FROM assessor_record
		WHERE address_canonical <> '' AND address_canonical LIKE '%' || $1 || '%'
		ORDER BY id
		LIMIT 100
	`, addr)
	if err != nil {
		return nil, fmt.Errorf("search by address: %w", err)
	}
	defer rows.Close()

	return scanAssessorRows(rows)
}

// SearchByHouseNumber finds records whose property address starts with the
// given house number.
func (s *Postgres) SearchByHouseNumber(ctx context.Context, houseNumber string) ([]verify.AssessorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assessorColumns+`
		FROM assessor_record
		WHERE house_number = $1
		ORDER BY id
		LIMIT 200
	`, houseNumber)
	if err != nil {
		return nil, fmt.Errorf("search by house number: %w", err)
	}
	defer rows.Close()

	return scanAssessorRows(rows)
}

// SearchByOwnerPrefix finds records whose owner name or staff override
// starts with the given last name, case-insensitive.
func (s *Postgres) SearchByOwnerPrefix(ctx context.Context, lastName string, limit int) ([]verify.AssessorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assessorColumns+`
		FROM assessor_record
		WHERE UPPER(owner_name) LIKE UPPER($1) || '%'
		   OR (updated_owner_name IS NOT NULL AND UPPER(updated_owner_name) LIKE UPPER($1) || '%')
		ORDER BY owner_name, id
		LIMIT $2
	`, lastName, limit)
	if err != nil {
		return nil, fmt.Errorf("search by owner prefix: %w", err)
	}
	defer rows.Close()

	return scanAssessorRows(rows)
}

// SearchAssessor is the paginated full-dataset text search backing manual
// disambiguation: owner name, staff override, address lines and parcel
// number. Returns the page of records and the total count.
func (s *Postgres) SearchAssessor(ctx context.Context, query string, page, perPage int) ([]verify.AssessorRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	offset := (page - 1) * perPage
	pattern := "%" + query + "%"

	where := `
		WHERE owner_name ILIKE $1
		   OR updated_owner_name ILIKE $1
		   OR mail1 ILIKE $1 OR mail2 ILIKE $1 OR mail3 ILIKE $1
		   OR parcel_number ILIKE $1
	`

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assessor_record `+where, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count assessor search: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assessorColumns+`
		FROM assessor_record `+where+`
		ORDER BY owner_name, id
		LIMIT $2 OFFSET $3
	`, pattern, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("assessor search: %w", err)
	}
	defer rows.Close()

	recs, err := scanAssessorRows(rows)
	return recs, total, err
}

// GetAssessorRecord fetches one record by id.
func (s *Postgres) GetAssessorRecord(ctx context.Context, id int64) (*verify.AssessorRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assessorColumns+`
		FROM assessor_record
		WHERE id = $1
	`, id)

	rec, err := scanAssessorRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assessor record %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get assessor record %d: %w", id, err)
	}
	return rec, nil
}

// CountAssessorRecords returns the dataset size.
func (s *Postgres) CountAssessorRecords(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assessor_record`).Scan(&count)
	return count, err
}

// --- customer reads ---

// PendingVerification lists customers awaiting verification: they have a
// street address, have never been verified, and have not been flagged out
// of the coverage region.
func (s *Postgres) PendingVerification(ctx context.Context, limit int) ([]verify.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customer
		WHERE address <> ''
		  AND owner_verified_at IS NULL
		  AND pima_county_resident IS DISTINCT FROM FALSE
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending customers: %w", err)
	}
	defer rows.Close()

	var customers []verify.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// GetCustomer fetches one customer by id.
func (s *Postgres) GetCustomer(ctx context.Context, id int64) (*verify.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customer
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get customer %d: %w", id, err)
		}
		return nil, fmt.Errorf("customer %d not found", id)
	}
	return scanCustomer(rows)
}

// --- customer writes ---

// MarkVerified stamps the verified fields. Idempotent: repeat calls just
// refresh the timestamp.
func (s *Postgres) MarkVerified(ctx context.Context, customerID int64, by string, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		oldStatus, err := s.currentStatus(ctx, tx, customerID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE customer
			SET owner_verified_at = $2,
			    owner_verified_by = $3,
			    verification_status = $4,
			    updated_at = $2
			WHERE id = $1
		`, customerID, at, by, verify.StatusVerified)
		if err != nil {
			return fmt.Errorf("update customer %d: %w", customerID, err)
		}
		if err := requireRow(res, customerID); err != nil {
			return err
		}

		return audit.Record(ctx, tx, audit.Entry{
			CustomerID:  customerID,
			Action:      audit.ActionMarkVerified,
			OldStatus:   oldStatus,
			NewStatus:   verify.StatusVerified,
			PerformedBy: by,
			PerformedAt: at,
		})
	})
}

// ApplyOwnerChange commits the full owner-change field set in one
// transaction: names swapped, previous names preserved, change and
// verification stamps set together.
func (s *Postgres) ApplyOwnerChange(ctx context.Context, customerID int64, change verify.OwnerChange) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		oldStatus, err := s.currentStatus(ctx, tx, customerID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE customer
			SET previous_first_name = $2,
			    previous_last_name = $3,
			    first_name = $4,
			    last_name = $5,
			    owner_changed_date = $6,
			    owner_changed_by = $7,
			    owner_verified_at = $6,
			    owner_verified_by = $7,
			    verification_status = $8,
			    updated_at = $6
			WHERE id = $1
		`, customerID, change.PreviousFirstName, change.PreviousLastName,
			change.FirstName, change.LastName, change.ChangedAt, change.ChangedBy,
			verify.StatusOwnerChanged)
		if err != nil {
			return fmt.Errorf("update customer %d: %w", customerID, err)
		}
		if err := requireRow(res, customerID); err != nil {
			return err
		}

		return audit.Record(ctx, tx, audit.Entry{
			CustomerID: customerID,
			Action:     audit.ActionOwnerChange,
			OldStatus:  oldStatus,
			NewStatus:  verify.StatusOwnerChanged,
			Details: map[string]interface{}{
				"previous_first_name": change.PreviousFirstName,
				"previous_last_name":  change.PreviousLastName,
				"new_first_name":      change.FirstName,
				"new_last_name":       change.LastName,
			},
			PerformedBy: change.ChangedBy,
			PerformedAt: change.ChangedAt,
		})
	})
}

// AdoptMailing updates the four mailing fields from the assessor record
// and marks the customer verified in the same write.
func (s *Postgres) AdoptMailing(ctx context.Context, customerID int64, m verify.MailingAddress, by string, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		oldStatus, err := s.currentStatus(ctx, tx, customerID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE customer
			SET mailing_address = $2,
			    mailing_city = $3,
			    mailing_state = $4,
			    mailing_zip_code = $5,
			    owner_verified_at = $6,
			    owner_verified_by = $7,
			    verification_status = $8,
			    updated_at = $6
			WHERE id = $1
		`, customerID, m.Address, m.City, m.State, m.Zip, at, by, verify.StatusVerified)
		if err != nil {
			return fmt.Errorf("update customer %d: %w", customerID, err)
		}
		if err := requireRow(res, customerID); err != nil {
			return err
		}

		return audit.Record(ctx, tx, audit.Entry{
			CustomerID: customerID,
			Action:     audit.ActionAdoptMailing,
			OldStatus:  oldStatus,
			NewStatus:  verify.StatusVerified,
			Details: map[string]interface{}{
				"mailing_address": m.Address,
				"mailing_city":    m.City,
				"mailing_state":   m.State,
				"mailing_zip":     m.Zip,
			},
			PerformedBy: by,
			PerformedAt: at,
		})
	})
}

// FlagNonPima marks the customer's property as outside the assessor
// dataset's coverage region, excluding it from automated matching.
func (s *Postgres) FlagNonPima(ctx context.Context, customerID int64, by string, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		oldStatus, err := s.currentStatus(ctx, tx, customerID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE customer
			SET pima_county_resident = FALSE,
			    verification_status = $2,
			    updated_at = $3
			WHERE id = $1
		`, customerID, verify.StatusNonPima, at)
		if err != nil {
			return fmt.Errorf("update customer %d: %w", customerID, err)
		}
		if err := requireRow(res, customerID); err != nil {
			return err
		}

		return audit.Record(ctx, tx, audit.Entry{
			CustomerID:  customerID,
			Action:      audit.ActionFlagNonPima,
			OldStatus:   oldStatus,
			NewStatus:   verify.StatusNonPima,
			PerformedBy: by,
			PerformedAt: at,
		})
	})
}

// --- assessor writes ---

// UpdateOwnerName records a staff correction of the roll's owner name.
func (s *Postgres) UpdateOwnerName(ctx context.Context, recordID int64, name, by string, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE assessor_record
			SET updated_owner_name = $2,
			    is_owner_updated = TRUE,
			    owner_updated_at = $3,
			    owner_updated_by = $4
			WHERE id = $1
		`, recordID, name, at, by)
		if err != nil {
			return fmt.Errorf("update assessor record %d: %w", recordID, err)
		}
		n, err := res.RowsAffected()
		if err == nil && n == 0 {
			return fmt.Errorf("assessor record %d not found", recordID)
		}

		return audit.Record(ctx, tx, audit.Entry{
			AssessorRecordID: &recordID,
			Action:           audit.ActionOwnerNameUpdate,
			Details:          map[string]interface{}{"updated_owner_name": name},
			PerformedBy:      by,
			PerformedAt:      at,
		})
	})
}

// --- helpers ---

func (s *Postgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Postgres) currentStatus(ctx context.Context, tx *sql.Tx, customerID int64) (string, error) {
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT verification_status FROM customer WHERE id = $1`, customerID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("customer %d not found", customerID)
	}
	if err != nil {
		return "", fmt.Errorf("read customer %d status: %w", customerID, err)
	}
	return status, nil
}

func requireRow(res sql.Result, customerID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return fmt.Errorf("customer %d not found", customerID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row rowScanner) (*verify.Customer, error) {
	var c verify.Customer
	var ownerChanged, ownerVerified sql.NullTime
	var pimaResident sql.NullBool

	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Address, &c.City, &c.State, &c.ZipCode,
		&c.MailingAddress, &c.MailingCity, &c.MailingState, &c.MailingZip,
		&c.PreviousFirstName, &c.PreviousLastName, &ownerChanged, &c.OwnerChangedBy,
		&ownerVerified, &c.OwnerVerifiedBy, &pimaResident,
		&c.VerificationStatus, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}

	if ownerChanged.Valid {
		c.OwnerChangedDate = &ownerChanged.Time
	}
	if ownerVerified.Valid {
		c.OwnerVerifiedAt = &ownerVerified.Time
	}
	if pimaResident.Valid {
		c.PimaCountyResident = &pimaResident.Bool
	}
	// Rows created before the status column gained its default carry "".
	if c.VerificationStatus == "" {
		c.VerificationStatus = verify.StatusUnverified
	}
	return &c, nil
}

func scanAssessorRow(row rowScanner) (*verify.AssessorRecord, error) {
	var rec verify.AssessorRecord
	var updatedName sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.ParcelNumber, &rec.OwnerName,
		&rec.Mail1, &rec.Mail2, &rec.Mail3, &rec.Mail4, &rec.Mail5,
		&rec.Zip, &rec.Zip4, &updatedName, &rec.IsOwnerUpdated,
		&updatedAt, &rec.OwnerUpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if updatedName.Valid {
		rec.UpdatedOwnerName = &updatedName.String
	}
	if updatedAt.Valid {
		rec.OwnerUpdatedAt = &updatedAt.Time
	}
	return &rec, nil
}

func scanAssessorRows(rows *sql.Rows) ([]verify.AssessorRecord, error) {
	var recs []verify.AssessorRecord
	for rows.Next() {
		rec, err := scanAssessorRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessor record: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}
