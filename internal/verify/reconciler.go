package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation marks operator input rejected before any write.
var ErrValidation = errors.New("validation failed")

// OwnerChange is the full field set written when a property changes hands:
// the new names, the names they replace, and the audit stamps.
type OwnerChange struct {
	FirstName         string
	LastName          string
	PreviousFirstName string
	PreviousLastName  string
	ChangedBy         string
	ChangedAt         time.Time
}

// CustomerMutator is the write side of the customer store consumed by the
// reconciler. Each method commits its full field set in one transaction;
// a returned error means nothing was written.
type CustomerMutator interface {
	MarkVerified(ctx context.Context, customerID int64, by string, at time.Time) error
	ApplyOwnerChange(ctx context.Context, customerID int64, change OwnerChange) error
	AdoptMailing(ctx context.Context, customerID int64, m MailingAddress, by string, at time.Time) error
	FlagNonPima(ctx context.Context, customerID int64, by string, at time.Time) error
}

// AssessorMutator covers the single write this system makes to the
// assessor dataset: staff correction of a known-bad owner name.
type AssessorMutator interface {
	UpdateOwnerName(ctx context.Context, recordID int64, name, by string, at time.Time) error
}

// Reconciler commits operator decisions to the customer record. The
// operator identity is passed into every call rather than read from
// ambient state, and every method mutates the in-memory customer only
// after the store write succeeds.
type Reconciler struct {
	customers CustomerMutator
	assessor  AssessorMutator
	now       func() time.Time
}

// NewReconciler creates a reconciler over the given stores.
func NewReconciler(customers CustomerMutator, assessor AssessorMutator) *Reconciler {
	return &Reconciler{customers: customers, assessor: assessor, now: time.Now}
}

// MarkVerified stamps the customer as ownership-verified by the operator.
// Idempotent: a repeat call just refreshes the timestamp.
func (r *Reconciler) MarkVerified(ctx context.Context, c *Customer, operator string) error {
	at := r.now()
	if err := r.customers.MarkVerified(ctx, c.ID, operator, at); err != nil {
		return fmt.Errorf("mark customer %d verified: %w", c.ID, err)
	}

	c.OwnerVerifiedAt = &at
	c.OwnerVerifiedBy = operator
	c.VerificationStatus = StatusVerified
	c.UpdatedAt = at
	return nil
}

// RecordOwnerChange replaces the customer's name with the new owner's,
// preserving the outgoing name in the previous-name fields. An owner
// change implies verification, so the verified stamps are set in the same
// write. Both names are required; nothing is written otherwise.
func (r *Reconciler) RecordOwnerChange(ctx context.Context, c *Customer, newFirst, newLast, operator string) error {
	newFirst = strings.TrimSpace(newFirst)
	newLast = strings.TrimSpace(newLast)
	if newFirst == "" || newLast == "" {
		return fmt.Errorf("owner change requires both first and last name: %w", ErrValidation)
	}

	at := r.now()
	change := OwnerChange{
		FirstName:         newFirst,
		LastName:          newLast,
		PreviousFirstName: c.FirstName,
		PreviousLastName:  c.LastName,
		ChangedBy:         operator,
		ChangedAt:         at,
	}

	if err := r.customers.ApplyOwnerChange(ctx, c.ID, change); err != nil {
		return fmt.Errorf("record owner change for customer %d: %w", c.ID, err)
	}

	c.PreviousFirstName = change.PreviousFirstName
	c.PreviousLastName = change.PreviousLastName
	c.FirstName = newFirst
	c.LastName = newLast
	c.OwnerChangedDate = &at
	c.OwnerChangedBy = operator
	c.OwnerVerifiedAt = &at
	c.OwnerVerifiedBy = operator
	c.VerificationStatus = StatusOwnerChanged
	c.UpdatedAt = at
	return nil
}

// AdoptMailingAddress parses the assessor record's mailing lines and
// copies them onto the customer's mailing fields. Adopting the assessor
// address is a human confirmation that it is authoritative, so the
// customer is marked verified in the same write.
func (r *Reconciler) AdoptMailingAddress(ctx context.Context, c *Customer, rec *AssessorRecord, operator string) error {
	mailing, err := ParseMailingLines(rec.MailLines())
	if err != nil {
		return fmt.Errorf("parse mailing address for parcel %s: %w", rec.ParcelNumber, err)
	}

	at := r.now()
	if err := r.customers.AdoptMailing(ctx, c.ID, mailing, operator, at); err != nil {
		return fmt.Errorf("adopt mailing address for customer %d: %w", c.ID, err)
	}

	c.MailingAddress = mailing.Address
	c.MailingCity = mailing.City
	c.MailingState = mailing.State
	c.MailingZip = mailing.Zip
	c.OwnerVerifiedAt = &at
	c.OwnerVerifiedBy = operator
	c.VerificationStatus = StatusVerified
	c.UpdatedAt = at
	return nil
}

// FlagOutOfCoverage marks the customer's property as outside Pima County,
// removing it from further automated matching until manually reset.
func (r *Reconciler) FlagOutOfCoverage(ctx context.Context, c *Customer, operator string) error {
	at := r.now()
	if err := r.customers.FlagNonPima(ctx, c.ID, operator, at); err != nil {
		return fmt.Errorf("flag customer %d out of coverage: %w", c.ID, err)
	}

	outside := false
	c.PimaCountyResident = &outside
	c.VerificationStatus = StatusNonPima
	c.UpdatedAt = at
	return nil
}

// CorrectOwnerName records a staff override of a known-bad owner name on
// the assessor record itself. The override supersedes the raw roll value
// for all later comparisons.
func (r *Reconciler) CorrectOwnerName(ctx context.Context, rec *AssessorRecord, name, operator string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("owner name correction requires a name: %w", ErrValidation)
	}

	at := r.now()
	if err := r.assessor.UpdateOwnerName(ctx, rec.ID, name, operator, at); err != nil {
		return fmt.Errorf("correct owner name on parcel %s: %w", rec.ParcelNumber, err)
	}

	rec.UpdatedOwnerName = &name
	rec.IsOwnerUpdated = true
	rec.OwnerUpdatedAt = &at
	rec.OwnerUpdatedBy = operator
	return nil
}
