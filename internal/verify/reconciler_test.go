package verify

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeCustomerStore records reconciler writes and can simulate a store
// rejection.
type fakeCustomerStore struct {
	failWith error

	verifiedID  int64
	verifiedBy  string
	ownerChange *OwnerChange
	mailing     *MailingAddress
	flaggedID   int64
}

func (f *fakeCustomerStore) MarkVerified(_ context.Context, id int64, by string, _ time.Time) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.verifiedID = id
	f.verifiedBy = by
	return nil
}

func (f *fakeCustomerStore) ApplyOwnerChange(_ context.Context, _ int64, change OwnerChange) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.ownerChange = &change
	return nil
}

func (f *fakeCustomerStore) AdoptMailing(_ context.Context, _ int64, m MailingAddress, _ string, _ time.Time) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mailing = &m
	return nil
}

func (f *fakeCustomerStore) FlagNonPima(_ context.Context, id int64, _ string, _ time.Time) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.flaggedID = id
	return nil
}

type fakeAssessorStore struct {
	failWith error
	name     string
}

func (f *fakeAssessorStore) UpdateOwnerName(_ context.Context, _ int64, name, _ string, _ time.Time) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.name = name
	return nil
}

func newTestReconciler(customers *fakeCustomerStore, assessor *fakeAssessorStore) *Reconciler {
	r := NewReconciler(customers, assessor)
	r.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestMarkVerified(t *testing.T) {
	store := &fakeCustomerStore{}
	r := newTestReconciler(store, &fakeAssessorStore{})
	c := &Customer{ID: 7, FirstName: "Jane", LastName: "Doe"}

	if err := r.MarkVerified(context.Background(), c, "alice"); err != nil {
		t.Fatalf("MarkVerified() error: %v", err)
	}

	if c.OwnerVerifiedAt == nil || c.OwnerVerifiedBy != "alice" {
		t.Errorf("customer not stamped: at=%v by=%q", c.OwnerVerifiedAt, c.OwnerVerifiedBy)
	}
	if c.VerificationStatus != StatusVerified {
		t.Errorf("status = %q, want %q", c.VerificationStatus, StatusVerified)
	}
	if store.verifiedID != 7 {
		t.Errorf("store wrote id %d, want 7", store.verifiedID)
	}
}

func TestRecordOwnerChange(t *testing.T) {
	store := &fakeCustomerStore{}
	r := newTestReconciler(store, &fakeAssessorStore{})
	c := &Customer{ID: 7, FirstName: "Jane", LastName: "Doe"}

	if err := r.RecordOwnerChange(context.Background(), c, "Robert", "Wilson", "alice"); err != nil {
		t.Fatalf("RecordOwnerChange() error: %v", err)
	}

	if c.PreviousFirstName != "Jane" || c.PreviousLastName != "Doe" {
		t.Errorf("previous names = %q %q, want Jane Doe", c.PreviousFirstName, c.PreviousLastName)
	}
	if c.FirstName != "Robert" || c.LastName != "Wilson" {
		t.Errorf("names = %q %q, want Robert Wilson", c.FirstName, c.LastName)
	}
	if c.OwnerChangedDate == nil || c.OwnerChangedBy != "alice" {
		t.Errorf("owner-change stamps missing: date=%v by=%q", c.OwnerChangedDate, c.OwnerChangedBy)
	}
	if c.OwnerVerifiedAt == nil {
		t.Error("owner change should imply verification")
	}
	if store.ownerChange == nil || store.ownerChange.PreviousLastName != "Doe" {
		t.Errorf("store write = %+v, want previous last name Doe", store.ownerChange)
	}
}

func TestRecordOwnerChangeValidation(t *testing.T) {
	store := &fakeCustomerStore{}
	r := newTestReconciler(store, &fakeAssessorStore{})
	c := &Customer{ID: 7, FirstName: "Jane", LastName: "Doe"}

	err := r.RecordOwnerChange(context.Background(), c, "Robert", "  ", "alice")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("RecordOwnerChange() error = %v, want ErrValidation", err)
	}

	if c.FirstName != "Jane" || c.LastName != "Doe" || c.OwnerChangedDate != nil {
		t.Errorf("customer mutated on validation failure: %+v", c)
	}
	if store.ownerChange != nil {
		t.Errorf("store written on validation failure: %+v", store.ownerChange)
	}
}

func TestRecordOwnerChangeStoreFailureLeavesCustomerUnchanged(t *testing.T) {
	store := &fakeCustomerStore{failWith: errors.New("connection reset")}
	r := newTestReconciler(store, &fakeAssessorStore{})
	c := &Customer{ID: 7, FirstName: "Jane", LastName: "Doe"}

	err := r.RecordOwnerChange(context.Background(), c, "Robert", "Wilson", "alice")
	if err == nil {
		t.Fatal("RecordOwnerChange() should surface the store failure")
	}

	if c.FirstName != "Jane" || c.OwnerChangedDate != nil || c.OwnerVerifiedAt != nil {
		t.Errorf("customer mutated despite store failure: %+v", c)
	}
}

func TestAdoptMailingAddress(t *testing.T) {
	store := &fakeCustomerStore{}
	r := newTestReconciler(store, &fakeAssessorStore{})
	c := &Customer{ID: 7, FirstName: "Jane", LastName: "Doe"}
	rec := &AssessorRecord{
		ParcelNumber: "117-05-001",
		Mail1:        "DOE JANE",
		Mail2:        "100 N 1ST AVE",
		Mail3:        "TUCSON AZ 85701-1234",
	}

	if err := r.AdoptMailingAddress(context.Background(), c, rec, "alice"); err != nil {
		t.Fatalf("AdoptMailingAddress() error: %v", err)
	}

	if c.MailingAddress != "100 N 1ST AVE" || c.MailingCity != "TUCSON" ||
		c.MailingState != "AZ" || c.MailingZip != "85701-1234" {
		t.Errorf("mailing fields = %q %q %q %q",
			c.MailingAddress, c.MailingCity, c.MailingState, c.MailingZip)
	}
	if c.OwnerVerifiedAt == nil {
		t.Error("adopting the assessor mailing address should imply verification")
	}
}

func TestAdoptMailingAddressUnparseableLines(t *testing.T) {
	store := &fakeCustomerStore{}
	r := newTestReconciler(store, &fakeAssessorStore{})
	c := &Customer{ID: 7}
	rec := &AssessorRecord{ParcelNumber: "117-05-001", Mail1: "DOE JANE"}

	if err := r.AdoptMailingAddress(context.Background(), c, rec, "alice"); err == nil {
		t.Fatal("AdoptMailingAddress() should fail on unparseable lines")
	}
	if store.mailing != nil {
		t.Errorf("store written despite parse failure: %+v", store.mailing)
	}
}

func TestFlagOutOfCoverage(t *testing.T) {
	store := &fakeCustomerStore{}
	r := newTestReconciler(store, &fakeAssessorStore{})
	c := &Customer{ID: 7}

	if err := r.FlagOutOfCoverage(context.Background(), c, "alice"); err != nil {
		t.Fatalf("FlagOutOfCoverage() error: %v", err)
	}

	if c.PimaCountyResident == nil || *c.PimaCountyResident {
		t.Errorf("pima flag = %v, want false", c.PimaCountyResident)
	}
	if c.VerificationStatus != StatusNonPima {
		t.Errorf("status = %q, want %q", c.VerificationStatus, StatusNonPima)
	}
}

func TestCorrectOwnerName(t *testing.T) {
	assessor := &fakeAssessorStore{}
	r := newTestReconciler(&fakeCustomerStore{}, assessor)
	rec := &AssessorRecord{ID: 3, ParcelNumber: "117-05-001", OwnerName: "DOE JNAE"}

	if err := r.CorrectOwnerName(context.Background(), rec, "DOE JANE", "alice"); err != nil {
		t.Fatalf("CorrectOwnerName() error: %v", err)
	}

	if rec.UpdatedOwnerName == nil || *rec.UpdatedOwnerName != "DOE JANE" {
		t.Errorf("override = %v, want DOE JANE", rec.UpdatedOwnerName)
	}
	if !rec.IsOwnerUpdated || rec.OwnerUpdatedBy != "alice" {
		t.Errorf("override stamps missing: %+v", rec)
	}
	if rec.EffectiveOwnerName() != "DOE JANE" {
		t.Errorf("EffectiveOwnerName() = %q, want override", rec.EffectiveOwnerName())
	}
}
