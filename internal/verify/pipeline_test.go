package verify

import (
	"context"
	"errors"
	"testing"
)

type fakePendingLister struct {
	customers []Customer
	gotLimit  int
}

func (f *fakePendingLister) PendingVerification(_ context.Context, limit int) ([]Customer, error) {
	f.gotLimit = limit
	if len(f.customers) > limit {
		return f.customers[:limit], nil
	}
	return f.customers, nil
}

func TestVerifyOneFullMatch(t *testing.T) {
	source := &fakeSearcher{
		byAddress: map[string][]AssessorRecord{
			"100 N 1ST AVE": {{
				ParcelNumber: "117-05-001",
				OwnerName:    "DOE JANE",
				Mail1:        "100 1ST AVE",
			}},
		},
	}
	pipeline := NewPipeline(NewLocator(source), &fakePendingLister{})

	c := &Customer{FirstName: "Jane", LastName: "Doe", Address: "100 N 1st Ave"}
	outcome := pipeline.VerifyOne(context.Background(), c)

	if outcome.Result == nil || outcome.Result.Status != Match {
		t.Fatalf("VerifyOne() = %+v, want match", outcome)
	}
	if len(outcome.Result.Issues) != 0 {
		t.Errorf("VerifyOne() issues = %v, want none", outcome.Result.Issues)
	}
}

func TestVerifyOneAutoDisambiguatesByHouseNumber(t *testing.T) {
	source := &fakeSearcher{
		byOwner: map[string][]AssessorRecord{
			"DOE": {
				{ParcelNumber: "at-200", OwnerName: "DOE JANE", Mail1: "200 ELM ST"},
				{ParcelNumber: "at-202", OwnerName: "DOE JOHN", Mail1: "202 ELM ST"},
			},
		},
	}
	pipeline := NewPipeline(NewLocator(source), &fakePendingLister{})

	c := &Customer{LastName: "Doe", Address: "200 Elm St"}
	outcome := pipeline.VerifyOne(context.Background(), c)

	if outcome.Result == nil || outcome.Result.Record == nil {
		t.Fatalf("VerifyOne() = %+v, want comparison against the 200 record", outcome)
	}
	if outcome.Result.Record.ParcelNumber != "at-200" {
		t.Errorf("selected parcel = %s, want at-200", outcome.Result.Record.ParcelNumber)
	}
}

func TestVerifyOneNoCandidatesNeedsManualChoice(t *testing.T) {
	pipeline := NewPipeline(NewLocator(&fakeSearcher{}), &fakePendingLister{})

	c := &Customer{LastName: "Smith"}
	outcome := pipeline.VerifyOne(context.Background(), c)

	if outcome.Resolution == nil || !outcome.Resolution.NeedsManualChoice {
		t.Fatalf("VerifyOne() = %+v, want manual choice", outcome)
	}
	if len(outcome.Resolution.Options) != 0 {
		t.Errorf("options = %v, want empty list", outcome.Resolution.Options)
	}
	if outcome.Result == nil || outcome.Result.Status != NotFound {
		t.Errorf("result = %+v, want not_found status", outcome.Result)
	}
}

func TestVerifyOneAmbiguousCandidatesCarryNoResult(t *testing.T) {
	source := &fakeSearcher{
		byOwner: map[string][]AssessorRecord{
			"DOE": {
				{ParcelNumber: "A", OwnerName: "DOE JANE", Mail1: "200 ELM ST"},
				{ParcelNumber: "B", OwnerName: "DOE JOHN", Mail1: "14 BIRCH LN"},
			},
		},
	}
	pipeline := NewPipeline(NewLocator(source), &fakePendingLister{})

	c := &Customer{LastName: "Doe"}
	outcome := pipeline.VerifyOne(context.Background(), c)

	if outcome.Resolution == nil || !outcome.Resolution.NeedsManualChoice {
		t.Fatalf("VerifyOne() = %+v, want manual choice", outcome)
	}
	if len(outcome.Resolution.Options) != 2 {
		t.Fatalf("options = %+v, want both candidates", outcome.Resolution.Options)
	}
	if outcome.Result != nil {
		t.Errorf("result = %+v, want none while candidate options are pending", outcome.Result)
	}
}

func TestVerifyOneLookupFailureYieldsErrorStatus(t *testing.T) {
	source := &fakeSearcher{
		addressErr: errors.New("connection refused"),
		houseErr:   errors.New("connection refused"),
		ownerErr:   errors.New("connection refused"),
	}
	pipeline := NewPipeline(NewLocator(source), &fakePendingLister{})

	c := &Customer{LastName: "Doe", Address: "200 Elm St"}
	outcome := pipeline.VerifyOne(context.Background(), c)

	if outcome.Result == nil || outcome.Result.Status != Error {
		t.Fatalf("VerifyOne() = %+v, want error status when lookups fail", outcome)
	}
	if outcome.Resolution != nil {
		t.Errorf("resolution = %+v, want none on lookup failure", outcome.Resolution)
	}
	if len(outcome.Result.Issues) == 0 {
		t.Errorf("issues empty, want the lookup failure reported")
	}
}

func TestVerifyPendingCapsBatchSize(t *testing.T) {
	customers := make([]Customer, 30)
	for i := range customers {
		customers[i] = Customer{ID: int64(i + 1), LastName: "Doe", Address: "1 Elm St"}
	}
	lister := &fakePendingLister{customers: customers}
	pipeline := NewPipeline(NewLocator(&fakeSearcher{}), lister)

	outcomes, err := pipeline.VerifyPending(context.Background(), 100)
	if err != nil {
		t.Fatalf("VerifyPending() error: %v", err)
	}

	if lister.gotLimit != MaxBatchSize {
		t.Errorf("pending limit = %d, want capped at %d", lister.gotLimit, MaxBatchSize)
	}
	if len(outcomes) != MaxBatchSize {
		t.Errorf("outcomes = %d, want %d", len(outcomes), MaxBatchSize)
	}
}

func TestVerifyPendingDefaultsLimit(t *testing.T) {
	lister := &fakePendingLister{}
	pipeline := NewPipeline(NewLocator(&fakeSearcher{}), lister)

	if _, err := pipeline.VerifyPending(context.Background(), 0); err != nil {
		t.Fatalf("VerifyPending() error: %v", err)
	}
	if lister.gotLimit != MaxBatchSize {
		t.Errorf("pending limit = %d, want %d", lister.gotLimit, MaxBatchSize)
	}
}
