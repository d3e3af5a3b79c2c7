package verify

import (
	"context"
	"fmt"
)

// MaxBatchSize caps one batch-verification invocation. Lookups run
// strictly sequentially against the assessor dataset, so the cap bounds
// latency rather than load.
const MaxBatchSize = 20

// PendingLister lists customers awaiting verification: non-empty address,
// never verified, not flagged out of coverage.
type PendingLister interface {
	PendingVerification(ctx context.Context, limit int) ([]Customer, error)
}

// Outcome is the result of running the automated pipeline for one
// customer: either a comparison verdict against a selected record, or a
// request for manual disambiguation.
type Outcome struct {
	Customer   *Customer           `json:"customer"`
	Result     *VerificationResult `json:"result,omitempty"`
	Resolution *Resolution         `json:"resolution,omitempty"`
}

// Pipeline chains locate, disambiguate and compare. Reconciliation stays
// with the operator: the pipeline never writes.
type Pipeline struct {
	locator *Locator
	pending PendingLister
}

// NewPipeline creates the verification pipeline.
func NewPipeline(locator *Locator, pending PendingLister) *Pipeline {
	return &Pipeline{locator: locator, pending: pending}
}

// VerifyOne runs one customer through locate, disambiguate and compare.
// Re-invocable with the same inputs: the automated pipeline is read-only.
// When candidates are ambiguous the outcome carries only the manual-choice
// resolution; a not_found result next to a list of options would misstate
// what the lookup found.
func (p *Pipeline) VerifyOne(ctx context.Context, c *Customer) Outcome {
	candidates, lookupErr := p.locator.Locate(ctx, c)
	if len(candidates) == 0 && lookupErr != nil {
		return Outcome{Customer: c, Result: &VerificationResult{
			Customer: c,
			Status:   Error,
			Issues:   []string{fmt.Sprintf("assessor lookup failed: %v", lookupErr)},
		}}
	}

	resolution := Disambiguate(c, candidates)

	if resolution.Selected != nil {
		return Outcome{Customer: c, Result: Compare(c, resolution.Selected)}
	}

	outcome := Outcome{Customer: c, Resolution: &resolution}
	if len(resolution.Options) == 0 {
		outcome.Result = Compare(c, nil)
	}
	return outcome
}

// VerifyPending runs the pipeline over pending customers, strictly
// sequentially, at most MaxBatchSize per call. Each customer's attempt is
// isolated: lookup failures inside a strategy are logged there and treated
// as zero candidates, never aborting the batch.
func (p *Pipeline) VerifyPending(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 || limit > MaxBatchSize {
		limit = MaxBatchSize
	}

	customers, err := p.pending.PendingVerification(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending customers: %w", err)
	}

	outcomes := make([]Outcome, 0, len(customers))
	for i := range customers {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, p.VerifyOne(ctx, &customers[i]))
	}
	return outcomes, nil
}
