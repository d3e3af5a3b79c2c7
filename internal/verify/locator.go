package verify

import (
	"context"
	"log"
	"strings"

	"github.com/poolcare-ownerverify/internal/normalize"
)

// Cap on last-name candidates: common surnames would otherwise return
// thousands of parcels.
const lastNameCandidateLimit = 50

// AssessorSearcher is the read side of the assessor dataset consumed by
// the locator. Implemented by store.Postgres.
type AssessorSearcher interface {
	// SearchByAddress finds records whose canonical address contains the
	// given normalized address.
	SearchByAddress(ctx context.Context, addr string) ([]AssessorRecord, error)
	// SearchByHouseNumber finds records whose property address starts
	// with the given house number.
	SearchByHouseNumber(ctx context.Context, houseNumber string) ([]AssessorRecord, error)
	// SearchByOwnerPrefix finds records whose owner name (or staff
	// override) starts with the given normalized last name.
	SearchByOwnerPrefix(ctx context.Context, lastName string, limit int) ([]AssessorRecord, error)
}

// Locator produces candidate assessor records for a customer, trying
// strategies in strict priority order: address, house number, last name.
type Locator struct {
	source AssessorSearcher
}

// NewLocator creates a locator over an assessor dataset.
func NewLocator(source AssessorSearcher) *Locator {
	return &Locator{source: source}
}

// Locate returns zero, one or many candidate records. A lookup failure in
// one strategy is logged and treated as zero candidates so the chain can
// fall through to the next. The returned error is non-nil only when the
// chain ends with no candidates and at least one lookup failed, so the
// caller can tell "not on the roll" from "could not ask the roll".
func (l *Locator) Locate(ctx context.Context, c *Customer) ([]AssessorRecord, error) {
	var firstErr error

	recs, err := l.byAddress(ctx, c)
	if len(recs) > 0 {
		return recs, nil
	}
	if err != nil {
		firstErr = err
	}

	recs, err = l.byHouseNumber(ctx, c)
	if len(recs) > 0 {
		return recs, nil
	}
	if err != nil && firstErr == nil {
		firstErr = err
	}

	recs, err = l.byLastName(ctx, c)
	if len(recs) > 0 {
		return recs, nil
	}
	if err != nil && firstErr == nil {
		firstErr = err
	}
	return nil, firstErr
}

// byAddress tries the customer's address as typed, then retries once with
// street-type words abbreviated ("Street" vs "St").
func (l *Locator) byAddress(ctx context.Context, c *Customer) ([]AssessorRecord, error) {
	plain := normalize.Text(c.Address)
	if plain == "" {
		return nil, nil
	}

	var firstErr error
	recs, err := l.source.SearchByAddress(ctx, plain)
	if err != nil {
		log.Printf("address search failed for customer %d: %v", c.ID, err)
		firstErr = err
	}
	if len(recs) > 0 {
		return recs, nil
	}

	abbreviated := normalize.Address(c.Address)
	if abbreviated == plain {
		return nil, firstErr
	}

	recs, err = l.source.SearchByAddress(ctx, abbreviated)
	if err != nil {
		log.Printf("abbreviated address search failed for customer %d: %v", c.ID, err)
		if firstErr == nil {
			firstErr = err
		}
		return nil, firstErr
	}
	if len(recs) > 0 {
		return recs, nil
	}
	return nil, firstErr
}

// byHouseNumber searches on the leading house number of the customer's
// address, then keeps only records whose street-name core agrees with the
// customer's (directionals stripped, containment either way).
func (l *Locator) byHouseNumber(ctx context.Context, c *Customer) ([]AssessorRecord, error) {
	houseNumber, ok := normalize.HouseNumber(normalize.Text(c.Address))
	if !ok {
		return nil, nil
	}

	recs, err := l.source.SearchByHouseNumber(ctx, houseNumber)
	if err != nil {
		log.Printf("house-number search failed for customer %d: %v", c.ID, err)
		return nil, err
	}

	custCore := normalize.StreetCore(c.Address)
	if custCore == "" {
		return recs, nil
	}

	var matched []AssessorRecord
	for _, rec := range recs {
		line := rec.PropertyAddressLine()
		if line == "" {
			continue
		}
		recCore := normalize.StreetCore(line)
		if recCore == "" {
			continue
		}
		if strings.Contains(recCore, custCore) || strings.Contains(custCore, recCore) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// byLastName is the last-resort strategy: prefix search on the owner name.
func (l *Locator) byLastName(ctx context.Context, c *Customer) ([]AssessorRecord, error) {
	lastName := normalize.Name(c.LastName)
	if lastName == "" {
		return nil, nil
	}

	recs, err := l.source.SearchByOwnerPrefix(ctx, lastName, lastNameCandidateLimit)
	if err != nil {
		log.Printf("last-name search failed for customer %d: %v", c.ID, err)
		return nil, err
	}
	return recs, nil
}
