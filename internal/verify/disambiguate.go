package verify

import (
	"sort"
	"strings"

	"github.com/poolcare-ownerverify/internal/normalize"
)

// Disambiguate reduces a candidate list to exactly one record, or surfaces
// the candidates for manual operator choice. The algorithm never guesses
// past a house-number cross-check: anything still ambiguous goes to a
// human, ranked by owner-name agreement.
func Disambiguate(c *Customer, candidates []AssessorRecord) Resolution {
	switch len(candidates) {
	case 0:
		return Resolution{NeedsManualChoice: true}
	case 1:
		return Resolution{Selected: &candidates[0]}
	}

	if houseNumber, ok := normalize.HouseNumber(normalize.Text(c.Address)); ok {
		var survivors []AssessorRecord
		for _, rec := range candidates {
			if recordHasHouseNumber(&rec, houseNumber) {
				survivors = append(survivors, rec)
			}
		}
		if len(survivors) == 1 {
			return Resolution{Selected: &survivors[0]}
		}
	}

	return Resolution{
		NeedsManualChoice: true,
		Options:           RankCandidates(c, candidates),
	}
}

// recordHasHouseNumber checks the candidate's address lines for a leading
// house number equal to the customer's.
func recordHasHouseNumber(rec *AssessorRecord, houseNumber string) bool {
	for _, line := range rec.AddressLines() {
		if n, ok := normalize.HouseNumber(normalize.Text(line)); ok && n == houseNumber {
			return true
		}
	}
	return false
}

// RankCandidates orders candidates for manual review: owner names that
// contain the customer's last name as a whole word score 2, as a substring
// score 1, otherwise 0. Descending, stable within equal scores.
func RankCandidates(c *Customer, candidates []AssessorRecord) []RankedCandidate {
	lastName := normalize.Name(c.LastName)

	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, rec := range candidates {
		ranked = append(ranked, RankedCandidate{
			Record: rec,
			Score:  lastNameScore(lastName, rec.EffectiveOwnerName()),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func lastNameScore(lastName, ownerName string) int {
	if lastName == "" {
		return 0
	}

	owner := normalize.Name(ownerName)
	for _, token := range normalize.Tokens(owner) {
		if token == lastName {
			return 2
		}
	}
	if strings.Contains(owner, lastName) {
		return 1
	}
	return 0
}
