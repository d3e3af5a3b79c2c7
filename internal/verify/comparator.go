package verify

import (
	"fmt"
	"strings"

	"github.com/poolcare-ownerverify/internal/normalize"
)

// Compare scores a chosen assessor record against the customer for name
// and address agreement. Deliberately permissive: real-world spellings
// vary, so substring and token containment stand in for exact equality and
// every flagged issue still goes to an operator for sign-off.
func Compare(c *Customer, rec *AssessorRecord) *VerificationResult {
	result := &VerificationResult{Customer: c, Record: rec}

	if rec == nil {
		result.Status = NotFound
		result.Issues = append(result.Issues, "not found in assessor records")
		return result
	}

	if issue := compareNames(c, rec); issue != "" {
		result.Issues = append(result.Issues, issue)
	}
	if issue := compareAddresses(c, rec); issue != "" {
		result.Issues = append(result.Issues, issue)
	}

	if len(result.Issues) == 0 {
		result.Status = Match
	} else {
		result.Status = Mismatch
	}
	return result
}

// compareNames returns "" on agreement or a mismatch issue. The owner name
// on the roll is usually "LAST FIRST [MIDDLE]" or a joint "LAST A & B", so
// a match is either name appearing as a substring, with a token-overlap
// fallback for hyphenated and transposed forms.
func compareNames(c *Customer, rec *AssessorRecord) string {
	owner := normalize.Name(rec.EffectiveOwnerName())
	first := normalize.Name(c.FirstName)
	last := normalize.Name(c.LastName)

	if owner != "" {
		if first != "" && strings.Contains(owner, first) {
			return ""
		}
		if last != "" && strings.Contains(owner, last) {
			return ""
		}

		ownerTokens := normalize.Tokens(owner)
		for _, token := range normalize.Tokens(first + " " + last) {
			if len(token) <= 2 {
				continue
			}
			for _, ownerToken := range ownerTokens {
				if strings.Contains(ownerToken, token) {
					return ""
				}
			}
		}
	}

	return fmt.Sprintf("name mismatch: customer %q vs owner %q",
		c.FullName(), rec.EffectiveOwnerName())
}

// compareAddresses returns "" on agreement, a mismatch issue otherwise.
// Skipped entirely when either side has no street address to compare.
// House numbers must be equal; street names agree when any long customer
// token appears in the record address, or the directional-stripped cores
// contain one another.
func compareAddresses(c *Customer, rec *AssessorRecord) string {
	recLine := rec.PropertyAddressLine()
	if strings.TrimSpace(c.Address) == "" || recLine == "" {
		return ""
	}

	custNumber, custOK := normalize.HouseNumber(normalize.Text(c.Address))
	recNumber, recOK := normalize.HouseNumber(normalize.Text(recLine))

	if custOK && recOK && custNumber == recNumber && streetsAgree(c.Address, recLine) {
		return ""
	}

	return fmt.Sprintf("address mismatch: customer %q vs assessor %q", c.Address, recLine)
}

func streetsAgree(custAddr, recLine string) bool {
	recFull := normalize.Address(recLine)
	custCore := normalize.StreetCore(custAddr)
	recCore := normalize.StreetCore(recLine)

	for _, token := range normalize.Tokens(custCore) {
		if len(token) > 2 && strings.Contains(recFull, token) {
			return true
		}
	}

	if custCore != "" && recCore != "" {
		if strings.Contains(recCore, custCore) || strings.Contains(custCore, recCore) {
			return true
		}
	}
	return false
}
