package verify

import (
	"strings"
	"time"

	"github.com/poolcare-ownerverify/internal/normalize"
)

// Verification status values stored on the customer record.
const (
	StatusUnverified   = "unverified"
	StatusVerified     = "verified"
	StatusOwnerChanged = "owner_changed"
	StatusNonPima      = "non_pima_flagged"
)

// Customer is a service-location record under ownership verification.
type Customer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`

	MailingAddress string `json:"mailing_address"`
	MailingCity    string `json:"mailing_city"`
	MailingState   string `json:"mailing_state"`
	MailingZip     string `json:"mailing_zip_code"`

	PreviousFirstName string     `json:"previous_first_name"`
	PreviousLastName  string     `json:"previous_last_name"`
	OwnerChangedDate  *time.Time `json:"owner_changed_date,omitempty"`
	OwnerChangedBy    string     `json:"owner_changed_by"`

	OwnerVerifiedAt *time.Time `json:"owner_verified_at,omitempty"`
	OwnerVerifiedBy string     `json:"owner_verified_by"`

	// Tri-state: nil = unknown, false = confirmed outside the assessor
	// dataset's coverage, true = confirmed inside.
	PimaCountyResident *bool `json:"pima_county_resident,omitempty"`

	VerificationStatus string    `json:"verification_status"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FullName returns "First Last" with whichever parts are present.
func (c *Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// AssessorRecord is one property-ownership row from the county assessor
// roll. Mailing lines are free text as delivered in the roll extract.
type AssessorRecord struct {
	ID           int64  `json:"id"`
	ParcelNumber string `json:"parcel_number"`
	OwnerName    string `json:"owner_name"`

	Mail1 string `json:"mail1"`
	Mail2 string `json:"mail2"`
	Mail3 string `json:"mail3"`
	Mail4 string `json:"mail4"`
	Mail5 string `json:"mail5"`

	Zip  string `json:"zip"`
	Zip4 string `json:"zip4"`

	// Staff correction of a known-bad owner name. When set it supersedes
	// OwnerName for comparison and display.
	UpdatedOwnerName *string    `json:"updated_owner_name,omitempty"`
	IsOwnerUpdated   bool       `json:"is_owner_updated"`
	OwnerUpdatedAt   *time.Time `json:"owner_updated_at,omitempty"`
	OwnerUpdatedBy   string     `json:"owner_updated_by"`
}

// EffectiveOwnerName returns the staff-corrected owner name when present,
// otherwise the raw roll value.
func (r *AssessorRecord) EffectiveOwnerName() string {
	if r.UpdatedOwnerName != nil && strings.TrimSpace(*r.UpdatedOwnerName) != "" {
		return *r.UpdatedOwnerName
	}
	return r.OwnerName
}

// MailLines returns the non-empty mailing lines in order.
func (r *AssessorRecord) MailLines() []string {
	var lines []string
	for _, l := range []string{r.Mail1, r.Mail2, r.Mail3, r.Mail4, r.Mail5} {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimSpace(l))
		}
	}
	return lines
}

// AddressLines returns the first three mailing lines, the only ones that
// ever carry the property address in the roll extract.
func (r *AssessorRecord) AddressLines() []string {
	var lines []string
	for _, l := range []string{r.Mail1, r.Mail2, r.Mail3} {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimSpace(l))
		}
	}
	return lines
}

// PropertyAddressLine returns the first address line beginning with a
// house number, or "" when the record carries no street address.
func (r *AssessorRecord) PropertyAddressLine() string {
	for _, line := range r.AddressLines() {
		if _, ok := normalize.HouseNumber(line); ok {
			return line
		}
	}
	return ""
}

// Verdict of a single verification attempt.
type Status string

const (
	Match    Status = "match"
	Mismatch Status = "mismatch"
	NotFound Status = "not_found"
	Error    Status = "error"
)

// VerificationResult is the transient output of one verification attempt.
// It is held for display only and never persisted.
type VerificationResult struct {
	Customer *Customer       `json:"customer"`
	Record   *AssessorRecord `json:"record,omitempty"`
	Status   Status          `json:"status"`
	Issues   []string        `json:"issues,omitempty"`
}

// RankedCandidate pairs a candidate record with its manual-review rank
// score (2 = owner name contains the customer's last name as a whole
// word, 1 = as a substring, 0 = no name agreement).
type RankedCandidate struct {
	Record AssessorRecord `json:"record"`
	Score  int            `json:"score"`
}

// Resolution is the disambiguator's outcome: either a single selected
// record, or a request for manual operator choice over ranked options.
type Resolution struct {
	Selected          *AssessorRecord   `json:"selected,omitempty"`
	NeedsManualChoice bool              `json:"needs_manual_choice"`
	Options           []RankedCandidate `json:"options,omitempty"`
}
