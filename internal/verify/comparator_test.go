package verify

import (
	"strings"
	"testing"
)

func TestCompareIdenticalRecordMatches(t *testing.T) {
	c := &Customer{FirstName: "Jane", LastName: "Doe", Address: "100 N 1st Ave"}
	rec := &AssessorRecord{
		ParcelNumber: "117-05-001",
		OwnerName:    "DOE JANE",
		Mail1:        "100 N 1ST AVE",
		Mail2:        "TUCSON AZ 85701",
	}

	result := Compare(c, rec)
	if result.Status != Match {
		t.Fatalf("Compare() status = %v, want %v (issues: %v)", result.Status, Match, result.Issues)
	}
	if len(result.Issues) != 0 {
		t.Errorf("Compare() issues = %v, want none", result.Issues)
	}
}

func TestCompareNilRecordIsNotFound(t *testing.T) {
	c := &Customer{FirstName: "Jane", LastName: "Doe"}

	result := Compare(c, nil)
	if result.Status != NotFound {
		t.Errorf("Compare() status = %v, want %v", result.Status, NotFound)
	}
	if len(result.Issues) != 1 {
		t.Errorf("Compare() issues = %v, want exactly one", result.Issues)
	}
}

func TestCompareAddress(t *testing.T) {
	tests := []struct {
		name          string
		custAddress   string
		recAddress    string
		wantAddrIssue bool
	}{
		{
			name:          "directional stripped containment",
			custAddress:   "456 N Oak St",
			recAddress:    "456 OAK STREET",
			wantAddrIssue: false,
		},
		{
			name:          "street type spelled out on customer side",
			custAddress:   "456 Oak Street",
			recAddress:    "456 N OAK ST",
			wantAddrIssue: false,
		},
		{
			name:          "different house numbers always mismatch",
			custAddress:   "123 Main St",
			recAddress:    "125 MAIN ST",
			wantAddrIssue: true,
		},
		{
			name:          "different street same number",
			custAddress:   "123 Elm St",
			recAddress:    "123 PASEO GRANDE",
			wantAddrIssue: true,
		},
		{
			name:          "numeric street with directional",
			custAddress:   "100 N 1st Ave",
			recAddress:    "100 1ST AVE",
			wantAddrIssue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Customer{FirstName: "Jane", LastName: "Doe", Address: tt.custAddress}
			rec := &AssessorRecord{OwnerName: "DOE JANE", Mail1: tt.recAddress}

			result := Compare(c, rec)

			gotAddrIssue := false
			for _, issue := range result.Issues {
				if strings.Contains(issue, "address mismatch") {
					gotAddrIssue = true
				}
			}
			if gotAddrIssue != tt.wantAddrIssue {
				t.Errorf("Compare() address issue = %v, want %v (issues: %v)",
					gotAddrIssue, tt.wantAddrIssue, result.Issues)
			}
		})
	}
}

func TestCompareNames(t *testing.T) {
	tests := []struct {
		name          string
		first, last   string
		ownerName     string
		updatedOwner  string
		wantNameIssue bool
	}{
		{
			name:      "last name substring",
			first:     "Jane",
			last:      "Doe",
			ownerName: "DOE JANE & DOE JOHN",
		},
		{
			name:      "first name only",
			first:     "Jane",
			last:      "Garcia",
			ownerName: "SMITH JANE",
		},
		{
			name:      "token overlap on hyphenated surname",
			first:     "Maria",
			last:      "Lopez",
			ownerName: "GARCIA-LOPEZ M",
		},
		{
			name:          "no agreement",
			first:         "Jane",
			last:          "Doe",
			ownerName:     "WILSON ROBERT",
			wantNameIssue: true,
		},
		{
			name:         "staff override supersedes roll name",
			first:        "Jane",
			last:         "Doe",
			ownerName:    "WILSON ROBERT",
			updatedOwner: "DOE JANE",
		},
		{
			name:      "suffix ignored",
			first:     "John",
			last:      "Smith",
			ownerName: "SMITH JOHN JR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Customer{FirstName: tt.first, LastName: tt.last}
			rec := &AssessorRecord{OwnerName: tt.ownerName}
			if tt.updatedOwner != "" {
				rec.UpdatedOwnerName = &tt.updatedOwner
				rec.IsOwnerUpdated = true
			}

			result := Compare(c, rec)

			gotNameIssue := false
			for _, issue := range result.Issues {
				if strings.Contains(issue, "name mismatch") {
					gotNameIssue = true
				}
			}
			if gotNameIssue != tt.wantNameIssue {
				t.Errorf("Compare() name issue = %v, want %v (issues: %v)",
					gotNameIssue, tt.wantNameIssue, result.Issues)
			}
		})
	}
}

func TestCompareSkipsAddressWhenCustomerHasNone(t *testing.T) {
	c := &Customer{FirstName: "Jane", LastName: "Doe"}
	rec := &AssessorRecord{OwnerName: "DOE JANE", Mail1: "999 SOMEWHERE ELSE RD"}

	result := Compare(c, rec)
	if result.Status != Match {
		t.Errorf("Compare() status = %v, want %v (issues: %v)", result.Status, Match, result.Issues)
	}
}
