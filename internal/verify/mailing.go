package verify

import (
	"fmt"
	"regexp"
	"strings"
)

// Trailing "CITY ST 85701" or "CITY ST 85701-1234" on a mailing line.
var reCityStateZip = regexp.MustCompile(`\b([A-Z]{2})\s+(\d{5})(-\d{4})?$`)

// MailingAddress is the discrete form of an assessor record's free-text
// mailing lines.
type MailingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

// ParseMailingLines splits raw assessor mailing lines into discrete
// address/city/state/zip fields. The city/state/zip line is the last line
// carrying a trailing state-and-zip pattern; the street-address line is
// whichever preceding candidate line starts with a digit. Lines starting
// with ATTN are delivery instructions and are skipped.
func ParseMailingLines(rawLines []string) (MailingAddress, error) {
	var lines []string
	for _, raw := range rawLines {
		line := strings.ToUpper(strings.TrimSpace(raw))
		if line == "" || strings.HasPrefix(line, "ATTN") {
			continue
		}
		lines = append(lines, line)
	}

	cszIndex := -1
	var cszMatch []string
	for i, line := range lines {
		if m := reCityStateZip.FindStringSubmatch(line); m != nil {
			cszIndex = i
			cszMatch = m
		}
	}
	if cszIndex == -1 {
		return MailingAddress{}, fmt.Errorf("no city/state/zip line in mailing lines %q", rawLines)
	}

	cszLine := lines[cszIndex]
	city := strings.TrimSpace(strings.TrimSuffix(cszLine, cszMatch[0]))
	city = strings.Trim(city, ", ")

	zip := cszMatch[2]
	if cszMatch[3] != "" {
		zip += cszMatch[3]
	}

	address := pickAddressLine(lines[:cszIndex])
	if address == "" {
		return MailingAddress{}, fmt.Errorf("no street-address line in mailing lines %q", rawLines)
	}

	return MailingAddress{
		Address: address,
		City:    city,
		State:   cszMatch[1],
		Zip:     zip,
	}, nil
}

// pickAddressLine chooses between the (at most two) lines preceding the
// city/state/zip line: the one with a leading digit is the street address,
// the other is an owner or care-of line.
func pickAddressLine(preceding []string) string {
	start := 0
	if len(preceding) > 2 {
		start = len(preceding) - 2
	}
	candidates := preceding[start:]

	for i := len(candidates) - 1; i >= 0; i-- {
		line := candidates[i]
		if line[0] >= '0' && line[0] <= '9' {
			return line
		}
	}

	// No line leads with a digit (rural routes, PO boxes): take the line
	// closest to the city/state/zip line.
	if len(candidates) > 0 {
		return candidates[len(candidates)-1]
	}
	return ""
}
