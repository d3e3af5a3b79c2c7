package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// Street-type abbreviations used by the Pima County assessor roll. Long
// forms are rewritten to the roll's abbreviation so that textual variants
// of the same street compare equal.
var streetAbbrevs = map[string]string{
	"STREET":    "ST",
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"DRIVE":     "DR",
	"LANE":      "LN",
	"ROAD":      "RD",
	"CIRCLE":    "CIR",
	"COURT":     "CT",
	"PLACE":     "PL",
	"WAY":       "WAY",
	"TRAIL":     "TRL",
	"PARKWAY":   "PKWY",
	"LOOP":      "LOOP",
	"PASS":      "PASS",
	"RIDGE":     "RIDGE",
	"TERRACE":   "TERRACE",
	"PLAZA":     "PLAZA",
}

// Generational suffixes dropped from personal names.
var nameSuffixes = map[string]bool{
	"JR":  true,
	"SR":  true,
	"II":  true,
	"III": true,
	"IV":  true,
}

// Directional prefixes as they appear in street addresses.
var directionals = map[string]bool{
	"N": true, "S": true, "E": true, "W": true,
	"NE": true, "NW": true, "SE": true, "SW": true,
	"NORTH": true, "SOUTH": true, "EAST": true, "WEST": true,
	"NORTHEAST": true, "NORTHWEST": true, "SOUTHEAST": true, "SOUTHWEST": true,
}

// House number: leading numeric token, optionally followed by one letter
// ("123B"). The letter is dropped; only the digits identify the lot.
var reHouseNumber = regexp.MustCompile(`^(\d{1,6})[A-Za-z]?\b`)

// Text uppercases, strips punctuation and collapses whitespace. Empty or
// malformed input yields the empty string, never an error.
func Text(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ToUpper(strings.TrimSpace(raw))

	b := strings.Builder{}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Address normalizes an address: Text plus street-type abbreviation.
// Idempotent: abbreviations are never themselves rewritten.
func Address(raw string) string {
	s := Text(raw)
	if s == "" {
		return ""
	}

	tokens := strings.Fields(s)
	for i, token := range tokens {
		if abbrev, ok := streetAbbrevs[token]; ok {
			tokens[i] = abbrev
		}
	}

	return strings.Join(tokens, " ")
}

// Name normalizes a personal name: Text plus removal of generational
// suffixes (JR, SR, II, III, IV).
func Name(raw string) string {
	s := Text(raw)
	if s == "" {
		return ""
	}

	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, token := range tokens {
		if nameSuffixes[token] {
			continue
		}
		kept = append(kept, token)
	}

	return strings.Join(kept, " ")
}

// HouseNumber extracts the leading house number from an address, digits
// only ("123B Main St" -> "123"). Returns false when the address does not
// start with a number.
func HouseNumber(addr string) (string, bool) {
	s := strings.TrimSpace(addr)
	m := reHouseNumber.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// StreetCore reduces an address to its comparable street-name core:
// normalized, leading house number dropped, directional tokens removed.
// "456 N Oak Street" and "456 OAK ST" both reduce to "OAK ST".
func StreetCore(addr string) string {
	s := Address(addr)
	if s == "" {
		return ""
	}

	tokens := strings.Fields(s)
	if len(tokens) > 0 {
		if _, ok := HouseNumber(tokens[0]); ok {
			tokens = tokens[1:]
		}
	}

	kept := tokens[:0]
	for _, token := range tokens {
		if directionals[token] {
			continue
		}
		kept = append(kept, token)
	}

	return strings.Join(kept, " ")
}

// Tokens splits a normalized string into its fields.
func Tokens(s string) []string {
	return strings.Fields(s)
}
