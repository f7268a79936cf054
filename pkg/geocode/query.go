package geocode

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultCountryQualifier is appended to every query.
const DefaultCountryQualifier = "Netherlands"

const queryDelimiter = ", "

// missingTokens are spreadsheet/dataframe spellings of an empty cell.
var missingTokens = map[string]bool{
	"nan":  true,
	"none": true,
	"null": true,
}

// clean trims and NFC-normalizes s, mapping blank and "missing" spellings to "".
func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || missingTokens[strings.ToLower(s)] {
		return ""
	}
	return norm.NFC.String(s)
}

// BuildQuery assembles the cache key and provider query for an address:
// the postal code if present, then the city or else the state, then the
// country qualifier, joined by ", ". It is deterministic, so equal address
// triples always share a cache entry.
func BuildQuery(postalCode, city, state, country string) string {
	parts := make([]string, 0, 3)
	if pc := clean(postalCode); pc != "" {
		parts = append(parts, pc)
	}
	if c := clean(city); c != "" {
		parts = append(parts, c)
	} else if st := clean(state); st != "" {
		parts = append(parts, st)
	}
	if q := clean(country); q != "" {
		parts = append(parts, q)
	}
	return strings.Join(parts, queryDelimiter)
}
