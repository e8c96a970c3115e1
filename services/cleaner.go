package services

import (
	"math"
	"strconv"
	"strings"

	"networth-analyzer/models"
	"networth-analyzer/utils"
)

// Substrings removed from a raw net worth before parsing. Order matters and
// matching is case-sensitive.
var netWorthNoise = []string{"$", " billion", " million"}

const unitsPerBillion = 1_000_000_000

// Cleaner transforms RawPersons into Persons ready for aggregation.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean converts one raw row. An unparseable net worth is logged and replaced
// by models.SentinelNetWorth; the row itself is never dropped.
func (c *Cleaner) Clean(raw models.RawPerson) models.Person {
	worth, ok := CleanNetWorth(raw.NetWorth)
	if !ok {
		c.logger.Warn("[cleaner] Could not parse net worth for %s: '%s' (line %d), excluded from richest calculation",
			raw.Name, raw.NetWorth, raw.Line)
	}

	return models.Person{
		Name:         raw.Name,
		EmailMissing: IsMissing(raw.Email),
		PhoneMissing: IsMissing(raw.Phone),
		NetWorth:     worth,
		Parsed:       ok,
	}
}

// CleanNetWorth normalises a net worth string to billions.
// Examples:
//
//	"$50 billion"   → 50
//	"$9.13273E+11"  → 913.273 (scientific notation is in raw currency units)
//	"$750 million"  → 750     (unit words are stripped, not applied)
//	"invalid"       → -1, false
//	"inf", "0x1p10" → -1, false (only finite decimal numbers are accepted)
func CleanNetWorth(raw string) (float64, bool) {
	cleaned := raw
	for _, noise := range netWorthNoise {
		cleaned = strings.ReplaceAll(cleaned, noise, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	if isHexFloat(cleaned) {
		return models.SentinelNetWorth, false
	}
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return models.SentinelNetWorth, false
	}

	if strings.Contains(cleaned, "E+") || strings.Contains(cleaned, "e+") {
		val /= unitsPerBillion
	}
	return val, true
}

// isHexFloat reports whether s is a hexadecimal literal, which ParseFloat
// accepts but is not a decimal amount.
func isHexFloat(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

// IsMissing reports whether a contact field is absent: empty or only whitespace.
func IsMissing(s string) bool {
	return strings.TrimSpace(s) == ""
}
