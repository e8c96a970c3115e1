package services

import (
	"fmt"
	"io"
	"time"

	"networth-analyzer/models"
)

// Aggregator folds cleaned Persons into a Summary in a single left-to-right
// pass. It is not safe for concurrent use; each pass owns its own Aggregator.
type Aggregator struct {
	summary models.Summary
}

// NewAggregator starts a pass over the named source.
func NewAggregator(source string) *Aggregator {
	return &Aggregator{
		summary: models.Summary{
			Source:          source,
			RichestNetWorth: models.SentinelNetWorth,
		},
	}
}

// Add folds one person into the running aggregate. Only a strictly greater
// net worth replaces the current richest, so the first of equal maxima wins.
func (a *Aggregator) Add(p models.Person) {
	s := &a.summary
	s.RowsRead++

	if !p.Parsed {
		s.Unparseable++
	}
	if p.NetWorth > s.RichestNetWorth {
		s.RichestNetWorth = p.NetWorth
		s.RichestName = p.Name
		s.Found = true
	}
	if p.EmailMissing {
		s.EmailMissing++
	}
	if p.PhoneMissing {
		s.PhoneMissing++
	}
}

// SetSkipped records how many rows the reader dropped as malformed.
func (a *Aggregator) SetSkipped(n int) {
	a.summary.RowsSkipped = n
}

// Summary returns a copy of the current aggregate.
func (a *Aggregator) Summary() *models.Summary {
	s := a.summary
	s.GeneratedAt = time.Now()
	return &s
}

// PrintSummary writes the human-readable three-line report for s.
func PrintSummary(w io.Writer, s *models.Summary) {
	fmt.Fprintf(w, "--- Net worth analysis: %s ---\n", s.Source)
	if s.Found {
		fmt.Fprintf(w, "1. The richest person in this list is: %s with $%.0f billion\n",
			s.RichestName, s.RichestNetWorth)
	} else {
		fmt.Fprintln(w, "1. The richest person in this list could not be determined: no net worth could be parsed")
	}
	fmt.Fprintf(w, "2. Number of people without an email: %d\n", s.EmailMissing)
	fmt.Fprintf(w, "3. Number of people without phone numbers: %d\n", s.PhoneMissing)
}
