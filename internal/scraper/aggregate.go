// internal/scraper/aggregate.go
package scraper

import "github.com/sreeshanth-soma/erpScraper/internal/attendance"

// Aggregate is the sum of all parsed fragments of one run.
type Aggregate struct {
	Attended int
	Total    int
	// Parsed and Skipped count fragments that did and did not contribute.
	Parsed  int
	Skipped int
}

// Add folds one subject into the totals.
func (a *Aggregate) Add(f Fact) {
	a.Attended += f.Attended
	a.Total += f.Total
	a.Parsed++
}

// Skip records a fragment that could not be parsed.
func (a *Aggregate) Skip() { a.Skipped++ }

// Percentage is the overall attendance, Unknown when no classes were counted.
func (a Aggregate) Percentage() attendance.Percentage {
	return attendance.ComputePercentage(a.Attended, a.Total)
}

// AggregateFacts sums facts.
func AggregateFacts(facts []Fact) Aggregate {
	var a Aggregate
	for _, f := range facts {
		a.Add(f)
	}
	return a
}
