// Package funnel narrows a city's population through an ordered table of
// multiplicative filter stages, one per wizard answer, to estimate how many
// residents are compatible matches.
//
// Every function here is pure: the same answers and profile always give the
// same numbers, so callers may recompute freely from any goroutine.
package funnel

import (
	"math"
	"strconv"
)

// ChangeThreshold is the smallest progress change worth re-rendering.
const ChangeThreshold = 0.01

// Estimate is the Final Estimator's result. Raw is the unrounded percentage
// behind Percentage.
type Estimate struct {
	TotalMatches int64         `json:"totalMatches"`
	Percentage   string        `json:"percentage"`
	Raw          float64       `json:"raw"`
	TableVersion string        `json:"tableVersion"`
	Stages       []StageResult `json:"stages,omitempty"`
}

// Estimator evaluates answers against one stage table.
type Estimator struct {
	table Table
}

// NewEstimator returns an estimator bound to a private copy of t.
func NewEstimator(t Table) *Estimator {
	return &Estimator{table: t.Clone()}
}

// Table returns a copy of the estimator's stage table.
func (e *Estimator) Table() Table {
	return e.table.Clone()
}

// Estimate runs every stage, including the final-only ones, over the
// location's population. Without a location or population it returns a zero
// result.
func (e *Estimator) Estimate(a Answers) Estimate {
	zero := Estimate{Percentage: FormatPercentage(0), TableVersion: e.table.Version}
	if !a.Location.HasPopulation() {
		return zero
	}

	matches, results := run(&e.table, &a, a.Location, func(Stage) bool { return true })
	raw := matches / float64(a.Location.Population) * 100

	return Estimate{
		TotalMatches: roundMatches(matches),
		Percentage:   FormatPercentage(raw),
		Raw:          raw,
		TableVersion: e.table.Version,
		Stages:       results,
	}
}

// roundMatches converts a match count to int64, saturating where the float
// no longer fits.
func roundMatches(m float64) int64 {
	switch {
	case math.IsNaN(m) || m <= 0:
		return 0
	case m >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(math.Round(m))
}

// Progress returns the share of the population, in [0,100], left after the
// stages whose questions fall below answered. Final-only stages never apply.
func (e *Estimator) Progress(a Answers, answered int) float64 {
	if a.Location == nil || answered <= 1 {
		return 100
	}
	if a.Location.Population <= 0 {
		return 0
	}

	remaining, _ := run(&e.table, &a, a.Location, func(s Stage) bool {
		return !s.FinalOnly && s.Question < answered
	})
	p := remaining / float64(a.Location.Population) * 100

	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// FormatPercentage renders p with two decimals.
func FormatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// Changed reports whether two consecutive progress values differ enough to
// re-render.
func Changed(prev, next float64) bool {
	return math.Abs(prev-next) > ChangeThreshold
}

var defaultEstimator = NewEstimator(DefaultTable())

// Calculate runs the Final Estimator with the default table.
func Calculate(a Answers) Estimate {
	return defaultEstimator.Estimate(a)
}

// Progress runs the Incremental Progress Estimator with the default table.
func Progress(a Answers, answered int) float64 {
	return defaultEstimator.Progress(a, answered)
}
