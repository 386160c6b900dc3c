// Package demographics holds the city baseline that the match funnel starts
// from: total population plus gender, age-bracket and education shares.
package demographics

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Profile is a city's population baseline as returned by a city data provider.
// Profiles are treated as immutable snapshots once handed to the estimator.
type Profile struct {
	Name         string       `json:"name" yaml:"name"`
	Population   int64        `json:"population" yaml:"population"`
	Demographics Demographics `json:"demographics" yaml:"demographics"`
}

// Demographics holds population shares. Every field is optional; a missing
// share makes the funnel skip the stage that needs it.
type Demographics struct {
	Male      *float64           `json:"male,omitempty" yaml:"male,omitempty"`
	Female    *float64           `json:"female,omitempty" yaml:"female,omitempty"`
	AgeGroups map[string]float64 `json:"ageGroups,omitempty" yaml:"ageGroups,omitempty"`
	Education *Education         `json:"education,omitempty" yaml:"education,omitempty"`
}

// Education holds attainment shares. College is counted separately from
// high school, so "high school or above" is the sum of both.
type Education struct {
	HighSchool *float64 `json:"highschool,omitempty" yaml:"highschool,omitempty"`
	College    *float64 `json:"college,omitempty" yaml:"college,omitempty"`
}

// Share returns a pointer to v, for building profiles in code.
func Share(v float64) *float64 {
	return &v
}

// HasPopulation reports whether the profile can seed an estimate.
func (p *Profile) HasPopulation() bool {
	return p != nil && p.Population > 0
}

// Bracket is one age group parsed from its "min-max" label.
type Bracket struct {
	Label string
	Min   int
	Max   int
	Share float64
}

// OpenEnded is the Max of brackets written as "65+".
const OpenEnded = math.MaxInt32

// ParseBracket parses labels of the form "25-34", "65+" or "65".
func ParseBracket(label string) (lo, hi int, ok bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return 0, 0, false
	}

	if strings.HasSuffix(s, "+") {
		start, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(s, "+")))
		if err != nil {
			return 0, 0, false
		}
		return start, OpenEnded, true
	}

	parts := strings.SplitN(s, "-", 2)
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	if len(parts) == 1 {
		return start, start, true
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// Brackets returns the parseable age groups ordered by lower bound, then label.
// The fixed order keeps sums over brackets bit-for-bit reproducible.
func (d Demographics) Brackets() []Bracket {
	brackets := make([]Bracket, 0, len(d.AgeGroups))
	for label, share := range d.AgeGroups {
		lo, hi, ok := ParseBracket(label)
		if !ok {
			continue
		}
		brackets = append(brackets, Bracket{Label: label, Min: lo, Max: hi, Share: share})
	}

	sort.Slice(brackets, func(i, j int) bool {
		if brackets[i].Min != brackets[j].Min {
			return brackets[i].Min < brackets[j].Min
		}
		return brackets[i].Label < brackets[j].Label
	})
	return brackets
}
