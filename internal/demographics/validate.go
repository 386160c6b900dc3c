package demographics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidProfile matches every profile validation failure via errors.Is.
var ErrInvalidProfile = errors.New("invalid demographic profile")

// ValidationError lists every problem found in a profile.
type ValidationError struct {
	Name     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q:\n  - %s", ErrInvalidProfile, e.Name, strings.Join(e.Problems, "\n  - "))
}

// Is implements errors.Is matching against ErrInvalidProfile.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidProfile
}

// Validate rejects profiles that providers must never hand to the estimator:
// a non-positive population, or any share that is not a finite value in [0,1].
// Missing optional shares are fine.
func (p *Profile) Validate() error {
	if p == nil {
		return &ValidationError{Problems: []string{"profile is nil"}}
	}

	var problems []string
	if p.Population <= 0 {
		problems = append(problems, fmt.Sprintf("population must be greater than 0 (got %d)", p.Population))
	}

	checkShare := func(path string, v *float64) {
		if v == nil {
			return
		}
		if msg := shareProblem(*v); msg != "" {
			problems = append(problems, fmt.Sprintf("%s %s (got %v)", path, msg, *v))
		}
	}

	d := p.Demographics
	checkShare("demographics.male", d.Male)
	checkShare("demographics.female", d.Female)
	if d.Education != nil {
		checkShare("demographics.education.highschool", d.Education.HighSchool)
		checkShare("demographics.education.college", d.Education.College)
	}

	labels := make([]string, 0, len(d.AgeGroups))
	for label := range d.AgeGroups {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		share := d.AgeGroups[label]
		path := fmt.Sprintf("demographics.ageGroups[%q]", label)
		lo, hi, ok := ParseBracket(label)
		if !ok {
			problems = append(problems, path+" label must look like \"25-34\" or \"65+\"")
			continue
		}
		if lo > hi {
			problems = append(problems, fmt.Sprintf("%s lower bound %d exceeds upper bound %d", path, lo, hi))
		}
		checkShare(path, &share)
	}

	if len(problems) > 0 {
		return &ValidationError{Name: p.Name, Problems: problems}
	}
	return nil
}

func shareProblem(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "must be finite"
	case v < 0:
		return "must be non-negative"
	case v > 1:
		return "must not exceed 1"
	}
	return ""
}
