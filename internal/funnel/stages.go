package funnel

import (
	"math"

	"github.com/kartoza/match-odds/internal/demographics"
)

// StageKey names one filter stage of the funnel.
type StageKey string

const (
	StageGender           StageKey = "gender"
	StageAge              StageKey = "age"
	StageEducation        StageKey = "education"
	StageDatingIntent     StageKey = "datingIntent"
	StageLooksPreference  StageKey = "looksPreference"
	StageAttractiveness   StageKey = "selfAttractiveness"
	StageSocialSkills     StageKey = "socialSkills"
	StageActiveDatingPool StageKey = "activeDatingPool"
)

// NoQuestion marks a stage that is not tied to any wizard question.
const NoQuestion = -1

// Stage is one entry of the ordered filter table. Question is the wizard
// index whose answer drives the stage; FinalOnly stages are left out of
// progress estimates. multiplier reports false when the stage has nothing to
// do for the given input.
type Stage struct {
	Key       StageKey
	Question  int
	FinalOnly bool

	multiplier func(t *Table, a *Answers, p *demographics.Profile) (float64, bool)
}

// StageResult records what one stage did to the running total.
type StageResult struct {
	Key        StageKey `json:"key"`
	Applied    bool     `json:"applied"`
	Multiplier float64  `json:"multiplier"`
	Remaining  float64  `json:"remaining"`
}

// stages is the canonical evaluation order.
var stages = []Stage{
	{Key: StageGender, Question: QuestionGender, multiplier: genderMultiplier},
	{Key: StageAge, Question: QuestionAge, multiplier: ageMultiplier},
	{Key: StageEducation, Question: QuestionEducation, multiplier: educationMultiplier},
	{Key: StageDatingIntent, Question: QuestionDatingIntent, FinalOnly: true, multiplier: datingIntentMultiplier},
	{Key: StageLooksPreference, Question: QuestionLooks, multiplier: looksMultiplier},
	{Key: StageAttractiveness, Question: QuestionAttractiveness, multiplier: attractivenessMultiplier},
	{Key: StageSocialSkills, Question: QuestionSocialSkills, multiplier: socialSkillsMultiplier},
	{Key: StageActiveDatingPool, Question: NoQuestion, FinalOnly: true, multiplier: activeDatingMultiplier},
}

// Stages returns the filter stages in evaluation order.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

func genderMultiplier(t *Table, a *Answers, p *demographics.Profile) (float64, bool) {
	selected := a.SelectedGenders()
	if len(selected) == 0 {
		return 0, false
	}

	d := p.Demographics
	sum := 0.0
	for _, g := range selected {
		switch g {
		case GenderWoman:
			if d.Female == nil {
				return 0, false
			}
			sum += *d.Female
		case GenderMan:
			if d.Male == nil {
				return 0, false
			}
			sum += *d.Male
		case GenderNonBinary:
			sum += t.NonBinaryShare
		}
	}
	return sum, true
}

// ageMultiplier sums every bracket whose lower bound falls inside the range.
func ageMultiplier(_ *Table, a *Answers, p *demographics.Profile) (float64, bool) {
	if a.AgeRange == nil || len(p.Demographics.AgeGroups) == 0 {
		return 0, false
	}

	sum := 0.0
	for _, b := range p.Demographics.Brackets() {
		if a.AgeRange.Contains(b.Min) {
			sum += b.Share
		}
	}
	return sum, true
}

func educationMultiplier(_ *Table, a *Answers, p *demographics.Profile) (float64, bool) {
	edu := p.Demographics.Education
	switch a.Education {
	case EducationAny:
		return 1, true
	case EducationHighSchool:
		if edu == nil || edu.HighSchool == nil || edu.College == nil {
			return 0, false
		}
		return *edu.HighSchool + *edu.College, true
	case EducationCollege:
		if edu == nil || edu.College == nil {
			return 0, false
		}
		return *edu.College, true
	}
	return 0, false
}

func datingIntentMultiplier(t *Table, a *Answers, _ *demographics.Profile) (float64, bool) {
	m, ok := t.DatingIntent[a.DatingIntent]
	return m, ok
}

func looksMultiplier(t *Table, a *Answers, _ *demographics.Profile) (float64, bool) {
	m, ok := t.LooksPreference[a.LooksPreference]
	return m, ok
}

func attractivenessMultiplier(t *Table, a *Answers, _ *demographics.Profile) (float64, bool) {
	if a.SelfAttractivenessRating == nil {
		return 0, false
	}
	return t.Attractiveness.At(*a.SelfAttractivenessRating), true
}

func socialSkillsMultiplier(t *Table, a *Answers, _ *demographics.Profile) (float64, bool) {
	m, ok := t.SocialSkills[a.SocialSkills]
	return m, ok
}

func activeDatingMultiplier(t *Table, _ *Answers, _ *demographics.Profile) (float64, bool) {
	return t.ActiveDatingRate, true
}

// run applies the selected stages to population. include decides per stage
// whether it takes part at all.
func run(t *Table, a *Answers, p *demographics.Profile, include func(Stage) bool) (float64, []StageResult) {
	remaining := float64(p.Population)
	results := make([]StageResult, 0, len(stages))

	for _, s := range stages {
		if !include(s) {
			continue
		}
		m, ok := s.multiplier(t, a, p)
		if ok {
			switch {
			case math.IsNaN(m) || math.IsInf(m, 0):
				ok = false
			case m < 0:
				m = 0
			}
		}
		if ok {
			remaining *= m
		} else {
			m = 1
		}
		results = append(results, StageResult{Key: s.Key, Applied: ok, Multiplier: m, Remaining: remaining})
	}
	return remaining, results
}
