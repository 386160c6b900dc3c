package funnel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kartoza/match-odds/internal/demographics"
)

// Gender is one selectable gender preference.
type Gender string

const (
	GenderWoman     Gender = "woman"
	GenderMan       Gender = "man"
	GenderNonBinary Gender = "nonBinary"
)

var genders = []Gender{GenderWoman, GenderMan, GenderNonBinary}

// UnmarshalText accepts the canonical values case-insensitively, plus
// "non-binary" and "non binary". Unknown genders are rejected.
func (g *Gender) UnmarshalText(text []byte) error {
	for _, known := range genders {
		if foldKey(string(text)) == foldKey(string(known)) {
			*g = known
			return nil
		}
	}
	return fmt.Errorf("unknown gender %q", string(text))
}

// Education is the minimum education level the user asks for.
type Education string

const (
	EducationAny        Education = "Any"
	EducationHighSchool Education = "High School"
	EducationCollege    Education = "College+"
)

// UnmarshalText normalizes spelling variants such as "Highschool".
func (e *Education) UnmarshalText(text []byte) error {
	*e = Education(canonical(string(text), EducationAny, EducationHighSchool, EducationCollege))
	return nil
}

// DatingIntent is what the user is looking for.
type DatingIntent string

const (
	IntentSerious       DatingIntent = "Serious Relationship"
	IntentCasual        DatingIntent = "Casual Fun"
	IntentFiguringItOut DatingIntent = "Still Figuring Out"
)

func (d *DatingIntent) UnmarshalText(text []byte) error {
	*d = DatingIntent(canonical(string(text), IntentSerious, IntentCasual, IntentFiguringItOut))
	return nil
}

// LooksPreference is how much the user cares about looks.
type LooksPreference string

const (
	LooksSupermodelOnly   LooksPreference = "Supermodel Only"
	LooksDecent           LooksPreference = "Decent Looking"
	LooksPersonalityFirst LooksPreference = "Personality Matters More"
)

func (l *LooksPreference) UnmarshalText(text []byte) error {
	*l = LooksPreference(canonical(string(text), LooksSupermodelOnly, LooksDecent, LooksPersonalityFirst))
	return nil
}

// SocialSkills is the user's own social-skills rating.
type SocialSkills string

const (
	SocialButterfly       SocialSkills = "Social butterfly"
	SocialOkay            SocialSkills = "Okay"
	SocialWeirdEyeContact SocialSkills = "I make weird eye contact"
)

func (s *SocialSkills) UnmarshalText(text []byte) error {
	*s = SocialSkills(canonical(string(text), SocialButterfly, SocialOkay, SocialWeirdEyeContact))
	return nil
}

// AgeRange is a closed interval of ages. It travels on the wire as [min, max].
type AgeRange struct {
	Min int
	Max int
}

// Bounds returns the interval ordered low to high.
func (r AgeRange) Bounds() (lo, hi int) {
	if r.Min > r.Max {
		return r.Max, r.Min
	}
	return r.Min, r.Max
}

// Contains reports whether age lies inside the interval.
func (r AgeRange) Contains(age int) bool {
	lo, hi := r.Bounds()
	return age >= lo && age <= hi
}

func (r AgeRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Min, r.Max})
}

// UnmarshalJSON accepts [min, max] or {"min": .., "max": ..}.
func (r *AgeRange) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("age range needs exactly two values, got %d", len(pair))
		}
		r.Min, r.Max = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Min *int `json:"min"`
		Max *int `json:"max"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("age range must be [min, max] or {\"min\", \"max\"}: %w", err)
	}
	if obj.Min == nil || obj.Max == nil {
		return fmt.Errorf("age range needs both min and max")
	}
	r.Min, r.Max = *obj.Min, *obj.Max
	return nil
}

// DefaultAttractivenessRating is shown by the wizard before the user moves the slider.
const DefaultAttractivenessRating = 5

// Answers is everything the user has told the wizard so far. Estimators only
// read it; zero values mean "not answered yet".
type Answers struct {
	Location                 *demographics.Profile `json:"location,omitempty"`
	GenderPreference         []Gender              `json:"genderPreference,omitempty"`
	AgeRange                 *AgeRange             `json:"ageRange,omitempty"`
	Education                Education             `json:"education,omitempty"`
	DatingIntent             DatingIntent          `json:"datingIntent,omitempty"`
	LooksPreference          LooksPreference       `json:"looksPreference,omitempty"`
	SelfAttractivenessRating *int                  `json:"selfAttractivenessRating,omitempty"`
	SocialSkills             SocialSkills          `json:"socialSkills,omitempty"`
}

// AttractivenessRating returns the rating the wizard displays, defaulting to 5.
func (a Answers) AttractivenessRating() int {
	if a.SelfAttractivenessRating == nil {
		return DefaultAttractivenessRating
	}
	return *a.SelfAttractivenessRating
}

// SelectedGenders returns the distinct known genders in canonical order, so the
// gender sum does not depend on selection order or duplicates.
func (a Answers) SelectedGenders() []Gender {
	selected := make([]Gender, 0, len(genders))
	for _, g := range genders {
		for _, chosen := range a.GenderPreference {
			if chosen == g {
				selected = append(selected, g)
				break
			}
		}
	}
	return selected
}

// Rating returns a pointer to r, for building answers in code.
func Rating(r int) *int {
	return &r
}

func canonical[T ~string](raw string, known ...T) string {
	key := foldKey(raw)
	for _, k := range known {
		if foldKey(string(k)) == key {
			return string(k)
		}
	}
	return strings.TrimSpace(raw)
}

// foldKey lowercases s and drops spaces, dashes and underscores.
func foldKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '-', '_', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
