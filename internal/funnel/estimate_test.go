package funnel

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/match-odds/internal/demographics"
)

func exampleProfile() *demographics.Profile {
	return &demographics.Profile{
		Name:       "Example",
		Population: 1_000_000,
		Demographics: demographics.Demographics{
			Male:      demographics.Share(0.49),
			Female:    demographics.Share(0.51),
			AgeGroups: map[string]float64{"25-34": 0.2},
			Education: &demographics.Education{
				HighSchool: demographics.Share(0.3),
				College:    demographics.Share(0.4),
			},
		},
	}
}

func bracketedProfile() *demographics.Profile {
	p := exampleProfile()
	p.Demographics.AgeGroups = map[string]float64{
		"18-24": 0.12,
		"25-34": 0.2,
		"35-44": 0.15,
		"45-54": 0.14,
		"65+":   0.1,
	}
	return p
}

func TestEstimateEndToEndExample(t *testing.T) {
	a := Answers{
		Location:                 exampleProfile(),
		GenderPreference:         []Gender{GenderWoman},
		AgeRange:                 &AgeRange{Min: 25, Max: 34},
		Education:                EducationCollege,
		SelfAttractivenessRating: Rating(10),
	}

	est := Calculate(a)
	assert.Equal(t, int64(16320), est.TotalMatches)
	assert.Equal(t, "1.63", est.Percentage)
	assert.InDelta(t, 1.632, est.Raw, 1e-9)
	assert.Equal(t, DefaultTableVersion, est.TableVersion)

	require.Len(t, est.Stages, len(stages))
	want := map[StageKey]float64{
		StageGender:           0.51,
		StageAge:              0.2,
		StageEducation:        0.4,
		StageDatingIntent:     1,
		StageLooksPreference:  1,
		StageAttractiveness:   1,
		StageSocialSkills:     1,
		StageActiveDatingPool: 0.4,
	}
	for _, r := range est.Stages {
		assert.InDelta(t, want[r.Key], r.Multiplier, 1e-12, "stage %s", r.Key)
	}
	assert.False(t, est.Stages[3].Applied, "dating intent not answered")
	assert.True(t, est.Stages[5].Applied, "attractiveness rated")
}

func TestEstimateWithEveryAnswer(t *testing.T) {
	a := Answers{
		Location:                 exampleProfile(),
		GenderPreference:         []Gender{GenderWoman},
		AgeRange:                 &AgeRange{Min: 25, Max: 34},
		Education:                EducationHighSchool,
		DatingIntent:             IntentSerious,
		LooksPreference:          LooksDecent,
		SelfAttractivenessRating: Rating(5),
		SocialSkills:             SocialOkay,
	}

	// 1e6 * 0.51 * 0.2 * 0.7 * 0.45 * 0.5 * 0.55 * 0.6 * 0.4
	est := Calculate(a)
	assert.Equal(t, int64(2121), est.TotalMatches)
	assert.Equal(t, "0.21", est.Percentage)
}

func TestEstimateDefaultNeutrality(t *testing.T) {
	p := exampleProfile()
	p.Population = 123_457

	est := Calculate(Answers{Location: p})
	assert.Equal(t, "40.00", est.Percentage)
	assert.Equal(t, int64(49383), est.TotalMatches)

	table := DefaultTable()
	table.ActiveDatingRate = 1
	est = NewEstimator(table).Estimate(Answers{Location: p})
	assert.Equal(t, "100.00", est.Percentage)
	assert.Equal(t, int64(123_457), est.TotalMatches)
}

func TestEstimateWithoutLocationOrPopulation(t *testing.T) {
	est := Calculate(Answers{GenderPreference: []Gender{GenderMan}})
	assert.Equal(t, int64(0), est.TotalMatches)
	assert.Equal(t, "0.00", est.Percentage)

	p := exampleProfile()
	p.Population = 0
	est = Calculate(Answers{Location: p, GenderPreference: []Gender{GenderMan}})
	assert.Equal(t, int64(0), est.TotalMatches)
	assert.Equal(t, "0.00", est.Percentage)
	assert.Zero(t, est.Raw)
}

func TestEstimateNarrowingAgeRangeNeverIncreasesMatches(t *testing.T) {
	base := Answers{
		Location:         bracketedProfile(),
		GenderPreference: []Gender{GenderWoman, GenderMan},
		Education:        EducationAny,
	}

	total := func(lo, hi int) int64 {
		a := base
		a.AgeRange = &AgeRange{Min: lo, Max: hi}
		return Calculate(a).TotalMatches
	}

	for lo := 18; lo <= 70; lo++ {
		for hi := lo + 1; hi <= 70; hi++ {
			outer := total(lo, hi)
			assert.LessOrEqual(t, total(lo+1, hi), outer, "[%d,%d] -> [%d,%d]", lo, hi, lo+1, hi)
			assert.LessOrEqual(t, total(lo, hi-1), outer, "[%d,%d] -> [%d,%d]", lo, hi, lo, hi-1)
		}
	}
}

func TestEstimateIsIdempotent(t *testing.T) {
	a := Answers{
		Location:         bracketedProfile(),
		GenderPreference: []Gender{GenderNonBinary, GenderWoman, GenderMan},
		AgeRange:         &AgeRange{Min: 18, Max: 70},
		Education:        EducationHighSchool,
		LooksPreference:  LooksPersonalityFirst,
		SocialSkills:     SocialButterfly,
	}

	first, err := json.Marshal(Calculate(a))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(Calculate(a))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
		assert.Equal(t, Progress(a, 8), Progress(a, 8))
	}
}

func TestEstimateIgnoresSelectionOrderAndDuplicates(t *testing.T) {
	a := Answers{Location: exampleProfile(), GenderPreference: []Gender{GenderMan, GenderWoman}}
	b := Answers{Location: exampleProfile(), GenderPreference: []Gender{GenderWoman, GenderMan, GenderWoman}}
	assert.Equal(t, Calculate(a), Calculate(b))
}

func TestEstimateSkipsStagesWithMissingData(t *testing.T) {
	p := &demographics.Profile{Name: "Sparse", Population: 1000}
	a := Answers{
		Location:         p,
		GenderPreference: []Gender{GenderWoman},
		AgeRange:         &AgeRange{Min: 18, Max: 30},
		Education:        EducationCollege,
		LooksPreference:  "Only Elves",
	}

	est := Calculate(a)
	assert.Equal(t, int64(400), est.TotalMatches)
	for _, r := range est.Stages[:7] {
		assert.False(t, r.Applied, "stage %s", r.Key)
		assert.Equal(t, 1.0, r.Multiplier)
	}
}

func TestEstimateGenderSumIsNotClamped(t *testing.T) {
	p := exampleProfile()
	p.Demographics.Male = demographics.Share(0.9)
	p.Demographics.Female = demographics.Share(0.9)

	table := DefaultTable()
	table.ActiveDatingRate = 1
	est := NewEstimator(table).Estimate(Answers{Location: p, GenderPreference: []Gender{GenderWoman, GenderMan}})
	assert.Equal(t, "180.00", est.Percentage)
}

func TestEstimateSaturatesHugeMatchCounts(t *testing.T) {
	p := exampleProfile()
	p.Population = math.MaxInt64
	p.Demographics.Male = demographics.Share(0.9)
	p.Demographics.Female = demographics.Share(0.9)

	table := DefaultTable()
	table.ActiveDatingRate = 1
	est := NewEstimator(table).Estimate(Answers{Location: p, GenderPreference: []Gender{GenderWoman, GenderMan}})
	assert.Equal(t, int64(math.MaxInt64), est.TotalMatches)
	assert.Equal(t, "180.00", est.Percentage)
}

func TestRoundMatches(t *testing.T) {
	assert.Equal(t, int64(0), roundMatches(math.NaN()))
	assert.Equal(t, int64(0), roundMatches(-3))
	assert.Equal(t, int64(3), roundMatches(2.5))
	assert.Equal(t, int64(math.MaxInt64), roundMatches(math.Inf(1)))
	assert.Equal(t, int64(math.MaxInt64), roundMatches(1e19))
}

func TestEstimatorKeepsPrivateTable(t *testing.T) {
	table := DefaultTable()
	e := NewEstimator(table)
	table.LooksPreference[LooksDecent] = 0

	a := Answers{Location: exampleProfile(), LooksPreference: LooksDecent}
	assert.Equal(t, "20.00", e.Estimate(a).Percentage)
	assert.Equal(t, 0.5, e.Table().LooksPreference[LooksDecent])
}

func TestProgressBeforeFilters(t *testing.T) {
	a := Answers{Location: exampleProfile(), GenderPreference: []Gender{GenderWoman}}
	assert.Equal(t, 100.0, Progress(a, 0))
	assert.Equal(t, 100.0, Progress(a, 1))
	assert.Equal(t, 100.0, Progress(Answers{GenderPreference: []Gender{GenderWoman}}, 5))
}

func TestProgressAppliesStagesBehindCursor(t *testing.T) {
	a := Answers{
		Location:                 exampleProfile(),
		GenderPreference:         []Gender{GenderWoman},
		AgeRange:                 &AgeRange{Min: 25, Max: 34},
		Education:                EducationCollege,
		DatingIntent:             IntentCasual,
		LooksPreference:          LooksSupermodelOnly,
		SelfAttractivenessRating: Rating(10),
		SocialSkills:             SocialWeirdEyeContact,
	}

	tests := []struct {
		answered int
		want     float64
	}{
		{2, 51},
		{3, 10.2},
		{4, 4.08},
		{5, 4.08}, // dating intent is final-only
		{6, 0.408},
		{7, 0.408},
		{8, 0.1632},
		{20, 0.1632},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Progress(a, tt.answered), 1e-9, "answered=%d", tt.answered)
	}
}

func TestProgressIsBounded(t *testing.T) {
	p := exampleProfile()
	p.Demographics.Male = demographics.Share(0.99)
	p.Demographics.Female = demographics.Share(0.99)
	a := Answers{Location: p, GenderPreference: []Gender{GenderWoman, GenderMan, GenderNonBinary}}

	for n := 0; n <= 10; n++ {
		got := Progress(a, n)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
	assert.Equal(t, 100.0, Progress(a, 2))
}

func TestProgressZeroPopulation(t *testing.T) {
	p := exampleProfile()
	p.Population = 0
	assert.Equal(t, 0.0, Progress(Answers{Location: p, GenderPreference: []Gender{GenderWoman}}, 3))
}

func TestChanged(t *testing.T) {
	assert.False(t, Changed(50, 50))
	assert.False(t, Changed(50, 50.005))
	assert.True(t, Changed(50, 50.02))
	assert.True(t, Changed(50.02, 50))
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "0.00", FormatPercentage(0))
	assert.Equal(t, "12.35", FormatPercentage(12.345678))
	assert.Equal(t, "100.00", FormatPercentage(100))
}
