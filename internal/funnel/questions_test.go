package funnel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionsLineUpWithStages(t *testing.T) {
	qs := Questions()
	require.Len(t, qs, QuestionCount())
	for i, q := range qs {
		assert.Equal(t, i, q.Index)
	}

	for _, s := range Stages() {
		if s.Question == NoQuestion {
			continue
		}
		assert.Equal(t, s.Key, qs[s.Question].Stage)
	}
}

func TestIsAnswered(t *testing.T) {
	var a Answers
	assert.False(t, IsAnswered(a, QuestionLocation))
	assert.False(t, IsAnswered(a, QuestionGender))
	assert.True(t, IsAnswered(a, QuestionAttractiveness))
	assert.False(t, IsAnswered(a, -1))
	assert.False(t, IsAnswered(a, QuestionCount()))

	a.Location = exampleProfile()
	a.GenderPreference = []Gender{}
	assert.True(t, IsAnswered(a, QuestionLocation))
	assert.False(t, IsAnswered(a, QuestionGender))

	a.GenderPreference = []Gender{GenderNonBinary}
	a.AgeRange = &AgeRange{Min: 25, Max: 35}
	a.Education = EducationAny
	assert.True(t, IsAnswered(a, QuestionGender))
	assert.True(t, IsAnswered(a, QuestionAge))
	assert.True(t, IsAnswered(a, QuestionEducation))
	assert.False(t, IsAnswered(a, QuestionDatingIntent))
}

func TestFirstUnanswered(t *testing.T) {
	a := Answers{Location: exampleProfile(), GenderPreference: []Gender{GenderWoman}}
	assert.Equal(t, QuestionAge, FirstUnanswered(a))

	a.AgeRange = &AgeRange{Min: 18, Max: 60}
	a.Education = EducationCollege
	a.DatingIntent = IntentCasual
	a.LooksPreference = LooksDecent
	a.SocialSkills = SocialOkay
	assert.Equal(t, QuestionCount(), FirstUnanswered(a))
}

func TestAnswersDecodeNormalizesSpelling(t *testing.T) {
	var a Answers
	err := json.Unmarshal([]byte(`{
		"genderPreference": ["Woman", "non-binary"],
		"ageRange": {"min": 25, "max": 34},
		"education": "college+",
		"datingIntent": "serious relationship",
		"looksPreference": "Personality matters more",
		"socialSkills": "okay",
		"selfAttractivenessRating": 7
	}`), &a)
	require.NoError(t, err)

	assert.Equal(t, []Gender{GenderWoman, GenderNonBinary}, a.GenderPreference)
	assert.Equal(t, &AgeRange{Min: 25, Max: 34}, a.AgeRange)
	assert.Equal(t, EducationCollege, a.Education)
	assert.Equal(t, IntentSerious, a.DatingIntent)
	assert.Equal(t, LooksPersonalityFirst, a.LooksPreference)
	assert.Equal(t, SocialOkay, a.SocialSkills)
	assert.Equal(t, 7, a.AttractivenessRating())
}

func TestAnswersDecodeRejectsUnknownGender(t *testing.T) {
	var a Answers
	err := json.Unmarshal([]byte(`{"genderPreference": ["robot"]}`), &a)
	assert.Error(t, err)
}

func TestAgeRangeJSON(t *testing.T) {
	var r AgeRange
	require.NoError(t, json.Unmarshal([]byte(`[30, 40]`), &r))
	assert.Equal(t, AgeRange{Min: 30, Max: 40}, r)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `[30, 40]`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`[30]`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"min": 30}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`"thirty"`), &r))
}

func TestAgeRangeBoundsAreOrdered(t *testing.T) {
	r := AgeRange{Min: 40, Max: 30}
	lo, hi := r.Bounds()
	assert.Equal(t, 30, lo)
	assert.Equal(t, 40, hi)
	assert.True(t, r.Contains(35))
	assert.False(t, r.Contains(41))
}

func TestAttractivenessRatingDefault(t *testing.T) {
	assert.Equal(t, DefaultAttractivenessRating, Answers{}.AttractivenessRating())
}

func TestVerdictFor(t *testing.T) {
	assert.Equal(t, VerdictPlenty, VerdictFor(5).Level)
	assert.Equal(t, VerdictPromising, VerdictFor(4.99).Level)
	assert.Equal(t, VerdictPromising, VerdictFor(1).Level)
	assert.Equal(t, VerdictNeedle, VerdictFor(0.1).Level)
	assert.Equal(t, VerdictMove, VerdictFor(0.0999).Level)
	assert.Equal(t, VerdictMove, VerdictFor(0).Level)
}
