package funnel

// Wizard question indexes, in the order the wizard asks them.
const (
	QuestionLocation = iota
	QuestionGender
	QuestionAge
	QuestionEducation
	QuestionDatingIntent
	QuestionLooks
	QuestionAttractiveness
	QuestionSocialSkills
)

// Question describes one wizard step: what it asks, the message shown when
// it is left blank, and the funnel stage its answer drives.
type Question struct {
	Index    int      `json:"index"`
	Field    string   `json:"field"`
	Title    string   `json:"title"`
	Required string   `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
	Stage    StageKey `json:"stage,omitempty"`

	answered func(*Answers) bool
}

var questions = []Question{
	{
		Index:    QuestionLocation,
		Field:    "location",
		Title:    "Where do you live?",
		Required: "Please select a city to continue",
		answered: func(a *Answers) bool { return a.Location != nil },
	},
	{
		Index:    QuestionGender,
		Field:    "genderPreference",
		Title:    "I want to date...",
		Required: "Please select at least one gender preference",
		Options:  []string{string(GenderWoman), string(GenderMan), string(GenderNonBinary)},
		Stage:    StageGender,
		answered: func(a *Answers) bool { return len(a.GenderPreference) > 0 },
	},
	{
		Index:    QuestionAge,
		Field:    "ageRange",
		Title:    "Age between",
		Required: "Please select an age range",
		Stage:    StageAge,
		answered: func(a *Answers) bool { return a.AgeRange != nil },
	},
	{
		Index:    QuestionEducation,
		Field:    "education",
		Title:    "Education Level - does it matter?",
		Required: "Please select an education level",
		Options:  []string{string(EducationAny), string(EducationHighSchool), string(EducationCollege)},
		Stage:    StageEducation,
		answered: func(a *Answers) bool { return a.Education != "" },
	},
	{
		Index:    QuestionDatingIntent,
		Field:    "datingIntent",
		Title:    "What are you looking for?",
		Required: "Please select what you're looking for",
		Options:  []string{string(IntentSerious), string(IntentCasual), string(IntentFiguringItOut)},
		Stage:    StageDatingIntent,
		answered: func(a *Answers) bool { return a.DatingIntent != "" },
	},
	{
		Index:    QuestionLooks,
		Field:    "looksPreference",
		Title:    "How important is looks to you?",
		Required: "Please select how important looks are to you",
		Options:  []string{string(LooksSupermodelOnly), string(LooksDecent), string(LooksPersonalityFirst)},
		Stage:    StageLooksPreference,
		answered: func(a *Answers) bool { return a.LooksPreference != "" },
	},
	{
		Index:    QuestionAttractiveness,
		Field:    "selfAttractivenessRating",
		Title:    "Well, how attractive do YOU think you are?",
		Stage:    StageAttractiveness,
		answered: func(*Answers) bool { return true },
	},
	{
		Index:    QuestionSocialSkills,
		Field:    "socialSkills",
		Title:    "And how are your social skills?",
		Required: "Please select your social skills level",
		Options:  []string{string(SocialButterfly), string(SocialOkay), string(SocialWeirdEyeContact)},
		Stage:    StageSocialSkills,
		answered: func(a *Answers) bool { return a.SocialSkills != "" },
	},
}

// Questions returns the wizard steps in order.
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

// QuestionCount is the number of wizard steps.
func QuestionCount() int {
	return len(questions)
}

// IsAnswered reports whether the question at index has a usable answer.
// Out-of-range indexes are never answered.
func IsAnswered(a Answers, index int) bool {
	if index < 0 || index >= len(questions) {
		return false
	}
	return questions[index].answered(&a)
}

// FirstUnanswered returns the lowest index without an answer, or
// QuestionCount() when every question is answered.
func FirstUnanswered(a Answers) int {
	for i := range questions {
		if !questions[i].answered(&a) {
			return i
		}
	}
	return len(questions)
}
