package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/funnel"
	"github.com/kartoza/match-odds/internal/particles"
	"github.com/kartoza/match-odds/internal/server"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate matches for one set of answers",
	Long: `Looks up a city and runs the match funnel over the given answers.

Examples:
  # Women aged 25-34 with a degree in Chicago
  match-odds estimate --city "Chicago city, Illinois" --gender woman --age 25-34 --education College+

  # Show how the pool shrinks question by question
  match-odds estimate --city "Miami city, Florida" --gender man,nonBinary --age 30-45 \
    --intent "Casual Fun" --looks "Decent Looking" --rating 7 --social Okay --steps`,
	RunE: runEstimate,
}

// answerFlags holds the raw answer flags before normalization.
type answerFlags struct {
	genders   []string
	age       string
	education string
	intent    string
	looks     string
	rating    int
	social    string
}

var estimateAnswers answerFlags

func init() {
	f := estimateCmd.Flags()
	f.String("city", "", "city name as returned by 'cities search' (required)")
	f.StringSliceVar(&estimateAnswers.genders, "gender", nil, "genders to date: woman, man, nonBinary")
	f.StringVar(&estimateAnswers.age, "age", "", "age range as MIN-MAX, e.g. 25-34")
	f.StringVar(&estimateAnswers.education, "education", "", "Any, High School or College+")
	f.StringVar(&estimateAnswers.intent, "intent", "", "Serious Relationship, Casual Fun or Still Figuring Out")
	f.StringVar(&estimateAnswers.looks, "looks", "", "Supermodel Only, Decent Looking or Personality Matters More")
	f.IntVar(&estimateAnswers.rating, "rating", 0, "self-rated attractiveness 1-10 (0 skips the stage)")
	f.StringVar(&estimateAnswers.social, "social", "", "Social butterfly, Okay or I make weird eye contact")
	f.Bool("steps", false, "print live progress after each question")
	f.Bool("json", false, "print the result as JSON")
	estimateCmd.MarkFlagRequired("city")

	rootCmd.AddCommand(estimateCmd)
}

// answers converts the flags into an answer set without a location.
func (f answerFlags) answers() (funnel.Answers, error) {
	var a funnel.Answers

	for _, raw := range f.genders {
		var g funnel.Gender
		if err := g.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
			return a, err
		}
		a.GenderPreference = append(a.GenderPreference, g)
	}

	if f.age != "" {
		r, err := parseAgeRange(f.age)
		if err != nil {
			return a, err
		}
		a.AgeRange = &r
	}

	text := func(raw string, dst interface{ UnmarshalText([]byte) error }) {
		if raw != "" {
			dst.UnmarshalText([]byte(raw))
		}
	}
	text(f.education, &a.Education)
	text(f.intent, &a.DatingIntent)
	text(f.looks, &a.LooksPreference)
	text(f.social, &a.SocialSkills)

	if f.rating != 0 {
		if f.rating < 1 || f.rating > 10 {
			return a, eris.Errorf("rating must be 1-10 (got %d)", f.rating)
		}
		a.SelfAttractivenessRating = funnel.Rating(f.rating)
	}
	return a, nil
}

// parseAgeRange reads "MIN-MAX".
func parseAgeRange(s string) (funnel.AgeRange, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return funnel.AgeRange{}, eris.Errorf("age range %q must look like 25-34", s)
	}
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return funnel.AgeRange{}, eris.Wrapf(err, "age range %q", s)
	}
	to, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return funnel.AgeRange{}, eris.Wrapf(err, "age range %q", s)
	}
	return funnel.AgeRange{Min: from, Max: to}, nil
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := zap.L().With(zap.String("command", "estimate"))

	a, err := estimateAnswers.answers()
	if err != nil {
		return err
	}

	estimator, err := server.LoadEstimator(cfg.StageTablePath)
	if err != nil {
		return eris.Wrap(err, "estimate: load stage table")
	}

	providers, err := server.OpenProviders(ctx, *cfg, log)
	if err != nil {
		return eris.Wrap(err, "estimate: open city data")
	}
	defer providers.Close()

	city, _ := cmd.Flags().GetString("city")
	a.Location, err = providers.Provider.Lookup(ctx, city)
	if err != nil {
		return eris.Wrapf(err, "estimate: look up %q", city)
	}

	est := estimator.Estimate(a)
	verdict := funnel.VerdictFor(est.Raw)

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"city":     a.Location.Name,
			"estimate": est,
			"verdict":  verdict,
		})
	}

	if steps, _ := cmd.Flags().GetBool("steps"); steps {
		printSteps(out, estimator, a)
	}
	printEstimate(out, a.Location.Name, est, verdict)
	return nil
}

// printSteps shows the live percentage the wizard would display after each
// answered question.
func printSteps(w io.Writer, e *funnel.Estimator, a funnel.Answers) {
	prev := 100.0
	for _, q := range funnel.Questions() {
		p := e.Progress(a, q.Index+1)
		marker := ""
		if funnel.Changed(prev, p) {
			marker = " *"
		}
		fmt.Fprintf(w, "  %d. %-45s %6.2f%%  (%3d particles)%s\n",
			q.Index+1, q.Title, p, particles.ActiveCount(p, particles.Total), marker)
		prev = p
	}
	fmt.Fprintln(w)
}

func printEstimate(w io.Writer, city string, est funnel.Estimate, v funnel.Verdict) {
	fmt.Fprintf(w, "%s\n", city)
	fmt.Fprintf(w, "  Potential matches: %d (%s%%)\n", est.TotalMatches, est.Percentage)
	fmt.Fprintf(w, "  %s\n", v.Message)
	fmt.Fprintf(w, "  Stage table: %s\n", est.TableVersion)
}
