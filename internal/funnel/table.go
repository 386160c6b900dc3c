package funnel

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTableVersion names the built-in constant set.
const DefaultTableVersion = "2025.1"

// Ramp maps a 1-10 self-rating to min(Floor + rating/10*Slope, 1).
type Ramp struct {
	Floor float64 `yaml:"floor" json:"floor"`
	Slope float64 `yaml:"slope" json:"slope"`
}

// At evaluates the ramp, clamped to [0,1].
func (r Ramp) At(rating int) float64 {
	return clampUnit(r.Floor + float64(rating)/10*r.Slope)
}

// Table holds every heuristic constant the funnel uses. Lookup tables that
// miss a key leave the population unchanged.
type Table struct {
	Version          string                      `yaml:"version" json:"version"`
	NonBinaryShare   float64                     `yaml:"non_binary_share" json:"nonBinaryShare"`
	DatingIntent     map[DatingIntent]float64    `yaml:"dating_intent" json:"datingIntent"`
	LooksPreference  map[LooksPreference]float64 `yaml:"looks_preference" json:"looksPreference"`
	SocialSkills     map[SocialSkills]float64    `yaml:"social_skills" json:"socialSkills"`
	Attractiveness   Ramp                        `yaml:"attractiveness" json:"attractiveness"`
	ActiveDatingRate float64                     `yaml:"active_dating_rate" json:"activeDatingRate"`
}

// DefaultTable returns the built-in constants: dating intent on, and 40% of the
// filtered pool assumed to be single and actively dating.
func DefaultTable() Table {
	return Table{
		Version:        DefaultTableVersion,
		NonBinaryShare: 0.012,
		DatingIntent: map[DatingIntent]float64{
			IntentSerious:       0.45,
			IntentCasual:        0.25,
			IntentFiguringItOut: 0.30,
		},
		LooksPreference: map[LooksPreference]float64{
			LooksSupermodelOnly:   0.1,
			LooksDecent:           0.5,
			LooksPersonalityFirst: 0.8,
		},
		SocialSkills: map[SocialSkills]float64{
			SocialButterfly:       0.8,
			SocialOkay:            0.6,
			SocialWeirdEyeContact: 0.4,
		},
		Attractiveness:   Ramp{Floor: 0.1, Slope: 0.9},
		ActiveDatingRate: 0.4,
	}
}

// ParseTable decodes a YAML table on top of the defaults, so a file only
// needs the constants it changes.
func ParseTable(data []byte) (Table, error) {
	t := DefaultTable()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parsing stage table YAML: %w", err)
	}
	t.normalize()

	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// LoadTable reads a stage table from a YAML file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("reading stage table: %w", err)
	}
	return ParseTable(data)
}

// Validate checks that every multiplier lies in [0,1].
func (t Table) Validate() error {
	var errs []string

	check := func(path string, v float64) {
		if math.IsNaN(v) || v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be within [0,1] (got %v)", path, v))
		}
	}

	if strings.TrimSpace(t.Version) == "" {
		errs = append(errs, "version is required")
	}
	check("non_binary_share", t.NonBinaryShare)
	check("active_dating_rate", t.ActiveDatingRate)
	check("attractiveness.floor", t.Attractiveness.Floor)
	if t.Attractiveness.Slope < 0 || math.IsNaN(t.Attractiveness.Slope) {
		errs = append(errs, fmt.Sprintf("attractiveness.slope must be non-negative (got %v)", t.Attractiveness.Slope))
	}
	for _, k := range sortedKeys(t.DatingIntent) {
		check(fmt.Sprintf("dating_intent[%q]", k), t.DatingIntent[k])
	}
	for _, k := range sortedKeys(t.LooksPreference) {
		check(fmt.Sprintf("looks_preference[%q]", k), t.LooksPreference[k])
	}
	for _, k := range sortedKeys(t.SocialSkills) {
		check(fmt.Sprintf("social_skills[%q]", k), t.SocialSkills[k])
	}

	if len(errs) > 0 {
		return fmt.Errorf("stage table %q errors:\n  - %s", t.Version, strings.Join(errs, "\n  - "))
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate a shared table.
func (t Table) Clone() Table {
	c := t
	c.DatingIntent = cloneMap(t.DatingIntent)
	c.LooksPreference = cloneMap(t.LooksPreference)
	c.SocialSkills = cloneMap(t.SocialSkills)
	return c
}

// normalize rewrites lookup keys from a YAML file to their canonical spelling.
func (t *Table) normalize() {
	t.DatingIntent = normalizeKeys(t.DatingIntent, IntentSerious, IntentCasual, IntentFiguringItOut)
	t.LooksPreference = normalizeKeys(t.LooksPreference, LooksSupermodelOnly, LooksDecent, LooksPersonalityFirst)
	t.SocialSkills = normalizeKeys(t.SocialSkills, SocialButterfly, SocialOkay, SocialWeirdEyeContact)
}

func normalizeKeys[K ~string](m map[K]float64, known ...K) map[K]float64 {
	out := make(map[K]float64, len(m))
	for _, k := range sortedKeys(m) {
		out[K(canonical(string(k), known...))] = m[k]
	}
	return out
}

func cloneMap[K comparable](m map[K]float64) map[K]float64 {
	if m == nil {
		return nil
	}
	out := make(map[K]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[K ~string](m map[K]float64) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
