package census

import (
	"fmt"
	"strconv"

	"github.com/kartoza/match-odds/internal/demographics"
)

// ACS variables requested for a city profile.
const (
	VarName        = "NAME"
	VarTotal       = "B01003_001E"
	VarMale        = "B01001_002E"
	VarFemale      = "B01001_026E"
	VarAge18to24   = "B01001_010E"
	VarAge25to34   = "B01001_011E"
	VarAge35to44   = "B01001_012E"
	VarAge45to54   = "B01001_013E"
	VarHighSchool  = "B15003_016E"
	VarSomeCollege = "B15003_017E"
	VarBachelors   = "B15003_021E"
	VarMasters     = "B15003_022E"
)

// ageVariables maps each age bracket to its ACS column.
var ageVariables = []struct {
	label    string
	variable string
}{
	{"18-24", VarAge18to24},
	{"25-34", VarAge25to34},
	{"35-44", VarAge35to44},
	{"45-54", VarAge45to54},
}

var collegeVariables = []string{VarSomeCollege, VarBachelors, VarMasters}

// profileVariables is the NAME column followed by every count the mapper reads.
var profileVariables = []string{
	VarName, VarTotal, VarMale, VarFemale,
	VarAge18to24, VarAge25to34, VarAge35to44, VarAge45to54,
	VarHighSchool, VarSomeCollege, VarBachelors, VarMasters,
}

// table is a census response: a header row followed by data rows.
type table struct {
	index map[string]int
	rows  [][]*string
}

func newTable(raw [][]*string) (*table, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("census: empty response")
	}
	t := &table{index: make(map[string]int, len(raw[0])), rows: raw[1:]}
	for i, h := range raw[0] {
		if h != nil {
			t.index[*h] = i
		}
	}
	if _, ok := t.index[VarName]; !ok {
		return nil, fmt.Errorf("census: response has no %s column", VarName)
	}
	return t, nil
}

func (t *table) cell(row []*string, variable string) (string, bool) {
	i, ok := t.index[variable]
	if !ok || i >= len(row) || row[i] == nil {
		return "", false
	}
	return *row[i], true
}

func (t *table) count(row []*string, variable string) (int64, bool) {
	s, ok := t.cell(row, variable)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// names returns the NAME column in response order.
func (t *table) names() []string {
	out := make([]string, 0, len(t.rows))
	for _, row := range t.rows {
		if name, ok := t.cell(row, VarName); ok {
			out = append(out, name)
		}
	}
	return out
}

// find returns the first row whose NAME equals name.
func (t *table) find(name string) ([]*string, bool) {
	for _, row := range t.rows {
		if n, ok := t.cell(row, VarName); ok && n == name {
			return row, true
		}
	}
	return nil, false
}

// toProfile divides each count by the total population. A count the census
// leaves null drops that share, so the funnel skips the stage needing it.
func (t *table) toProfile(row []*string) (*demographics.Profile, error) {
	name, _ := t.cell(row, VarName)
	total, ok := t.count(row, VarTotal)
	if !ok || total <= 0 {
		return nil, fmt.Errorf("census: %q has no total population", name)
	}

	share := func(variables ...string) *float64 {
		var sum int64
		for _, v := range variables {
			n, ok := t.count(row, v)
			if !ok {
				return nil
			}
			sum += n
		}
		return demographics.Share(float64(sum) / float64(total))
	}

	d := demographics.Demographics{
		Male:      share(VarMale),
		Female:    share(VarFemale),
		AgeGroups: map[string]float64{},
	}
	for _, a := range ageVariables {
		if s := share(a.variable); s != nil {
			d.AgeGroups[a.label] = *s
		}
	}

	hs, college := share(VarHighSchool), share(collegeVariables...)
	if hs != nil || college != nil {
		d.Education = &demographics.Education{HighSchool: hs, College: college}
	}

	p := &demographics.Profile{Name: name, Population: total, Demographics: d}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
