package profiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/match-odds/internal/cities"
	"github.com/kartoza/match-odds/internal/demographics"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities.db")
	s, err := Open(path, false, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func springfield() *demographics.Profile {
	return &demographics.Profile{
		Name:       "Springfield city, Illinois",
		Population: 114_394,
		Demographics: demographics.Demographics{
			Male:      demographics.Share(0.47),
			Female:    demographics.Share(0.53),
			AgeGroups: map[string]float64{"18-24": 0.09, "25-34": 0.14},
			Education: &demographics.Education{HighSchool: demographics.Share(0.25), College: demographics.Share(0.33)},
		},
	}
}

func TestSaveAndLookup(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.NoError(t, s.Save(ctx, springfield(), "test"))
	got, err := s.Lookup(ctx, "Springfield city, Illinois")
	require.NoError(t, err)
	assert.Equal(t, springfield(), got)

	updated := springfield()
	updated.Population = 120_000
	require.NoError(t, s.Save(ctx, updated, "test"))
	got, err = s.Lookup(ctx, "Springfield city, Illinois")
	require.NoError(t, err)
	assert.Equal(t, int64(120_000), got.Population)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLookupMissing(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Lookup(context.Background(), "Shelbyville")
	assert.ErrorIs(t, err, cities.ErrNotFound)
}

func TestSaveRejectsInvalidProfile(t *testing.T) {
	s, _ := openTestStore(t)
	p := springfield()
	p.Population = 0
	assert.ErrorIs(t, s.Save(context.Background(), p, "test"), demographics.ErrInvalidProfile)
}

func TestSearchOrdersByPopulation(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	_, err := s.SeedDefaults(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, springfield(), "test"))

	names, err := s.Search(ctx, "CITY, CALIFORNIA")
	require.NoError(t, err)
	assert.Equal(t, []string{"Los Angeles city, California", "San Francisco city, California"}, names)

	names, err = s.Search(ctx, "illinois")
	require.NoError(t, err)
	assert.Equal(t, []string{"Chicago city, Illinois", "Springfield city, Illinois"}, names)

	names, err = s.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, cities.DefaultCities, names)

	names, err = s.Search(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSeedDefaultsOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	res, err := s.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(cities.DefaultCities), res.Imported)

	for _, name := range cities.DefaultCities {
		p, err := s.Lookup(ctx, name)
		require.NoError(t, err, name)
		assert.NoError(t, p.Validate())
	}

	res, err = s.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
}

func TestImportFileReportsInvalidProfiles(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	path := filepath.Join(t.TempDir(), "extra.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "Capital City", "population": 5000, "demographics": {"male": 0.5, "female": 0.5}},
		{"name": "Broken Town", "population": -1, "demographics": {}}
	]`), 0644))

	res, err := s.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Problems, 1)
	assert.Contains(t, res.Problems[0], "Broken Town")

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Capital City", list[0].Name)
}

func TestParseSeedShapes(t *testing.T) {
	list, err := ParseSeed([]byte(`{"cities": [{"name": "A", "population": 1}]}`), "json")
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = ParseSeed([]byte("- name: B\n  population: 2\n"), "yml")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Name)

	_, err = ParseSeed([]byte("name,population"), "csv")
	assert.Error(t, err)
}

func TestReadOnlyStore(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)
	require.NoError(t, s.Save(ctx, springfield(), "test"))

	ro, err := Open(path, true, nil)
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.Lookup(ctx, "Springfield city, Illinois")
	require.NoError(t, err)
	assert.Error(t, ro.Save(ctx, springfield(), "test"))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	require.NoError(t, s.Save(ctx, springfield(), "test"))

	require.NoError(t, s.Delete(ctx, "Springfield city, Illinois"))
	assert.ErrorIs(t, s.Delete(ctx, "Springfield city, Illinois"), cities.ErrNotFound)
}
