// Package profiles keeps city demographic profiles in a local SQLite
// database, so estimates work without the census API.
package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/cities"
	"github.com/kartoza/match-odds/internal/demographics"
)

const schema = `
CREATE TABLE IF NOT EXISTS cities (
	name         TEXT PRIMARY KEY,
	population   INTEGER NOT NULL,
	demographics TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS cities_population ON cities (population DESC);
`

// Store is a cities.Provider backed by a SQLite file.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ cities.Provider = (*Store)(nil)

// Open opens (and if needed creates) the database at path. A read-only store
// never creates or migrates the file.
func Open(path string, readOnly bool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := "file:" + path + "?_busy_timeout=5000"
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "profiles: open %s", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrapf(err, "profiles: connect to %s", path)
	}

	if !readOnly {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, eris.Wrap(err, "profiles: create schema")
		}
	}

	s := &Store{db: db, path: path, logger: logger.With(zap.String("component", "profiles"))}
	n, err := s.Count(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("opened city profile database", zap.String("path", path), zap.Int("cities", n), zap.Bool("readOnly", readOnly))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of stored cities.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM cities").Scan(&n); err != nil {
		return 0, eris.Wrap(err, "profiles: count")
	}
	return n, nil
}

// Save validates p and inserts or replaces it.
func (s *Store) Save(ctx context.Context, p *demographics.Profile, source string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p.Demographics)
	if err != nil {
		return fmt.Errorf("encode demographics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cities (name, population, demographics, source, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			population = excluded.population,
			demographics = excluded.demographics,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		p.Name, p.Population, string(data), source, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return eris.Wrapf(err, "profiles: save %q", p.Name)
	}
	return nil
}

// Delete removes a city. Deleting a missing city returns cities.ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cities WHERE name = ?", name)
	if err != nil {
		return eris.Wrapf(err, "profiles: delete %q", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cities.ErrNotFound
	}
	return nil
}

// Search matches names case-insensitively, largest cities first.
func (s *Store) Search(ctx context.Context, query string) ([]string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || cities.IsShortQuery(q) {
		return cities.Filter(nil, q), nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM cities
		WHERE instr(lower(name), ?) > 0
		ORDER BY population DESC, name`, q)
	if err != nil {
		return nil, eris.Wrap(err, "profiles: search")
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "profiles: scan name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Lookup returns the stored profile for an exact city name.
func (s *Store) Lookup(ctx context.Context, name string) (*demographics.Profile, error) {
	var (
		p    = &demographics.Profile{Name: name}
		data string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT population, demographics FROM cities WHERE name = ?", name,
	).Scan(&p.Population, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cities.ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "profiles: lookup %q", name)
	}

	if err := json.Unmarshal([]byte(data), &p.Demographics); err != nil {
		return nil, fmt.Errorf("decode demographics for %q: %w", name, err)
	}
	return p, nil
}

// List returns every stored profile, largest first.
func (s *Store) List(ctx context.Context) ([]*demographics.Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, population, demographics FROM cities ORDER BY population DESC, name")
	if err != nil {
		return nil, eris.Wrap(err, "profiles: list")
	}
	defer rows.Close()

	var out []*demographics.Profile
	for rows.Next() {
		var (
			p    demographics.Profile
			data string
		)
		if err := rows.Scan(&p.Name, &p.Population, &data); err != nil {
			return nil, eris.Wrap(err, "profiles: scan")
		}
		if err := json.Unmarshal([]byte(data), &p.Demographics); err != nil {
			s.logger.Warn("skipping city with unreadable demographics", zap.String("city", p.Name), zap.Error(err))
			continue
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
