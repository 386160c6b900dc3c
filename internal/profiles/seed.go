package profiles

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kartoza/match-odds/internal/demographics"
)

//go:embed seed/cities.yaml
var defaultSeed []byte

// ImportResult counts what an import did.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Problems []string `json:"problems,omitempty"`
}

// ParseSeed decodes a list of profiles from JSON or YAML. JSON may be a bare
// array or {"cities": [...]}; YAML uses the same shapes.
func ParseSeed(data []byte, format string) ([]*demographics.Profile, error) {
	var doc struct {
		Cities []*demographics.Profile `json:"cities" yaml:"cities"`
	}
	var list []*demographics.Profile

	switch strings.ToLower(format) {
	case "json":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("parsing seed JSON: %w", err)
			}
			return list, nil
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("parsing seed JSON: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &list); err == nil {
			return list, nil
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing seed YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed format %q", format)
	}
	return doc.Cities, nil
}

// Import saves every valid profile and reports the invalid ones.
func (s *Store) Import(ctx context.Context, profiles []*demographics.Profile, source string) (ImportResult, error) {
	var res ImportResult
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			res.Skipped++
			res.Problems = append(res.Problems, err.Error())
			continue
		}
		if err := s.Save(ctx, p, source); err != nil {
			return res, err
		}
		res.Imported++
	}

	s.logger.Info("imported city profiles",
		zap.String("source", source),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// ImportFile imports a .json, .yaml or .yml seed file.
func (s *Store) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("reading seed file: %w", err)
	}
	list, err := ParseSeed(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return ImportResult{}, err
	}
	return s.Import(ctx, list, filepath.Base(path))
}

// SeedDefaults loads the bundled profiles when the store is empty.
func (s *Store) SeedDefaults(ctx context.Context) (ImportResult, error) {
	n, err := s.Count(ctx)
	if err != nil || n > 0 {
		return ImportResult{}, err
	}
	list, err := ParseSeed(defaultSeed, "yaml")
	if err != nil {
		return ImportResult{}, err
	}
	return s.Import(ctx, list, "bundled")
}
