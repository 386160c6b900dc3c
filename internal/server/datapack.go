package server

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/config"
	"github.com/kartoza/match-odds/internal/funnel"
	"github.com/kartoza/match-odds/internal/httputil"
	"github.com/kartoza/match-odds/internal/profiles"
)

// A data pack is a zip with one root directory holding an optional
// manifest.json, city seed files under cities/ and an optional stages.yaml.
const (
	datapackCitiesDir = "cities"
	datapackStages    = "stages.yaml"
	datapackManifest  = "manifest.json"
)

// manifest describes the contents of a data pack zip
type manifest struct {
	Format      string `json:"format"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

// datapackResult reports what an install changed.
type datapackResult struct {
	Path         string                `json:"path"`
	Manifest     manifest              `json:"manifest"`
	Cities       profiles.ImportResult `json:"cities"`
	TableVersion string                `json:"tableVersion,omitempty"`
}

// handleDatapackStatus returns the current data pack status
func (s *Server) handleDatapackStatus(w http.ResponseWriter, r *http.Request) {
	settings, err := config.LoadSettings()
	if err != nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"installed": false,
			"error":     err.Error(),
		})
		return
	}

	if settings.DataPackPath == "" {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"installed": false,
		})
		return
	}

	if _, err := os.Stat(settings.DataPackPath); err != nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"installed": false,
			"error":     "data pack path no longer exists",
		})
		return
	}

	m := readManifest(settings.DataPackPath)
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"installed":    true,
		"path":         settings.DataPackPath,
		"version":      m.Version,
		"description":  m.Description,
		"tableVersion": s.api.TableVersion(),
	})
}

// handleDatapackInstall extracts a data pack zip, imports its cities and
// activates its stage table
func (s *Server) handleDatapackInstall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Path == "" {
		httputil.RespondError(w, http.StatusBadRequest, "path is required")
		return
	}
	if _, err := os.Stat(req.Path); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("file not found: %s", req.Path))
		return
	}
	if !strings.HasSuffix(strings.ToLower(req.Path), ".zip") {
		httputil.RespondError(w, http.StatusBadRequest, "file must be a .zip archive")
		return
	}
	if s.providers == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "profile database not available")
		return
	}

	storeDir, err := config.DataStoreDir()
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not determine data directory: %v", err))
		return
	}
	extractDir := filepath.Join(storeDir, "datapacks")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not create directory: %v", err))
		return
	}

	packDir, err := extractDatapack(req.Path, extractDir)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("extraction failed: %v", err))
		return
	}

	stagesPath := filepath.Join(packDir, datapackStages)
	citiesDir := filepath.Join(packDir, datapackCitiesDir)
	hasStages := fileExists(stagesPath)
	if !hasStages && !fileExists(citiesDir) {
		httputil.RespondError(w, http.StatusBadRequest, "invalid data pack: needs cities/ or stages.yaml")
		return
	}

	// Check the table before touching the database so a bad pack changes nothing
	var estimator *funnel.Estimator
	if hasStages {
		estimator, err = LoadEstimator(stagesPath)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid data pack: "+err.Error())
			return
		}
	}

	res := datapackResult{Path: packDir, Manifest: readManifest(packDir)}
	if fileExists(citiesDir) {
		res.Cities, err = s.importCities(r.Context(), citiesDir)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "importing cities: "+err.Error())
			return
		}
	}

	settings, err := config.LoadSettings()
	if err != nil {
		settings = &config.Settings{}
	}
	settings.DataPackPath = packDir
	if hasStages {
		settings.StageTablePath = stagesPath
	}
	if err := config.SaveSettings(settings); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not save settings: %v", err))
		return
	}

	if estimator != nil {
		s.api.SetEstimator(estimator)
	}
	res.TableVersion = s.api.TableVersion()

	s.logger.Info("data pack installed",
		zap.String("path", packDir),
		zap.Int("cities", res.Cities.Imported),
		zap.String("tableVersion", res.TableVersion))
	httputil.RespondJSON(w, http.StatusOK, res)
}

// importCities loads every seed file under dir and evicts the cached
// profiles they replace along with every cached search.
func (s *Server) importCities(ctx context.Context, dir string) (profiles.ImportResult, error) {
	var total profiles.ImportResult

	entries, err := os.ReadDir(dir)
	if err != nil {
		return total, eris.Wrap(err, "datapack: read cities directory")
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return total, eris.Wrapf(err, "datapack: read %s", e.Name())
		}
		list, err := profiles.ParseSeed(data, strings.TrimPrefix(ext, "."))
		if err != nil {
			return total, eris.Wrapf(err, "datapack: parse %s", e.Name())
		}
		res, err := s.providers.Profiles.Import(ctx, list, e.Name())
		if err != nil {
			return total, err
		}

		total.Imported += res.Imported
		total.Skipped += res.Skipped
		total.Problems = append(total.Problems, res.Problems...)

		for _, p := range list {
			if err := s.providers.Provider.Forget(ctx, p.Name); err != nil {
				s.logger.Warn("could not evict cached profile", zap.String("city", p.Name), zap.Error(err))
			}
		}
	}

	if err := s.providers.Provider.ForgetSearches(ctx); err != nil {
		s.logger.Warn("could not evict cached searches", zap.Error(err))
	}
	return total, nil
}

func readManifest(packDir string) manifest {
	var m manifest
	if data, err := os.ReadFile(filepath.Join(packDir, datapackManifest)); err == nil {
		json.Unmarshal(data, &m)
	}
	return m
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// extractDatapack unzips a data pack archive into the target directory.
// Returns the path to the extracted pack root directory.
func extractDatapack(zipPath, targetDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "could not open zip")
	}
	defer r.Close()

	// Find the common root directory name from the zip
	var rootDir string
	for _, f := range r.File {
		parts := strings.SplitN(f.Name, "/", 2)
		if len(parts) > 0 {
			rootDir = parts[0]
			break
		}
	}
	if rootDir == "" {
		return "", eris.New("empty zip archive")
	}

	packDir := filepath.Join(targetDir, rootDir)

	// Remove existing extraction if present
	os.RemoveAll(packDir)

	for _, f := range r.File {
		// Sanitize path to prevent zip slip
		destPath := filepath.Join(targetDir, f.Name)
		if !strings.HasPrefix(destPath, filepath.Clean(targetDir)+string(os.PathSeparator)) {
			return "", eris.Errorf("illegal file path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(destPath, 0o755)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return "", eris.Wrap(err, "could not create directory")
		}
		if err := extractFile(f, destPath); err != nil {
			return "", err
		}
	}

	return packDir, nil
}

func extractFile(f *zip.File, destPath string) error {
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return eris.Wrap(err, "could not create file")
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return eris.Wrap(err, "could not open zip entry")
	}
	defer rc.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return eris.Wrapf(err, "could not extract %s", f.Name)
	}
	return nil
}
