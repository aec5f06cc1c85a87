package diagnostics

import (
	"fmt"
	"os"
	"strings"
	"time"

	"doc-recognizer/internal/domain"
)

// EngineProbe reports whether the recognition engine can run.
type EngineProbe interface {
	Name() string
	Available() bool
}

// ArtifactLister exposes the registered language artifacts.
type ArtifactLister interface {
	List() []domain.LanguageArtifact
}

// Checker validates required filesystem paths and artifact coverage.
type Checker struct {
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings, registry ArtifactLister, engine EngineProbe) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkWritableDir("cache-dir", "Artifact cache directory", settings.CacheDir),
		c.checkWritableDir("output-dir", "Output directory", settings.OutputDir),
		c.checkArtifactCoverage(settings.Languages, registry),
		checkEngine(engine),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkWritableDir verifies the directory exists (creating it if needed)
// and accepts a temp file.
func (c *Checker) checkWritableDir(id, name, path string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: id, Name: name}
	if strings.TrimSpace(path) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "path is not configured"
		return item
	}

	if err := c.mkdirAll(path, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("cannot create directory: %v", err)
		return item
	}

	probe, err := c.createTemp(path, ".write-probe-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("directory is not writable: %v", err)
		return item
	}
	probeName := probe.Name()
	_ = probe.Close()
	_ = c.remove(probeName)

	item.Status = domain.DiagnosticStatusPass
	item.Message = path
	return item
}

// checkArtifactCoverage verifies every configured language has a
// cache-resident artifact.
func (c *Checker) checkArtifactCoverage(languages []string, registry ArtifactLister) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "artifact-coverage", Name: "Language artifact coverage"}
	if registry == nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "artifact registry is not configured"
		return item
	}

	cached := make(map[string]bool)
	for _, artifact := range registry.List() {
		if artifact.Cached {
			if _, err := c.stat(artifact.LocalPath); err == nil {
				cached[artifact.Code] = true
			}
		}
	}

	var missing []string
	for _, code := range languages {
		if !cached[code] {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("not cached: %s", strings.Join(missing, ", "))
		item.Hint = "run `doc-recognizer models fetch <code>` while online"
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("%d language(s) cache-resident", len(languages))
	return item
}

// checkEngine probes the recognition engine.
func checkEngine(engine EngineProbe) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "engine", Name: "Recognition engine"}
	if engine == nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "no engine configured"
		return item
	}
	if !engine.Available() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s is not available", engine.Name())
		item.Hint = "install the tesseract shared library and trained data"
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = engine.Name()
	return item
}
