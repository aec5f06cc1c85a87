package config

import (
	"os"
	"path/filepath"
	"strings"

	"doc-recognizer/internal/domain"
)

// DefaultArtifactBaseURL is the fixed namespace language artifacts are
// fetched from when a code is not yet cache-resident.
const DefaultArtifactBaseURL = "https://raw.githubusercontent.com/tesseract-ocr/tessdata_fast/main"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		CacheDir:               filepath.Join(homeDir, ".doc-recognizer", "artifacts"),
		OutputDir:              filepath.Join(homeDir, "Documents", "Recognized"),
		ArtifactBaseURL:        DefaultArtifactBaseURL,
		Languages:              []string{"eng"},
		MaxConcurrentJobs:      4,
		PageLatencyWarnSeconds: 10,
		FetchRequestsPerSecond: 2,
	}
}

// Normalize trims user inputs and applies defaults for zero values.
func Normalize(cfg domain.Settings) domain.Settings {
	cfg.CacheDir = strings.TrimSpace(cfg.CacheDir)
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	cfg.ArtifactBaseURL = strings.TrimSpace(cfg.ArtifactBaseURL)

	defaults := DefaultSettings()
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaults.CacheDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}
	if cfg.ArtifactBaseURL == "" {
		cfg.ArtifactBaseURL = defaults.ArtifactBaseURL
	}

	languages := make([]string, 0, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		if code := strings.TrimSpace(lang); code != "" {
			languages = append(languages, code)
		}
	}
	if len(languages) == 0 {
		languages = defaults.Languages
	}
	cfg.Languages = languages

	if cfg.MaxConcurrentJobs < 0 {
		cfg.MaxConcurrentJobs = 0
	}
	if cfg.PageLatencyWarnSeconds <= 0 {
		cfg.PageLatencyWarnSeconds = defaults.PageLatencyWarnSeconds
	}
	if cfg.FetchRequestsPerSecond <= 0 {
		cfg.FetchRequestsPerSecond = defaults.FetchRequestsPerSecond
	}

	return cfg
}
