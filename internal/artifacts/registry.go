package artifacts

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"doc-recognizer/internal/domain"
)

const registrySchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	code       TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	origin     TEXT NOT NULL,
	file_name  TEXT NOT NULL,
	url        TEXT NOT NULL DEFAULT '',
	cached     INTEGER NOT NULL DEFAULT 0,
	local_path TEXT NOT NULL DEFAULT ''
);`

// Registry maps language codes to artifacts. It is owned by the composition
// root and handed to the cache and orchestrator; a given code maps to at most
// one artifact at a time. Cached and imported state is persisted to SQLite so
// the offline guarantee survives restarts.
type Registry struct {
	mu        sync.RWMutex
	db        *sql.DB
	artifacts map[string]domain.LanguageArtifact
}

// NewRegistry opens (or creates) the registry database under dataDir, seeds
// the builtin catalog, and overlays persisted rows.
func NewRegistry(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "registry.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}
	if _, err := db.Exec(registrySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create artifacts table: %w", err)
	}

	r := &Registry{db: db, artifacts: seedArtifacts()}
	if err := r.loadPersisted(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// NewMemoryRegistry builds a registry without persistence, seeded with the
// builtin catalog.
func NewMemoryRegistry() *Registry {
	return &Registry{artifacts: seedArtifacts()}
}

// seedArtifacts builds the initial code map from the builtin catalog.
func seedArtifacts() map[string]domain.LanguageArtifact {
	out := make(map[string]domain.LanguageArtifact)
	for _, artifact := range BuiltinCatalog() {
		out[artifact.Code] = artifact
	}
	return out
}

// loadPersisted overlays database rows onto the seeded catalog.
func (r *Registry) loadPersisted() error {
	rows, err := r.db.Query(`SELECT code, label, origin, file_name, url, cached, local_path FROM artifacts`)
	if err != nil {
		return fmt.Errorf("load persisted artifacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var artifact domain.LanguageArtifact
		var cached int
		if err := rows.Scan(&artifact.Code, &artifact.Label, &artifact.Origin, &artifact.FileName, &artifact.URL, &cached, &artifact.LocalPath); err != nil {
			return fmt.Errorf("scan artifact row: %w", err)
		}
		artifact.Cached = cached != 0

		// A cached row whose file vanished must not satisfy the offline
		// guarantee; treat it as a plain miss.
		if artifact.Cached {
			if _, statErr := os.Stat(artifact.LocalPath); statErr != nil {
				artifact.Cached = false
				artifact.LocalPath = ""
			}
		}
		if existing, ok := r.artifacts[artifact.Code]; ok && artifact.SizeLabel == "" {
			artifact.SizeLabel = existing.SizeLabel
		}
		r.artifacts[artifact.Code] = artifact
	}
	return rows.Err()
}

// Get returns the artifact registered for code.
func (r *Registry) Get(code string) (domain.LanguageArtifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	artifact, ok := r.artifacts[code]
	return artifact, ok
}

// List returns all registered artifacts ordered by code.
func (r *Registry) List() []domain.LanguageArtifact {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.LanguageArtifact, 0, len(r.artifacts))
	for _, artifact := range r.artifacts {
		out = append(out, artifact)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Put registers or replaces the artifact for its code.
func (r *Registry) Put(artifact domain.LanguageArtifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.artifacts[artifact.Code] = artifact
	return r.persist(artifact)
}

// MarkCached flags an artifact as cache-resident at localPath.
func (r *Registry) MarkCached(code, localPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	artifact, ok := r.artifacts[code]
	if !ok {
		return fmt.Errorf("mark cached: unknown language code %q", code)
	}
	artifact.Cached = true
	artifact.LocalPath = localPath
	r.artifacts[code] = artifact
	return r.persist(artifact)
}

// persist upserts one artifact row. Callers hold the write lock.
func (r *Registry) persist(artifact domain.LanguageArtifact) error {
	if r.db == nil {
		return nil
	}

	cached := 0
	if artifact.Cached {
		cached = 1
	}
	_, err := r.db.Exec(`
		INSERT INTO artifacts (code, label, origin, file_name, url, cached, local_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			label = excluded.label,
			origin = excluded.origin,
			file_name = excluded.file_name,
			url = excluded.url,
			cached = excluded.cached,
			local_path = excluded.local_path`,
		artifact.Code, artifact.Label, string(artifact.Origin), artifact.FileName, artifact.URL, cached, artifact.LocalPath)
	if err != nil {
		return fmt.Errorf("persist artifact %s: %w", artifact.Code, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
