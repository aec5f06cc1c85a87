package artifacts

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"doc-recognizer/internal/domain"
)

// fetchHandle is the shared result all concurrent requesters of one key
// await instead of issuing their own fetch.
type fetchHandle struct {
	done chan struct{}
	err  error
}

// Cache guarantees language artifacts are locally present before recognition
// starts. Concurrent EnsureCached calls for one code share a single fetch; a
// failed fetch releases all waiters with the same error and clears the
// in-flight entry so a later call retries.
type Cache struct {
	registry *Registry
	fetcher  Fetcher
	dir      string
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]*fetchHandle
}

// NewCache builds an artifact cache storing bytes under dir.
func NewCache(registry *Registry, fetcher Fetcher, dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		registry: registry,
		fetcher:  fetcher,
		dir:      dir,
		logger:   logger.With("component", "artifact-cache"),
		inflight: make(map[string]*fetchHandle),
	}
}

// Dir returns the directory cached artifact bytes live in.
func (c *Cache) Dir() string {
	return c.dir
}

// EnsureCached returns once the artifact for code is cache-resident. At most
// one fetch per code is outstanding at any time regardless of caller count.
func (c *Cache) EnsureCached(ctx context.Context, code string) error {
	artifact, ok := c.registry.Get(code)
	if !ok {
		return fmt.Errorf("%w: unknown language code %q", domain.ErrArtifactFetchFailed, code)
	}
	if artifact.Cached {
		return nil
	}

	c.mu.Lock()
	// Re-check under the lock: a concurrent fetch may have completed between
	// the fast path and here.
	if refreshed, ok := c.registry.Get(code); ok && refreshed.Cached {
		c.mu.Unlock()
		return nil
	}

	handle, running := c.inflight[code]
	if !running {
		handle = &fetchHandle{done: make(chan struct{})}
		c.inflight[code] = handle
		go c.fetch(ctx, artifact, handle)
	}
	c.mu.Unlock()

	select {
	case <-handle.done:
		return handle.err
	case <-ctx.Done():
		// The fetch keeps running for other waiters; only this caller bails.
		return ctx.Err()
	}
}

// fetch performs the single outstanding download for one code and releases
// every waiter with its outcome.
func (c *Cache) fetch(ctx context.Context, artifact domain.LanguageArtifact, handle *fetchHandle) {
	// Detach from the initiating job's cancellation: other jobs may be
	// awaiting this same fetch.
	fetchCtx := context.WithoutCancel(ctx)

	destination := filepath.Join(c.dir, artifact.FileName)
	c.logger.Info("fetching artifact", "code", artifact.Code, "destination", destination)

	err := c.fetcher.Fetch(fetchCtx, artifact, destination)
	if err == nil {
		err = c.registry.MarkCached(artifact.Code, destination)
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", domain.ErrArtifactFetchFailed, artifact.Code, err)
		c.logger.Error("artifact fetch failed", "code", artifact.Code, "error", err)
	}

	c.mu.Lock()
	handle.err = err
	delete(c.inflight, artifact.Code)
	c.mu.Unlock()
	close(handle.done)
}

// ImportFromBytes registers a new or replacing artifact and writes its bytes
// into the cache as already cached, bypassing fetch. Gzip payloads are
// decompressed and zip payloads have their first .traineddata member
// extracted; corruption is reported, not swallowed.
func (c *Cache) ImportFromBytes(code, label string, raw []byte) (domain.LanguageArtifact, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.LanguageArtifact{}, fmt.Errorf("%w: empty language code", domain.ErrInvalidArtifact)
	}
	if len(raw) == 0 {
		return domain.LanguageArtifact{}, fmt.Errorf("%w: empty payload for %q", domain.ErrInvalidArtifact, code)
	}

	payload, err := unpackArtifact(raw)
	if err != nil {
		return domain.LanguageArtifact{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArtifact, code, err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return domain.LanguageArtifact{}, fmt.Errorf("prepare cache directory: %w", err)
	}

	fileName := code + ".traineddata"
	localPath := filepath.Join(c.dir, fileName)
	if err := os.WriteFile(localPath, payload, 0o644); err != nil {
		return domain.LanguageArtifact{}, fmt.Errorf("write artifact bytes: %w", err)
	}

	if label == "" {
		label = code
	}
	artifact := domain.LanguageArtifact{
		Code:      code,
		Label:     label,
		Origin:    domain.ArtifactOriginImported,
		FileName:  fileName,
		Cached:    true,
		LocalPath: localPath,
	}
	if err := c.registry.Put(artifact); err != nil {
		return domain.LanguageArtifact{}, err
	}

	c.logger.Info("imported artifact", "code", code, "bytes", len(payload))
	return artifact, nil
}

// unpackArtifact returns raw model bytes from a plain, gzipped, or zipped
// payload.
func unpackArtifact(raw []byte) ([]byte, error) {
	switch {
	case len(raw) > 2 && raw[0] == 0x1f && raw[1] == 0x8b:
		reader, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("open gzip payload: %w", err)
		}
		defer reader.Close()

		payload, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("decompress gzip payload: %w", err)
		}
		return payload, nil

	case len(raw) > 4 && bytes.HasPrefix(raw, []byte("PK\x03\x04")):
		reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
		if err != nil {
			return nil, fmt.Errorf("open zip payload: %w", err)
		}
		for _, file := range reader.File {
			if !strings.HasSuffix(file.Name, ".traineddata") {
				continue
			}
			rc, err := file.Open()
			if err != nil {
				return nil, fmt.Errorf("open zip member %s: %w", file.Name, err)
			}
			payload, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("read zip member %s: %w", file.Name, err)
			}
			return payload, nil
		}
		return nil, fmt.Errorf("zip payload contains no .traineddata member")

	default:
		return raw, nil
	}
}
