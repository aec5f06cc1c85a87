package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"doc-recognizer/internal/domain"
)

const fetchTimeout = 10 * time.Minute

// Fetcher retrieves one artifact's bytes into destinationPath.
type Fetcher interface {
	Fetch(ctx context.Context, artifact domain.LanguageArtifact, destinationPath string) error
}

// HTTPFetcher downloads artifacts from the configured resource namespace,
// rate limited so burst submissions do not hammer the remote host.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher builds a fetcher rooted at baseURL allowing requestsPerSecond.
func NewHTTPFetcher(baseURL string, requestsPerSecond float64) *HTTPFetcher {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &HTTPFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: fetchTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Fetch downloads the artifact to a temporary file and renames it into place
// so a partial download is never observable at destinationPath.
func (f *HTTPFetcher) Fetch(ctx context.Context, artifact domain.LanguageArtifact, destinationPath string) error {
	sourceURL := artifact.URL
	if sourceURL == "" {
		joined, err := url.JoinPath(f.baseURL, artifact.FileName)
		if err != nil {
			return fmt.Errorf("build artifact URL: %w", err)
		}
		sourceURL = joined
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for fetch slot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		return fmt.Errorf("prepare destination directory: %w", err)
	}

	tmpPath := destinationPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "doc-recognizer")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}

	if err := os.Remove(destinationPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("remove old destination file: %w", err)
	}
	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}

	return nil
}
