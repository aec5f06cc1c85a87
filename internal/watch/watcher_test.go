package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-recognizer/internal/domain"
	"doc-recognizer/internal/jobs"
)

// fakeSubmitter records submissions.
type fakeSubmitter struct {
	mu   sync.Mutex
	reqs []jobs.SubmitRequest
}

func (f *fakeSubmitter) Submit(req jobs.SubmitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return "job-1", nil
}

func (f *fakeSubmitter) requests() []jobs.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]jobs.SubmitRequest(nil), f.reqs...)
}

func TestWatcherSubmitsCreatedFiles(t *testing.T) {
	dir := t.TempDir()
	submitter := &fakeSubmitter{}
	watcher := NewWatcher(dir, submitter, []string{"eng"}, nil)
	watcher.settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// Give the watcher a moment to register before creating files.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.png"), []byte("png-bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	require.Eventually(t, func() bool {
		return len(submitter.requests()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	reqs := submitter.requests()
	assert.Equal(t, "scan.png", reqs[0].Name)
	assert.Equal(t, domain.ContentClassRaster, reqs[0].ContentClass)
	assert.Equal(t, []string{"eng"}, reqs[0].Languages)
	assert.Equal(t, []byte("png-bytes"), reqs[0].Content)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherMissingDirectory(t *testing.T) {
	watcher := NewWatcher(filepath.Join(t.TempDir(), "missing"), &fakeSubmitter{}, []string{"eng"}, nil)

	err := watcher.Run(context.Background())
	assert.Error(t, err)
}
