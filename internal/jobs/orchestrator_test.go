package jobs

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-recognizer/internal/domain"
	"doc-recognizer/internal/recognize"
	"doc-recognizer/internal/resolve"
)

// fakeEnsurer records artifact requests and optionally fails.
type fakeEnsurer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeEnsurer) EnsureCached(_ context.Context, code string) error {
	f.mu.Lock()
	f.calls = append(f.calls, code)
	f.mu.Unlock()
	return f.err
}

// fakeResolver returns a scripted document.
type fakeResolver struct {
	doc resolve.Document
	err error
}

func (f *fakeResolver) Resolve([]byte, domain.ContentClass) (resolve.Document, error) {
	return f.doc, f.err
}

// fakeGateway delegates to injected per-page behavior.
type fakeGateway struct {
	mu    sync.Mutex
	calls int
	fn    func(input recognize.Input) (domain.Segment, time.Duration, error)
}

func (f *fakeGateway) RecognizePage(_ context.Context, input recognize.Input) (domain.Segment, time.Duration, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return domain.Segment{PageIndex: input.PageIndex}, 0, nil
	}
	return f.fn(input)
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func pages(n int) []resolve.Page {
	out := make([]resolve.Page, n)
	for i := range out {
		out[i] = resolve.Page{Index: i, Image: image.NewRGBA(image.Rect(0, 0, 1, 1))}
	}
	return out
}

func submitRequest() SubmitRequest {
	return SubmitRequest{
		Name:         "scan.png",
		Content:      []byte("payload"),
		ContentClass: domain.ContentClassRaster,
		Languages:    []string{"eng"},
	}
}

// awaitTerminal polls until the job leaves its active states.
func awaitTerminal(t *testing.T, o *Orchestrator, jobID string) domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := o.Snapshot(jobID)
		require.NoError(t, err)
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return domain.Job{}
}

func TestSubmitValidation(t *testing.T) {
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{}, &fakeGateway{}, Options{})

	t.Run("empty language set", func(t *testing.T) {
		req := submitRequest()
		req.Languages = nil
		_, err := o.Submit(req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unrecognized content class", func(t *testing.T) {
		req := submitRequest()
		req.ContentClass = "spreadsheet"
		_, err := o.Submit(req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty document", func(t *testing.T) {
		req := submitRequest()
		req.Content = nil
		_, err := o.Submit(req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	assert.Empty(t, o.Snapshots(), "rejected submissions must not create jobs")
}

func TestEndToEndTwoPageDocument(t *testing.T) {
	results := map[int]domain.Segment{
		0: {PageIndex: 0, Text: "Hello", Confidence: 96.2},
		1: {PageIndex: 1, Text: "World", Confidence: 91.0},
	}
	gateway := &fakeGateway{fn: func(input recognize.Input) (domain.Segment, time.Duration, error) {
		return results[input.PageIndex], time.Millisecond, nil
	}}
	ensurer := &fakeEnsurer{}
	o := NewOrchestrator(ensurer, &fakeResolver{doc: resolve.Document{Pages: pages(2)}}, gateway, Options{})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)
	job := awaitTerminal(t, o, jobID)

	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 1.0, job.Progress)
	assert.Empty(t, job.Warnings)
	require.Len(t, job.Segments, 2)
	assert.Equal(t, "Hello", job.Segments[0].Text)
	assert.Equal(t, 96.2, job.Segments[0].Confidence)
	assert.Equal(t, "World", job.Segments[1].Text)
	assert.Equal(t, []string{"eng"}, ensurer.calls)
	require.NotNil(t, job.CompletedAt)
}

func TestPageFailureIsIsolated(t *testing.T) {
	gateway := &fakeGateway{fn: func(input recognize.Input) (domain.Segment, time.Duration, error) {
		if input.PageIndex == 1 {
			return domain.Segment{}, 0, &recognize.PageError{PageIndex: 1, Err: errors.New("engine choked")}
		}
		return domain.Segment{PageIndex: input.PageIndex, Text: fmt.Sprintf("text-%d", input.PageIndex)}, 0, nil
	}}
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{doc: resolve.Document{Pages: pages(3)}}, gateway, Options{})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)
	job := awaitTerminal(t, o, jobID)

	assert.Equal(t, domain.JobStatusCompleted, job.Status, "one bad page must not doom the job")
	assert.Equal(t, 1.0, job.Progress)
	require.Len(t, job.Segments, 2)
	assert.Equal(t, 0, job.Segments[0].PageIndex)
	assert.Equal(t, 2, job.Segments[1].PageIndex)
	require.Len(t, job.Warnings, 1)
	assert.Contains(t, job.Warnings[0], "page 1")
}

func TestEmptyContentCompletesWithWarning(t *testing.T) {
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{}, &fakeGateway{}, Options{})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)
	job := awaitTerminal(t, o, jobID)

	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 1.0, job.Progress)
	assert.Empty(t, job.Segments)
	require.Len(t, job.Warnings, 1)
	assert.Contains(t, job.Warnings[0], "no pages or extractable text")
}

func TestArtifactFailureIsJobFatal(t *testing.T) {
	ensurer := &fakeEnsurer{err: fmt.Errorf("%w: eng: offline", domain.ErrArtifactFetchFailed)}
	gateway := &fakeGateway{}
	o := NewOrchestrator(ensurer, &fakeResolver{doc: resolve.Document{Pages: pages(2)}}, gateway, Options{})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)
	job := awaitTerminal(t, o, jobID)

	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "ensure language artifacts")
	assert.Zero(t, gateway.callCount(), "recognition must not start without artifacts")
}

func TestResolveFailureIsJobFatal(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("%w: not a zip", domain.ErrUnsupportedFormat)}
	o := NewOrchestrator(&fakeEnsurer{}, resolver, &fakeGateway{}, Options{})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)
	job := awaitTerminal(t, o, jobID)

	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "resolve document format")
}

func TestSlowPageFlagsLatencyWarning(t *testing.T) {
	gateway := &fakeGateway{fn: func(input recognize.Input) (domain.Segment, time.Duration, error) {
		return domain.Segment{PageIndex: input.PageIndex, Text: "slow"}, 30 * time.Second, nil
	}}
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{doc: resolve.Document{Pages: pages(1)}}, gateway, Options{
		PageLatencyWarn: time.Second,
	})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)
	job := awaitTerminal(t, o, jobID)

	assert.Equal(t, domain.JobStatusCompleted, job.Status, "latency is a warning, not an error")
	require.Len(t, job.Warnings, 1)
	assert.Contains(t, job.Warnings[0], "exceeding")
	require.Len(t, job.Segments, 1)
}

func TestProgressIsMonotonic(t *testing.T) {
	gateway := &fakeGateway{fn: func(input recognize.Input) (domain.Segment, time.Duration, error) {
		for _, fraction := range []float64{0.25, 0.5, 0.75} {
			input.Progress(fraction)
		}
		return domain.Segment{PageIndex: input.PageIndex}, 0, nil
	}}
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{doc: resolve.Document{Pages: pages(4)}}, gateway, Options{})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)
	awaitTerminal(t, o, jobID)

	var last float64
	var samples int
	for _, event := range o.Events(0) {
		if event.JobID != jobID || event.Type != EventTypeProgress {
			continue
		}
		samples++
		assert.GreaterOrEqual(t, event.Progress, last, "progress must never decrease")
		last = event.Progress
	}
	assert.Greater(t, samples, 4, "intra-page fractions should surface as progress events")
	assert.Equal(t, 1.0, last)
}

func TestCancelActiveJob(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	gateway := &fakeGateway{fn: func(input recognize.Input) (domain.Segment, time.Duration, error) {
		once.Do(func() { close(started) })
		time.Sleep(100 * time.Millisecond)
		return domain.Segment{}, 0, context.Canceled
	}}
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{doc: resolve.Document{Pages: pages(5)}}, gateway, Options{})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)

	<-started
	require.NoError(t, o.Cancel(jobID))
	job := awaitTerminal(t, o, jobID)

	assert.Equal(t, domain.JobStatusError, job.Status)
	assert.Contains(t, job.Error, "cancelled")
	assert.Less(t, gateway.callCount(), 5, "cancellation must stop consuming gateway calls")

	// Cancelling a terminal job is a safe no-op.
	require.NoError(t, o.Cancel(jobID))
	after, err := o.Snapshot(jobID)
	require.NoError(t, err)
	assert.Equal(t, job.Status, after.Status)
}

func TestCancelConcurrentWithCompletion(t *testing.T) {
	gateway := &fakeGateway{fn: func(input recognize.Input) (domain.Segment, time.Duration, error) {
		return domain.Segment{PageIndex: input.PageIndex}, 0, nil
	}}
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{doc: resolve.Document{Pages: pages(1)}}, gateway, Options{})

	var ids []string
	for i := 0; i < 20; i++ {
		id, err := o.Submit(submitRequest())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// Hammer Cancel while the jobs race to terminal states.
	stop := make(chan struct{})
	var hammer sync.WaitGroup
	hammer.Add(1)
	go func() {
		defer hammer.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, id := range ids {
				assert.NoError(t, o.Cancel(id))
			}
		}
	}()

	o.Wait()
	close(stop)
	hammer.Wait()

	for _, id := range ids {
		job, err := o.Snapshot(id)
		require.NoError(t, err)
		assert.True(t, job.Status.IsTerminal(), "job %s status = %s", id, job.Status)
		require.NoError(t, o.Cancel(id))
	}
}

func TestCancelUnknownJob(t *testing.T) {
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{}, &fakeGateway{}, Options{})
	assert.ErrorIs(t, o.Cancel("missing"), domain.ErrJobNotFound)
}

func TestRunIsNoOpWhenNotPending(t *testing.T) {
	gateway := &fakeGateway{}
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{doc: resolve.Document{Pages: pages(2)}}, gateway, Options{})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)
	awaitTerminal(t, o, jobID)
	calls := gateway.callCount()

	o.Run(context.Background(), jobID)
	assert.Equal(t, calls, gateway.callCount(), "re-running a terminal job must do nothing")
}

func TestConcurrentJobsAreIsolated(t *testing.T) {
	gateway := &fakeGateway{fn: func(input recognize.Input) (domain.Segment, time.Duration, error) {
		return domain.Segment{PageIndex: input.PageIndex, Text: "ok"}, 0, nil
	}}
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{doc: resolve.Document{Pages: pages(2)}}, gateway, Options{
		MaxConcurrentJobs: 2,
	})

	var ids []string
	for i := 0; i < 6; i++ {
		id, err := o.Submit(submitRequest())
		require.NoError(t, err)
		ids = append(ids, id)
	}
	o.Wait()

	for _, id := range ids {
		job, err := o.Snapshot(id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
		assert.Len(t, job.Segments, 2)
	}
	assert.Len(t, o.Snapshots(), 6)
}

func TestDiscard(t *testing.T) {
	o := NewOrchestrator(&fakeEnsurer{}, &fakeResolver{doc: resolve.Document{Pages: pages(1)}}, &fakeGateway{}, Options{})

	jobID, err := o.Submit(submitRequest())
	require.NoError(t, err)
	awaitTerminal(t, o, jobID)

	require.NoError(t, o.Discard(jobID))
	_, err = o.Snapshot(jobID)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.ErrorIs(t, o.Discard(jobID), domain.ErrJobNotFound)
}
