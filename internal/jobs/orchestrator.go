package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"doc-recognizer/internal/domain"
	"doc-recognizer/internal/progress"
	"doc-recognizer/internal/recognize"
	"doc-recognizer/internal/resolve"
)

// ArtifactEnsurer guarantees a language artifact is cache-resident.
type ArtifactEnsurer interface {
	EnsureCached(ctx context.Context, code string) error
}

// DocumentResolver turns a raw document into pages and extracted text.
type DocumentResolver interface {
	Resolve(content []byte, class domain.ContentClass) (resolve.Document, error)
}

// PageRecognizer runs one page through the recognition engine.
type PageRecognizer interface {
	RecognizePage(ctx context.Context, input recognize.Input) (domain.Segment, time.Duration, error)
}

// SubmitRequest carries one intake document.
type SubmitRequest struct {
	Name         string
	Content      []byte
	ContentClass domain.ContentClass
	Languages    []string
}

// Options tunes orchestrator behavior.
type Options struct {
	// MaxConcurrentJobs bounds simultaneously processing jobs; 0 disables
	// the bound, matching fire-every-pending-job-immediately dispatch.
	MaxConcurrentJobs int
	// PageLatencyWarn flags a warning when one page's recognition exceeds it.
	PageLatencyWarn time.Duration
	// EventHistory bounds the event buffer.
	EventHistory int
	Logger       *slog.Logger
}

// jobEntry pairs job state with execution handles. The job is mutated by at
// most one execution path at a time; readers get clones.
type jobEntry struct {
	job     domain.Job
	content []byte
	ctx     context.Context
	cancel  context.CancelFunc
}

// Orchestrator owns the job table and drives each admitted document through
// artifact ensuring, format resolution, per-page recognition, and
// aggregation. Jobs execute concurrently and independently; a failure in one
// never touches another's state.
type Orchestrator struct {
	cache       ArtifactEnsurer
	resolver    DocumentResolver
	gateway     PageRecognizer
	logger      *slog.Logger
	latencyWarn time.Duration
	workers     *semaphore.Weighted

	mu     sync.RWMutex
	table  map[string]*jobEntry
	events *EventBus
	wg     sync.WaitGroup
}

// NewOrchestrator wires the orchestrator with its collaborators.
func NewOrchestrator(cache ArtifactEnsurer, resolver DocumentResolver, gateway PageRecognizer, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	latencyWarn := opts.PageLatencyWarn
	if latencyWarn <= 0 {
		latencyWarn = 10 * time.Second
	}

	var workers *semaphore.Weighted
	if opts.MaxConcurrentJobs > 0 {
		workers = semaphore.NewWeighted(int64(opts.MaxConcurrentJobs))
	}

	return &Orchestrator{
		cache:       cache,
		resolver:    resolver,
		gateway:     gateway,
		logger:      logger.With("component", "orchestrator"),
		latencyWarn: latencyWarn,
		workers:     workers,
		table:       make(map[string]*jobEntry),
		events:      NewEventBus(opts.EventHistory),
	}
}

// Submit admits a document as a pending job and schedules it for execution.
// It returns immediately; malformed submissions fail without creating a job.
func (o *Orchestrator) Submit(req SubmitRequest) (string, error) {
	if len(req.Languages) == 0 {
		return "", fmt.Errorf("%w: empty language set", domain.ErrInvalidInput)
	}
	if !req.ContentClass.IsValid() {
		return "", fmt.Errorf("%w: unrecognized content class %q", domain.ErrInvalidInput, req.ContentClass)
	}
	if len(req.Content) == 0 {
		return "", fmt.Errorf("%w: empty document", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry := &jobEntry{
		job: domain.Job{
			ID:           uuid.NewString(),
			Name:         req.Name,
			ContentClass: req.ContentClass,
			SizeBytes:    int64(len(req.Content)),
			Languages:    append([]string(nil), req.Languages...),
			Status:       domain.JobStatusPending,
			CreatedAt:    time.Now().UTC(),
		},
		content: append([]byte(nil), req.Content...),
		ctx:     ctx,
		cancel:  cancel,
	}

	o.mu.Lock()
	o.table[entry.job.ID] = entry
	o.mu.Unlock()

	o.publish(Event{JobID: entry.job.ID, Type: EventTypeStatus, Status: domain.JobStatusPending, Message: "Job admitted"})
	o.logger.Info("job admitted", "job", entry.job.ID, "name", req.Name, "class", req.ContentClass)

	o.wg.Add(1)
	go o.dispatch(entry.job.ID, ctx)

	return entry.job.ID, nil
}

// dispatch gates execution on the worker pool, then runs the job.
func (o *Orchestrator) dispatch(jobID string, ctx context.Context) {
	defer o.wg.Done()

	if o.workers != nil {
		if err := o.workers.Acquire(ctx, 1); err != nil {
			o.fail(jobID, fmt.Errorf("%w: cancelled while queued", domain.ErrCancelled))
			return
		}
		defer o.workers.Release(1)
	}

	o.Run(ctx, jobID)
}

// Run drives one pending job to a terminal state. Calling it for a job that
// is not pending is a no-op, guarding against double dispatch.
func (o *Orchestrator) Run(ctx context.Context, jobID string) {
	o.mu.Lock()
	entry, ok := o.table[jobID]
	if !ok || entry.job.Status != domain.JobStatusPending {
		o.mu.Unlock()
		return
	}
	entry.job.Status = domain.JobStatusProcessing
	languages := append([]string(nil), entry.job.Languages...)
	class := entry.job.ContentClass
	content := entry.content
	o.mu.Unlock()

	o.publish(Event{JobID: jobID, Type: EventTypeStatus, Status: domain.JobStatusProcessing, Message: "Job started"})

	if err := ctx.Err(); err != nil {
		o.fail(jobID, domain.ErrCancelled)
		return
	}

	for _, code := range languages {
		if err := o.cache.EnsureCached(ctx, code); err != nil {
			if errors.Is(err, context.Canceled) {
				o.fail(jobID, domain.ErrCancelled)
				return
			}
			o.fail(jobID, fmt.Errorf("ensure language artifacts: %w", err))
			return
		}
	}

	doc, err := o.resolver.Resolve(content, class)
	if err != nil {
		o.fail(jobID, fmt.Errorf("resolve document format: %w", err))
		return
	}

	o.mu.Lock()
	entry.job.ExtractedText = doc.ExtractedText
	entry.content = nil
	o.mu.Unlock()

	agg := progress.NewAggregator(len(doc.Pages), o.progressSink(jobID), o.warnSink(jobID))

	if len(doc.Pages) == 0 && strings.TrimSpace(doc.ExtractedText) == "" {
		agg.Warn("document contains no pages or extractable text")
		o.complete(jobID, agg)
		return
	}

	for _, page := range doc.Pages {
		if ctx.Err() != nil {
			o.fail(jobID, domain.ErrCancelled)
			return
		}

		pageIndex := page.Index
		segment, elapsed, err := o.gateway.RecognizePage(ctx, recognize.Input{
			Image:     page.Image,
			PageIndex: pageIndex,
			Languages: languages,
			Progress:  func(fraction float64) { agg.PageProgress(pageIndex, fraction) },
		})
		switch {
		case err != nil && ctx.Err() != nil:
			o.fail(jobID, domain.ErrCancelled)
			return
		case err != nil:
			// Page-level isolation: one bad page does not doom the rest.
			agg.Warn(fmt.Sprintf("page %d recognition failed: %v", pageIndex, err))
		default:
			o.appendSegment(jobID, segment)
			if elapsed > o.latencyWarn {
				agg.Warn(fmt.Sprintf("page %d recognition took %s, exceeding the %s threshold",
					pageIndex, elapsed.Round(time.Millisecond), o.latencyWarn))
			}
		}
		agg.PageDone(pageIndex)
	}

	o.complete(jobID, agg)
}

// Snapshot returns a read-only copy of the job's latest consistent state.
func (o *Orchestrator) Snapshot(jobID string) (domain.Job, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	entry, ok := o.table[jobID]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return entry.job.Clone(), nil
}

// Snapshots returns copies of all jobs ordered by creation time.
func (o *Orchestrator) Snapshots() []domain.Job {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]domain.Job, 0, len(o.table))
	for _, entry := range o.table {
		out = append(out, entry.job.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Cancel stops an active job. Terminal jobs are a no-op. In-flight artifact
// fetches are not aborted; other jobs may share them.
func (o *Orchestrator) Cancel(jobID string) error {
	// The status check must happen under the lock; Run/complete/fail write
	// entry.job.Status under the write lock.
	o.mu.RLock()
	entry, ok := o.table[jobID]
	var cancel context.CancelFunc
	if ok && !entry.job.Status.IsTerminal() {
		cancel = entry.cancel
	}
	o.mu.RUnlock()

	if !ok {
		return domain.ErrJobNotFound
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// Discard removes a terminal job from the table.
func (o *Orchestrator) Discard(jobID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.table[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if !entry.job.Status.IsTerminal() {
		return fmt.Errorf("cannot discard active job %s", jobID)
	}
	delete(o.table, jobID)
	return nil
}

// Events returns all events with sequence greater than sinceSeq.
func (o *Orchestrator) Events(sinceSeq int64) []Event {
	return o.events.Since(sinceSeq)
}

// Wait blocks until every dispatched job reaches a terminal state.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// progressSink returns the aggregator's write path into the job's progress
// field.
func (o *Orchestrator) progressSink(jobID string) func(float64) {
	return func(value float64) {
		o.mu.Lock()
		entry, ok := o.table[jobID]
		if ok && !entry.job.Status.IsTerminal() {
			entry.job.Progress = value
		}
		o.mu.Unlock()
		if ok {
			o.publish(Event{JobID: jobID, Type: EventTypeProgress, Progress: value})
		}
	}
}

// warnSink returns the aggregator's write path into the job's warning list.
func (o *Orchestrator) warnSink(jobID string) func(string) {
	return func(message string) {
		o.mu.Lock()
		entry, ok := o.table[jobID]
		if ok && !entry.job.Status.IsTerminal() {
			entry.job.Warnings = append(entry.job.Warnings, message)
		}
		o.mu.Unlock()
		if ok {
			o.publish(Event{JobID: jobID, Type: EventTypeWarning, Message: message})
			o.logger.Warn("job warning", "job", jobID, "message", message)
		}
	}
}

// appendSegment folds one recognized page into the job's segment list,
// keyed by page index.
func (o *Orchestrator) appendSegment(jobID string, segment domain.Segment) {
	o.mu.Lock()
	entry, ok := o.table[jobID]
	if ok && !entry.job.Status.IsTerminal() {
		entry.job.Segments = append(entry.job.Segments, segment)
		sort.Slice(entry.job.Segments, func(i, j int) bool {
			return entry.job.Segments[i].PageIndex < entry.job.Segments[j].PageIndex
		})
	}
	o.mu.Unlock()
}

// complete marks a job terminal with full progress.
func (o *Orchestrator) complete(jobID string, agg *progress.Aggregator) {
	agg.Complete()

	o.mu.Lock()
	entry, ok := o.table[jobID]
	if !ok || entry.job.Status.IsTerminal() {
		o.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	entry.job.Status = domain.JobStatusCompleted
	entry.job.Progress = 1
	entry.job.CompletedAt = &now
	entry.content = nil
	segments := len(entry.job.Segments)
	o.mu.Unlock()

	o.publish(Event{JobID: jobID, Type: EventTypeResult, Status: domain.JobStatusCompleted, Progress: 1, Message: "Job completed"})
	o.logger.Info("job completed", "job", jobID, "segments", segments)
}

// fail marks a job terminal with an error message naming the failed step.
func (o *Orchestrator) fail(jobID string, err error) {
	o.mu.Lock()
	entry, ok := o.table[jobID]
	if !ok || entry.job.Status.IsTerminal() {
		o.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	entry.job.Status = domain.JobStatusError
	entry.job.Error = err.Error()
	entry.job.CompletedAt = &now
	entry.content = nil
	o.mu.Unlock()

	o.publish(Event{JobID: jobID, Type: EventTypeError, Status: domain.JobStatusError, Message: err.Error()})
	o.logger.Error("job failed", "job", jobID, "error", err)
}

// publish stores one event in the bounded history.
func (o *Orchestrator) publish(event Event) {
	o.events.Publish(event)
}
