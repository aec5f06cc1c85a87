// Package progress converts page-scoped recognition events into a monotonic
// job-level progress value and an ordered warning list.
package progress

import "sync"

// Aggregator is the sole writer of a job's progress. It tracks per-page
// completion flags rather than a running counter, so callbacks arriving out
// of order for different pages can never move progress backward.
type Aggregator struct {
	mu        sync.Mutex
	total     int
	done      []bool
	fractions []float64
	emitted   float64

	progressSink func(float64)
	warnSink     func(string)
}

// NewAggregator builds an aggregator for a job with totalPages pages.
// The sinks receive progress values and warnings; either may be nil.
func NewAggregator(totalPages int, progressSink func(float64), warnSink func(string)) *Aggregator {
	if totalPages < 0 {
		totalPages = 0
	}
	return &Aggregator{
		total:        totalPages,
		done:         make([]bool, totalPages),
		fractions:    make([]float64, totalPages),
		progressSink: progressSink,
		warnSink:     warnSink,
	}
}

// PageProgress records an intra-page fraction for one page and emits the
// recomputed job progress.
func (a *Aggregator) PageProgress(pageIndex int, fraction float64) {
	a.mu.Lock()
	if pageIndex >= 0 && pageIndex < a.total && !a.done[pageIndex] {
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		if fraction > a.fractions[pageIndex] {
			a.fractions[pageIndex] = fraction
		}
	}
	a.emitLocked()
	a.mu.Unlock()
}

// PageDone marks one page complete, successful or not. Failed pages count in
// the denominator identically to successful ones.
func (a *Aggregator) PageDone(pageIndex int) {
	a.mu.Lock()
	if pageIndex >= 0 && pageIndex < a.total {
		a.done[pageIndex] = true
		a.fractions[pageIndex] = 1
	}
	a.emitLocked()
	a.mu.Unlock()
}

// Warn appends one warning in observation order.
func (a *Aggregator) Warn(message string) {
	a.mu.Lock()
	sink := a.warnSink
	a.mu.Unlock()
	if sink != nil {
		sink(message)
	}
}

// Complete forces final progress to 1.0.
func (a *Aggregator) Complete() {
	a.mu.Lock()
	for i := range a.done {
		a.done[i] = true
		a.fractions[i] = 1
	}
	a.forceEmitLocked(1)
	a.mu.Unlock()
}

// Progress returns the last emitted value.
func (a *Aggregator) Progress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emitted
}

// emitLocked recomputes progress and pushes it to the sink if it advanced.
// Callers hold the mutex.
func (a *Aggregator) emitLocked() {
	if a.total == 0 {
		return
	}

	var sum float64
	for i := 0; i < a.total; i++ {
		if a.done[i] {
			sum++
		} else {
			sum += a.fractions[i]
		}
	}
	a.forceEmitLocked(sum / float64(a.total))
}

// forceEmitLocked clamps, enforces monotonicity, and notifies the sink.
func (a *Aggregator) forceEmitLocked(value float64) {
	if value > 1 {
		value = 1
	}
	if value <= a.emitted {
		return
	}
	a.emitted = value
	if a.progressSink != nil {
		a.progressSink(value)
	}
}
