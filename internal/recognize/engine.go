package recognize

import (
	"context"
	"fmt"
	"image"

	"doc-recognizer/internal/domain"
)

// Input encapsulates a single renderable page submitted for recognition.
type Input struct {
	// Image is the decoded page surface.
	Image image.Image
	// PageIndex links the input back to the zero-based page index it came from.
	PageIndex int
	// Languages is the ordered, non-empty set of language codes the engine
	// should use to select trained data.
	Languages []string
	// Progress, when set, receives intra-page fractions in [0,1] during a
	// potentially slow call.
	Progress func(fraction float64)
}

// Result captures recognition output for a single page.
type Result struct {
	Text       string
	Confidence float64
}

// Engine is the recognition provider contract: one page in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// PageError scopes a recognition failure to one page so it never crosses
// the page boundary as a job failure.
type PageError struct {
	PageIndex int
	Err       error
}

// Error formats the failure with its page attribution.
func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.PageIndex, e.Err)
}

// Unwrap exposes the underlying engine error.
func (e *PageError) Unwrap() error {
	return e.Err
}

// Is matches the page-recognition error kind.
func (e *PageError) Is(target error) bool {
	return target == domain.ErrPageRecognition
}
