package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"doc-recognizer/internal/domain"
)

// Gateway wraps the recognition engine, reporting per-page timing and
// converting any engine failure into a page-scoped error.
type Gateway struct {
	engine Engine
	logger *slog.Logger
	now    func() time.Time
}

// NewGateway builds a gateway over the given engine.
func NewGateway(engine Engine, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		engine: engine,
		logger: logger.With("component", "recognition-gateway"),
		now:    time.Now,
	}
}

// RecognizePage runs one page through the engine. The returned duration is
// valid even on failure; errors are always *PageError.
func (g *Gateway) RecognizePage(ctx context.Context, input Input) (domain.Segment, time.Duration, error) {
	if input.Image == nil {
		return domain.Segment{}, 0, &PageError{PageIndex: input.PageIndex, Err: fmt.Errorf("nil page surface")}
	}
	if len(input.Languages) == 0 {
		return domain.Segment{}, 0, &PageError{PageIndex: input.PageIndex, Err: fmt.Errorf("empty language set")}
	}

	if input.Progress != nil {
		input.Progress(0)
	}

	start := g.now()
	result, err := g.engine.Recognize(ctx, input)
	elapsed := g.now().Sub(start)

	if err != nil {
		g.logger.Warn("page recognition failed",
			"engine", g.engine.Name(), "page", input.PageIndex, "elapsed", elapsed, "error", err)
		return domain.Segment{}, elapsed, &PageError{PageIndex: input.PageIndex, Err: err}
	}

	if input.Progress != nil {
		input.Progress(1)
	}

	g.logger.Debug("page recognized",
		"engine", g.engine.Name(), "page", input.PageIndex, "elapsed", elapsed, "confidence", result.Confidence)

	return domain.Segment{
		PageIndex:  input.PageIndex,
		Text:       result.Text,
		Confidence: clampConfidence(result.Confidence),
	}, elapsed, nil
}

// clampConfidence bounds engine scores to the [0,100] contract.
func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}
