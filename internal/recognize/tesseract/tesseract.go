// Package tesseract provides the gosseract-backed recognition engine.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"doc-recognizer/internal/recognize"
)

// Engine implements recognize.Engine using the gosseract client.
type Engine struct {
	clientFactory func() *gosseract.Client
	tessdataDir   string
}

// New constructs a Tesseract-backed engine reading trained data from
// tessdataDir (the artifact cache directory).
func New(tessdataDir string) *Engine {
	return &Engine{
		clientFactory: gosseract.NewClient,
		tessdataDir:   tessdataDir,
	}
}

// Name identifies the engine in logs and diagnostics.
func (e *Engine) Name() string { return "tesseract" }

// Available reports whether the trained-data directory exists.
func (e *Engine) Available() bool {
	if e.tessdataDir == "" {
		return true
	}
	info, err := os.Stat(e.tessdataDir)
	return err == nil && info.IsDir()
}

// Recognize runs one page through Tesseract and returns its text with the
// mean word confidence.
func (e *Engine) Recognize(ctx context.Context, input recognize.Input) (recognize.Result, error) {
	select {
	case <-ctx.Done():
		return recognize.Result{}, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, input.Image); err != nil {
		return recognize.Result{}, fmt.Errorf("encode page surface: %w", err)
	}

	client := e.clientFactory()
	defer client.Close()

	if e.tessdataDir != "" {
		if err := client.SetTessdataPrefix(e.tessdataDir); err != nil {
			return recognize.Result{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(input.Languages...); err != nil {
		return recognize.Result{}, fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return recognize.Result{}, fmt.Errorf("set image: %w", err)
	}

	if input.Progress != nil {
		input.Progress(0.5)
	}

	text, err := client.Text()
	if err != nil {
		return recognize.Result{}, fmt.Errorf("recognize text: %w", err)
	}

	return recognize.Result{
		Text:       strings.TrimSpace(text),
		Confidence: meanWordConfidence(client),
	}, nil
}

// meanWordConfidence averages per-word confidences on the 0-100 scale.
func meanWordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}

	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	return sum / float64(len(boxes))
}
