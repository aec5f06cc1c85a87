// Package export serializes completed jobs into downloadable formats.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"doc-recognizer/internal/domain"
)

// Format selects the export serialization.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
)

// Render serializes the aggregated text of a completed job. Extracted text
// and recognized segments are concatenated here and nowhere earlier.
func Render(job domain.Job, format Format) ([]byte, error) {
	if job.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("cannot export job in status %q", job.Status)
	}

	switch format {
	case FormatText:
		return renderText(job), nil
	case FormatMarkdown:
		return renderMarkdown(job), nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", domain.ErrUnsupportedFormat, format)
	}
}

// Write renders the job and stores it under dir using the job name.
func Write(dir string, job domain.Job, format Format) (string, error) {
	data, err := Render(job, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(job, format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// FileName builds the export file name from the job's display name.
func FileName(job domain.Job, format Format) string {
	base := strings.TrimSpace(strings.TrimSuffix(filepath.Base(job.Name), filepath.Ext(job.Name)))
	if base == "" || base == "." {
		base = job.ID
	}
	return base + "." + string(format)
}

// renderText emits extracted text first, then segments in page order,
// blank-line separated.
func renderText(job domain.Job) []byte {
	var parts []string
	if text := strings.TrimSpace(job.ExtractedText); text != "" {
		parts = append(parts, text)
	}
	for _, segment := range job.Segments {
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return []byte(strings.Join(parts, "\n\n") + "\n")
}

// renderMarkdown emits per-page sections with confidence scores.
func renderMarkdown(job domain.Job) []byte {
	var builder strings.Builder
	fmt.Fprintf(&builder, "# %s\n", job.Name)

	if text := strings.TrimSpace(job.ExtractedText); text != "" {
		builder.WriteString("\n## Document text\n\n")
		builder.WriteString(text)
		builder.WriteByte('\n')
	}
	for _, segment := range job.Segments {
		fmt.Fprintf(&builder, "\n## Page %d (confidence %.1f)\n\n", segment.PageIndex+1, segment.Confidence)
		builder.WriteString(strings.TrimSpace(segment.Text))
		builder.WriteByte('\n')
	}
	if len(job.Warnings) > 0 {
		builder.WriteString("\n## Warnings\n\n")
		for _, warning := range job.Warnings {
			fmt.Fprintf(&builder, "- %s\n", warning)
		}
	}
	return []byte(builder.String())
}
