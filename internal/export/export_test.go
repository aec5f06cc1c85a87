package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-recognizer/internal/domain"
)

func completedJob() domain.Job {
	return domain.Job{
		ID:            "job-1",
		Name:          "contract.docx",
		Status:        domain.JobStatusCompleted,
		ExtractedText: "Body text.",
		Segments: []domain.Segment{
			{PageIndex: 0, Text: "Hello", Confidence: 96.2},
			{PageIndex: 1, Text: "World", Confidence: 91.0},
		},
		Warnings: []string{"page 2 recognition failed: engine choked"},
	}
}

func TestRenderText(t *testing.T) {
	data, err := Render(completedJob(), FormatText)
	require.NoError(t, err)

	assert.Equal(t, "Body text.\n\nHello\n\nWorld\n", string(data))
}

func TestRenderMarkdown(t *testing.T) {
	data, err := Render(completedJob(), FormatMarkdown)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "# contract.docx")
	assert.Contains(t, out, "## Document text")
	assert.Contains(t, out, "## Page 1 (confidence 96.2)")
	assert.Contains(t, out, "## Page 2 (confidence 91.0)")
	assert.Contains(t, out, "## Warnings")
}

func TestRenderRejectsActiveJob(t *testing.T) {
	job := completedJob()
	job.Status = domain.JobStatusProcessing

	_, err := Render(job, FormatText)
	assert.Error(t, err)
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(completedJob(), Format("pdf"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(dir, completedJob(), FormatText)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "contract.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello")
}

func TestFileNameFallsBackToJobID(t *testing.T) {
	job := completedJob()
	job.Name = ""
	assert.Equal(t, "job-1.txt", FileName(job, FormatText))
}
