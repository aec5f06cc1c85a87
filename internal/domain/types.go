package domain

import "time"

// JobStatus tracks the lifecycle of a single recognition job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// IsTerminal reports whether the status ends the job lifecycle.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// ContentClass routes a submitted document to its decoder.
type ContentClass string

const (
	// ContentClassRaster is a single raster image (PNG, JPEG, BMP).
	ContentClassRaster ContentClass = "raster"
	// ContentClassMultipage is a multi-page raster document (TIFF).
	ContentClassMultipage ContentClass = "multipage"
	// ContentClassCompound is a zip container with an XML text body and
	// optional embedded images.
	ContentClassCompound ContentClass = "compound"
)

// IsValid reports whether the content class is one the resolver accepts.
func (c ContentClass) IsValid() bool {
	switch c {
	case ContentClassRaster, ContentClassMultipage, ContentClassCompound:
		return true
	default:
		return false
	}
}

// Segment is the recognition result for one page of one job.
type Segment struct {
	PageIndex  int     `json:"pageIndex"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Job stores identity, inputs, lifecycle state, and accumulated output for
// one submitted document.
type Job struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	ContentClass  ContentClass `json:"contentClass"`
	SizeBytes     int64        `json:"sizeBytes"`
	Languages     []string     `json:"languages"`
	Status        JobStatus    `json:"status"`
	Progress      float64      `json:"progress"`
	CreatedAt     time.Time    `json:"createdAt"`
	CompletedAt   *time.Time   `json:"completedAt,omitempty"`
	Warnings      []string     `json:"warnings,omitempty"`
	Error         string       `json:"error,omitempty"`
	Segments      []Segment    `json:"segments,omitempty"`
	ExtractedText string       `json:"extractedText,omitempty"`
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (j Job) Clone() Job {
	out := j
	if j.Languages != nil {
		out.Languages = append([]string(nil), j.Languages...)
	}
	if j.Warnings != nil {
		out.Warnings = append([]string(nil), j.Warnings...)
	}
	if j.Segments != nil {
		out.Segments = append([]Segment(nil), j.Segments...)
	}
	if j.CompletedAt != nil {
		completed := *j.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	CacheDir               string   `json:"cacheDir"`
	OutputDir              string   `json:"outputDir"`
	ArtifactBaseURL        string   `json:"artifactBaseUrl"`
	Languages              []string `json:"languages"`
	MaxConcurrentJobs      int      `json:"maxConcurrentJobs"`
	PageLatencyWarnSeconds float64  `json:"pageLatencyWarnSeconds"`
	FetchRequestsPerSecond float64  `json:"fetchRequestsPerSecond"`
}
