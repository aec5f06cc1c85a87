package domain

import "errors"

// ErrInvalidInput is returned for malformed submissions; no job is created.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidArtifact is returned when an imported artifact is unreadable.
var ErrInvalidArtifact = errors.New("invalid artifact")

// ErrArtifactFetchFailed is returned when a cache miss could not be filled.
var ErrArtifactFetchFailed = errors.New("artifact fetch failed")

// ErrUnsupportedFormat is returned when a document cannot be interpreted.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrPageRecognition marks a failure scoped to a single page.
var ErrPageRecognition = errors.New("page recognition failed")

// ErrCancelled marks a job stopped by caller request.
var ErrCancelled = errors.New("job cancelled")

// ErrJobNotFound is returned when a job id has no table entry.
var ErrJobNotFound = errors.New("job not found")
