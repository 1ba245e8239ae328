package transcriber

import (
	"errors"
	"fmt"
)

// ErrSizeLimitExceeded indicates the unit is bigger than the service accepts.
// It is not retried, the caller must route the file through segmentation
var ErrSizeLimitExceeded = errors.New("size limit exceeded")

// TranscriptionError is returned when a unit is not transcribed after retries
// or the failure is not retryable
type TranscriptionError struct {
	File     string
	Attempts int
	err      error
}

// NewTranscriptionError creates new error
func NewTranscriptionError(file string, attempts int, err error) error {
	return &TranscriptionError{File: file, Attempts: attempts, err: err}
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription of '%s' failed (attempts %d): %v", e.File, e.Attempts, e.err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.err
}
