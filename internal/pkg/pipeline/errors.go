package pipeline

import (
	"errors"
	"fmt"
)

// FailureMessage is stored as the status content of a failed job
const FailureMessage = "Transcription failed: the file may be too large or a technical issue occurred. " +
	"Please enter the transcript manually or try a smaller file."

var (
	// ErrTranscriptTooShort indicates a useless transcript
	ErrTranscriptTooShort = errors.New("transcript too short")
	// ErrWrongRequest is returned for a request that can't start a job
	ErrWrongRequest = errors.New("wrong request")
	// ErrInterrupted is returned when the caller cancelled a running job, no terminal status is written
	ErrInterrupted = errors.New("job interrupted")
	// ErrFinalStatus is returned when the terminal status can't be saved
	ErrFinalStatus = errors.New("can't save final status")
)

// ReassemblyError is returned when no segment was transcribed
type ReassemblyError struct {
	Segments int
}

func (e *ReassemblyError) Error() string {
	return fmt.Sprintf("all %d segments failed", e.Segments)
}
