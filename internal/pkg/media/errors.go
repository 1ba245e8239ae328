package media

import "fmt"

// ProbeError indicates the duration of a file is unknown
type ProbeError struct {
	File string
	err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("can't probe '%s': %v", e.File, e.err)
}

func (e *ProbeError) Unwrap() error {
	return e.err
}

// SegmentationError is returned when no segment was produced
type SegmentationError struct {
	File    string
	Planned int
	err     error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("no segments produced from '%s' (planned %d): %v", e.File, e.Planned, e.err)
}

func (e *SegmentationError) Unwrap() error {
	return e.err
}
