package api

import "time"

// Options keeps parameters of one transcription call
type Options struct {
	// Language hint, empty - service detects the language
	Language string
	// Timeout for one attempt, zero - client default
	Timeout time.Duration
}
