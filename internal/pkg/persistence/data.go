package persistence

import (
	"database/sql"
	"time"
)

type (
	// Status is a single mutable status record of a document transcription
	Status struct {
		ID        string
		SourceURL sql.NullString
		Status    string
		// Content keeps a human readable status or the final transcript
		Content  string
		Progress int32
		Created  time.Time
		Updated  time.Time
	}
)

// TranscriptFile returns the archive name of a document transcript
func TranscriptFile(ID string) string {
	return ID + "/transcript.txt"
}
