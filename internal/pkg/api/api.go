package api

import "time"

type (
	// TranscribeRequest starts a transcription job
	TranscribeRequest struct {
		AudioURL     string `json:"audioUrl"`
		DocumentID   string `json:"documentId"`
		ForceChunked bool   `json:"forceChunked,omitempty"`
		Language     string `json:"language,omitempty"`
	}

	// TranscribeResponse is the result of a synchronous job
	TranscribeResponse struct {
		Success       bool   `json:"success"`
		Transcription string `json:"transcription,omitempty"`
		Message       string `json:"message,omitempty"`
	}

	// QueueResponse is returned for an accepted asynchronous job
	QueueResponse struct {
		ID string `json:"id"`
	}

	// ManualRequest keeps a transcript typed by the user
	ManualRequest struct {
		Transcript string `json:"transcript"`
	}

	// StatusResult is the status record seen by a polling client
	StatusResult struct {
		ID               string    `json:"id"`
		Content          string    `json:"content"`
		ExtractionStatus string    `json:"extraction_status"`
		Progress         int32     `json:"progress"`
		UpdatedAt        time.Time `json:"updated_at"`
	}
)
