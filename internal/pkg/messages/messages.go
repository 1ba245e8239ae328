package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "TRANSCRIBO/"
	// Transcribe queue name
	Transcribe = st + "Transcribe"
	// StatusChange queue name
	StatusChange = st + "StatusChange"
)

// DocMessage main message passing through the transcription system
type DocMessage struct {
	amessages.QueueMessage
	SourceURL    string `json:"sourceUrl,omitempty"`
	ForceChunked bool   `json:"forceChunked,omitempty"`
	Language     string `json:"language,omitempty"`
}

// NewStatusChange makes a status change event for document
func NewStatusChange(ID string) *DocMessage {
	return &DocMessage{QueueMessage: amessages.QueueMessage{ID: ID}}
}
