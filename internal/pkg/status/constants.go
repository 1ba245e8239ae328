package status

// Status represents the extraction status of a document transcription
type Status int

const (
	// Pending - job is accepted but not started yet
	Pending Status = iota + 1
	// Processing - pipeline is working
	Processing
	// Success - final step, content keeps the transcript
	Success
	// Failed - final step, content keeps the user facing failure message
	Failed
	// Manual - final step, transcript entered by user
	Manual
)

var (
	statusName = map[Status]string{Pending: "pending", Processing: "processing", Success: "success",
		Failed: "failed", Manual: "manual"}
	nameStatus = map[string]Status{"pending": Pending, "processing": Processing, "success": Success,
		"failed": Failed, "manual": Manual}
)

func (st Status) String() string {
	return statusName[st]
}

// IsTerminal returns true if pipeline does not write to the record anymore
func (st Status) IsTerminal() bool {
	return st == Success || st == Failed || st == Manual
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}
