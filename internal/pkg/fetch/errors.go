package fetch

import "fmt"

// DownloadError is returned when the source can't be downloaded
type DownloadError struct {
	URL      string
	Attempts int
	err      error
}

// NewDownloadError creates download error
func NewDownloadError(url string, attempts int, err error) *DownloadError {
	return &DownloadError{URL: url, Attempts: attempts, err: err}
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("can't download '%s' (attempts %d): %v", e.URL, e.Attempts, e.err)
}

func (e *DownloadError) Unwrap() error {
	return e.err
}
