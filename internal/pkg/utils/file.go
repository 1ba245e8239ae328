package utils

import (
	"fmt"
	"os"

	"github.com/airenas/go-app/pkg/goapp"
)

// FileSize returns size of a regular file
func FileSize(name string) (int64, error) {
	st, err := os.Stat(name)
	if err != nil {
		return 0, err
	}
	if st.IsDir() {
		return 0, fmt.Errorf("'%s' is a dir", name)
	}
	return st.Size(), nil
}

// RemoveAll deletes path with all content and logs the failure
func RemoveAll(path string) {
	if path == "" {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		goapp.Log.Error().Err(err).Str("path", path).Msg("can't remove")
		return
	}
	goapp.Log.Debug().Str("path", path).Msg("removed")
}
