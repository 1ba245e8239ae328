package media

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// Prober reads media duration with ffprobe
type Prober struct {
	runner  Runner
	path    string
	timeout time.Duration
}

// NewProber creates prober, ffprobe is the tool path or name
func NewProber(ffprobe string, timeout time.Duration) (*Prober, error) {
	if ffprobe == "" {
		return nil, fmt.Errorf("no ffprobe")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("wrong timeout %v", timeout)
	}
	return &Prober{runner: ExecRunner{}, path: ffprobe, timeout: timeout}, nil
}

// Duration returns the total duration of a local file
func (p *Prober) Duration(ctx context.Context, file string) (time.Duration, error) {
	ctx, cancelF := context.WithTimeout(ctx, p.timeout)
	defer cancelF()
	out, err := p.runner.Run(ctx, p.path, "-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", file)
	if err != nil {
		return 0, &ProbeError{File: file, err: err}
	}
	res, err := parseDuration(string(out))
	if err != nil {
		return 0, &ProbeError{File: file, err: err}
	}
	goapp.Log.Debug().Str("file", file).Dur("duration", res).Msg("probed")
	return res, nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("wrong duration '%s'", s)
	}
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("wrong duration %v", v)
	}
	return time.Duration(v * float64(time.Second)), nil
}
