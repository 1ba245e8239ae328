package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/utils"
	"github.com/cenkalti/backoff/v4"
)

// Span is a planned slice of the source
type Span struct {
	Index    int
	Start    time.Duration
	Duration time.Duration
}

// Segment is an extracted slice of the source in its own file
type Segment struct {
	Span
	Path string
}

// Plan splits total into ceil(total/segment) spans, capped at max.
// When capped the span length grows to ceil(total/max) seconds so the whole source is covered.
// With the default 45s segment and max 20, a 900s source gives 20 spans of 45s;
// a 60s segment gives 15 spans of 60s
func Plan(total, segment time.Duration, max int) []Span {
	if total <= 0 || segment <= 0 || max < 1 {
		return nil
	}
	segSec := math.Ceil(segment.Seconds())
	totalSec := total.Seconds()
	count := int(math.Ceil(totalSec / segSec))
	if count > max {
		count = max
		segSec = math.Ceil(totalSec / float64(max))
	}
	step := time.Duration(segSec) * time.Second
	res := make([]Span, 0, count)
	for i := 0; i < count; i++ {
		res = append(res, Span{Index: i, Start: time.Duration(i) * step, Duration: step})
	}
	return res
}

// Segmenter extracts fixed duration slices with ffmpeg
type Segmenter struct {
	runner  Runner
	path    string
	segment time.Duration
	max     int
	timeout time.Duration
	bitrate string
	backoff func() backoff.BackOff
}

// SegmenterOptions configures Segmenter
type SegmenterOptions struct {
	FFmpeg     string
	Duration   time.Duration
	Max        int
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	Bitrate    string
}

// NewSegmenter creates segmenter
func NewSegmenter(opt SegmenterOptions) (*Segmenter, error) {
	if opt.FFmpeg == "" {
		return nil, fmt.Errorf("no ffmpeg")
	}
	if opt.Duration < time.Second {
		return nil, fmt.Errorf("wrong segment duration %v", opt.Duration)
	}
	if opt.Max < 1 {
		return nil, fmt.Errorf("wrong max segments %d", opt.Max)
	}
	if opt.Timeout <= 0 {
		return nil, fmt.Errorf("wrong timeout %v", opt.Timeout)
	}
	if opt.Bitrate == "" {
		opt.Bitrate = "64k"
	}
	res := &Segmenter{runner: ExecRunner{}, path: opt.FFmpeg, segment: opt.Duration, max: opt.Max,
		timeout: opt.Timeout, bitrate: opt.Bitrate}
	res.backoff = func() backoff.BackOff { return utils.NewConstantBackoff(opt.RetryDelay, opt.Retries) }
	goapp.Log.Info().Dur("duration", opt.Duration).Int("max", opt.Max).Str("bitrate", opt.Bitrate).Msg("segmenter")
	return res, nil
}

// Split extracts segments of file into dir. Failed segments are skipped,
// SegmentationError is returned only if nothing was produced
func (s *Segmenter) Split(ctx context.Context, file, dir string, total time.Duration) ([]Segment, error) {
	spans := Plan(total, s.segment, s.max)
	if len(spans) == 0 {
		return nil, &SegmentationError{File: file, err: fmt.Errorf("nothing to split, duration %v", total)}
	}
	goapp.Log.Info().Str("file", file).Int("count", len(spans)).Dur("segment", spans[0].Duration).Msg("split")
	var res []Segment
	var lastErr error
	for _, sp := range spans {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		out := filepath.Join(dir, fmt.Sprintf("seg_%03d.mp3", sp.Index))
		if err := s.extract(ctx, file, out, sp); err != nil {
			goapp.Log.Warn().Err(err).Int("index", sp.Index).Msg("segment skipped")
			_ = os.Remove(out)
			lastErr = err
			continue
		}
		res = append(res, Segment{Span: sp, Path: out})
	}
	if len(res) == 0 {
		return nil, &SegmentationError{File: file, Planned: len(spans), err: lastErr}
	}
	return res, nil
}

func (s *Segmenter) extract(ctx context.Context, file, out string, sp Span) error {
	_, err := goapp.InvokeWithBackoff(ctx, func() (bool, bool, error) {
		eCtx, cancelF := context.WithTimeout(ctx, s.timeout)
		defer cancelF()
		if _, err := s.runner.Run(eCtx, s.path, s.args(file, out, sp)...); err != nil {
			return false, ctx.Err() == nil, fmt.Errorf("can't extract segment %d: %w", sp.Index, err)
		}
		size, err := utils.FileSize(out)
		if err != nil {
			return false, true, fmt.Errorf("can't stat segment %d: %w", sp.Index, err)
		}
		if size == 0 {
			return false, false, fmt.Errorf("empty segment %d", sp.Index)
		}
		return true, false, nil
	}, s.backoff())
	return err
}

func (s *Segmenter) args(file, out string, sp Span) []string {
	return []string{"-y", "-hide_banner", "-loglevel", "error",
		"-ss", seconds(sp.Start), "-t", seconds(sp.Duration), "-i", file,
		"-vn", "-ac", "1", "-ar", "16000", "-b:a", s.bitrate, "-f", "mp3", out}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
