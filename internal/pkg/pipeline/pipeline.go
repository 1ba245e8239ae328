package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/config"
	"github.com/airenas/transcribo/internal/pkg/media"
	"github.com/airenas/transcribo/internal/pkg/metrics"
	"github.com/airenas/transcribo/internal/pkg/status"
	tapi "github.com/airenas/transcribo/internal/pkg/transcriber/api"
	"github.com/airenas/transcribo/internal/pkg/utils"
)

type (
	// Fetcher downloads the source
	Fetcher interface {
		Fetch(ctx context.Context, url, dir string) (string, error)
	}
	// Prober returns media duration
	Prober interface {
		Duration(ctx context.Context, file string) (time.Duration, error)
	}
	// Segmenter splits media into segment files
	Segmenter interface {
		Split(ctx context.Context, file, dir string, total time.Duration) ([]media.Segment, error)
	}
	// Transcriber transcribes one audio unit
	Transcriber interface {
		Transcribe(ctx context.Context, file string, opts *tapi.Options) (string, error)
	}
	// WorkDirs creates a work dir for a job run
	WorkDirs interface {
		Create(ID string) (string, error)
	}
)

// Data keeps pipeline collaborators
type Data struct {
	Fetcher     Fetcher
	Prober      Prober
	Segmenter   Segmenter
	Transcriber Transcriber
	Reporter    status.Reporter
	WorkDirs    WorkDirs
	Config      *config.Pipeline
}

// Request is one transcription job request
type Request struct {
	DocumentID   string
	SourceURL    string
	ForceChunked bool
	Language     string
}

// Pipeline runs transcription jobs
type Pipeline struct {
	data  Data
	cfg   *config.Pipeline
	sleep func(ctx context.Context, d time.Duration) error
}

const (
	strategyDirect  = "direct"
	strategyChunked = "chunked"

	outcomeInterrupted = "interrupted"
)

// NewPipeline creates pipeline
func NewPipeline(data *Data) (*Pipeline, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	return &Pipeline{data: *data, cfg: data.Config, sleep: sleep}, nil
}

func validate(data *Data) error {
	if data == nil {
		return fmt.Errorf("no data")
	}
	if data.Fetcher == nil {
		return fmt.Errorf("no fetcher")
	}
	if data.Prober == nil {
		return fmt.Errorf("no prober")
	}
	if data.Segmenter == nil {
		return fmt.Errorf("no segmenter")
	}
	if data.Transcriber == nil {
		return fmt.Errorf("no transcriber")
	}
	if data.Reporter == nil {
		return fmt.Errorf("no reporter")
	}
	if data.WorkDirs == nil {
		return fmt.Errorf("no work dirs")
	}
	if data.Config == nil {
		return fmt.Errorf("no config")
	}
	return data.Config.Validate()
}

type job struct {
	req      *Request
	progress int
	strategy string
}

// Run executes one job and returns the transcript.
// The job ends in a terminal status unless ctx is cancelled, then ErrInterrupted is returned.
// The work dir is removed on every exit path
func (p *Pipeline) Run(ctx context.Context, req *Request) (string, error) {
	if req == nil || req.DocumentID == "" {
		return "", fmt.Errorf("%w: no document ID", ErrWrongRequest)
	}
	if req.SourceURL == "" {
		return "", fmt.Errorf("%w: no source URL", ErrWrongRequest)
	}
	if req.Language == "" {
		req.Language = p.cfg.Language
	}
	goapp.Log.Info().Str("ID", req.DocumentID).Str("url", goapp.Sanitize(req.SourceURL)).
		Bool("forceChunked", req.ForceChunked).Msg("job start")
	start := time.Now()

	jCtx, cancelF := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancelF()
	j := &job{req: req, strategy: strategyDirect}
	res, err := p.runSafe(jCtx, j)
	if err == nil {
		err = p.checkTranscript(res)
	}
	if err != nil {
		res = ""
	}
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		// a canceled caller gets no terminal status
		metrics.Jobs.WithLabelValues(j.strategy, outcomeInterrupted).Inc()
		goapp.Log.Warn().Err(err).Str("ID", req.DocumentID).Str("strategy", j.strategy).
			Dur("took", time.Since(start)).Msg("job interrupted")
		return "", fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	if fErr := p.finalize(ctx, j, res, err); fErr != nil {
		err = fErr
		res = ""
	}
	outcome := status.Success.String()
	if err != nil {
		outcome = status.Failed.String()
	}
	metrics.Jobs.WithLabelValues(j.strategy, outcome).Inc()
	goapp.Log.Info().Str("ID", req.DocumentID).Str("strategy", j.strategy).Str("outcome", outcome).
		Dur("took", time.Since(start)).Msg("job end")
	return res, err
}

func (p *Pipeline) runSafe(ctx context.Context, j *job) (res string, err error) {
	dir, err := p.data.WorkDirs.Create(j.req.DocumentID)
	if err != nil {
		return "", err
	}
	defer utils.RemoveAll(dir)
	defer func() {
		if r := recover(); r != nil {
			goapp.Log.Error().Str("ID", j.req.DocumentID).Interface("panic", r).Msg("pipeline crashed")
			res, err = "", fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return p.run(ctx, j, dir)
}

func (p *Pipeline) run(ctx context.Context, j *job, dir string) (string, error) {
	p.report(ctx, j, "Downloading audio", 5)
	file, err := p.data.Fetcher.Fetch(ctx, j.req.SourceURL, dir)
	if err != nil {
		return "", err
	}
	p.report(ctx, j, "Audio downloaded", 15)

	size, err := utils.FileSize(file)
	if err != nil {
		return "", fmt.Errorf("can't stat downloaded file: %w", err)
	}
	if !j.req.ForceChunked && size <= p.cfg.MaxFileSize {
		p.report(ctx, j, "Transcribing audio", 20)
		res, err := p.data.Transcriber.Transcribe(ctx, file, &tapi.Options{Language: j.req.Language})
		if err == nil && p.longEnough(res) {
			return strings.TrimSpace(res), nil
		}
		if err == nil {
			err = ErrTranscriptTooShort
		}
		if ctx.Err() != nil {
			return "", err
		}
		goapp.Log.Warn().Err(err).Str("ID", j.req.DocumentID).Msg("direct transcription failed, switching to segments")
	} else {
		goapp.Log.Info().Str("ID", j.req.DocumentID).Int64("size", size).Msg("use segments")
	}
	j.strategy = strategyChunked
	return p.runChunked(ctx, j, file, dir)
}

func (p *Pipeline) runChunked(ctx context.Context, j *job, file, dir string) (string, error) {
	p.report(ctx, j, "Analyzing audio", 25)
	total, err := p.data.Prober.Duration(ctx, file)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("ID", j.req.DocumentID).Dur("default", p.cfg.DefaultDuration).
			Msg("can't probe, using default duration")
		total = p.cfg.DefaultDuration
	}
	p.report(ctx, j, "Splitting audio", 30)
	segDir := filepath.Join(dir, "segments")
	if err := os.MkdirAll(segDir, 0755); err != nil {
		return "", fmt.Errorf("can't create segments dir: %w", err)
	}
	segments, err := p.data.Segmenter.Split(ctx, file, segDir, total)
	if err != nil {
		return "", err
	}
	goapp.Log.Info().Str("ID", j.req.DocumentID).Int("segments", len(segments)).Msg("split done")

	var results []segmentResult
	for pass := 1; pass <= p.cfg.Passes; pass++ {
		timeout := p.cfg.TranscriberTimeout
		if pass > 1 && pass == p.cfg.Passes {
			timeout *= 2
		}
		results = p.transcribeAll(ctx, j, segments, timeout)
		ok := succeeded(results)
		goapp.Log.Info().Str("ID", j.req.DocumentID).Int("pass", pass).Int("ok", ok).
			Int("segments", len(segments)).Msg("pass done")
		if ok > 0 || pass == p.cfg.Passes {
			break
		}
		if err := p.sleep(ctx, p.cfg.PassDelay); err != nil {
			break
		}
	}
	// unprocessed segments of a stopped job are not failures
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("segments transcription stopped: %w", err)
	}
	p.report(ctx, j, "Combining transcript", 95)
	return reassemble(results)
}

func (p *Pipeline) transcribeAll(ctx context.Context, j *job, segments []media.Segment, timeout time.Duration) []segmentResult {
	res := make([]segmentResult, len(segments))
	for i, s := range segments {
		res[i] = failedSegment(s.Index)
	}
	n := len(segments)
	for from := 0; from < n; from += p.cfg.BatchSize {
		if from > 0 {
			if err := p.sleep(ctx, p.cfg.BatchPause); err != nil {
				break
			}
		}
		to := from + p.cfg.BatchSize
		if to > n {
			to = n
		}
		p.report(ctx, j, fmt.Sprintf("Transcribing segments %d-%d of %d", from+1, to, n), 35+55*from/n)
		var wg sync.WaitGroup
		for i := from; i < to; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res[i] = p.transcribeSegment(ctx, j, segments[i], timeout)
			}(i)
		}
		wg.Wait()
		if ctx.Err() != nil {
			break
		}
	}
	return res
}

func (p *Pipeline) transcribeSegment(ctx context.Context, j *job, s media.Segment, timeout time.Duration) (res segmentResult) {
	res = failedSegment(s.Index)
	defer func() {
		if r := recover(); r != nil {
			goapp.Log.Error().Str("ID", j.req.DocumentID).Int("index", s.Index).Interface("panic", r).Msg("segment crashed")
			res = failedSegment(s.Index)
		}
	}()
	text, err := p.data.Transcriber.Transcribe(ctx, s.Path, &tapi.Options{Language: j.req.Language, Timeout: timeout})
	metrics.Segments.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		goapp.Log.Warn().Err(err).Str("ID", j.req.DocumentID).Int("index", s.Index).Msg("segment failed")
		return res
	}
	return segmentResult{index: s.Index, text: text, succeeded: true}
}

func (p *Pipeline) checkTranscript(text string) error {
	if !p.longEnough(text) {
		return fmt.Errorf("%w: %d chars", ErrTranscriptTooShort, utf8.RuneCountInString(strings.TrimSpace(text)))
	}
	return nil
}

func (p *Pipeline) longEnough(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= p.cfg.MinTranscriptLength
}

// report writes non terminal progress, progress never goes back within a job run
func (p *Pipeline) report(ctx context.Context, j *job, msg string, progress int) {
	if progress < j.progress {
		progress = j.progress
	}
	j.progress = progress
	if err := p.data.Reporter.Report(ctx, j.req.DocumentID, status.Processing, msg, progress); err != nil {
		goapp.Log.Warn().Err(err).Str("ID", j.req.DocumentID).Msg("can't report progress")
	}
}

func (p *Pipeline) finalize(ctx context.Context, j *job, text string, err error) error {
	ctx, cancelF := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancelF()
	st, content := status.Success, text
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", j.req.DocumentID).Msg("job failed")
		st, content = status.Failed, FailureMessage
	}
	if rErr := p.data.Reporter.Report(ctx, j.req.DocumentID, st, content, 100); rErr != nil {
		goapp.Log.Error().Err(rErr).Str("ID", j.req.DocumentID).Str("status", st.String()).Msg("can't save final status")
		return fmt.Errorf("%w: %w", ErrFinalStatus, rErr)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
