package pipeline

import (
	"fmt"

	"github.com/airenas/transcribo/internal/pkg/config"
	"github.com/airenas/transcribo/internal/pkg/fetch"
	"github.com/airenas/transcribo/internal/pkg/media"
	"github.com/airenas/transcribo/internal/pkg/status"
	"github.com/airenas/transcribo/internal/pkg/tempfs"
	"github.com/airenas/transcribo/internal/pkg/transcriber"
)

// Build creates pipeline with real collaborators configured from cfg
func Build(cfg *config.Pipeline, reporter status.Reporter) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no config")
	}
	data := &Data{Reporter: reporter, Config: cfg}
	var err error
	data.Fetcher, err = fetch.NewFetcher(cfg.FetchTimeout, cfg.FetchRetries, cfg.FetchRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("can't init fetcher: %w", err)
	}
	data.Prober, err = media.NewProber(cfg.FFprobe, cfg.ProbeTimeout)
	if err != nil {
		return nil, fmt.Errorf("can't init prober: %w", err)
	}
	data.Segmenter, err = media.NewSegmenter(media.SegmenterOptions{FFmpeg: cfg.FFmpeg, Duration: cfg.SegmentDuration,
		Max: cfg.MaxSegments, Timeout: cfg.SegmentTimeout, Retries: cfg.SegmentRetries,
		RetryDelay: cfg.SegmentRetryDelay, Bitrate: cfg.SegmentBitrate})
	if err != nil {
		return nil, fmt.Errorf("can't init segmenter: %w", err)
	}
	tr, err := transcriber.NewClient(cfg.TranscriberURL, cfg.TranscriberKey, cfg.TranscriberModel)
	if err != nil {
		return nil, fmt.Errorf("can't init transcriber: %w", err)
	}
	data.Transcriber = tr.WithLimits(cfg.TranscriberTimeout, cfg.MaxFileSize).
		WithRetry(cfg.TranscriberRetries, cfg.TranscriberRetryDelay)
	data.WorkDirs, err = tempfs.NewDirs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("can't init work dirs: %w", err)
	}
	return NewPipeline(data)
}
