package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Pipeline keeps all tunable thresholds of the transcription pipeline
type Pipeline struct {
	FetchTimeout    time.Duration
	FetchRetries    int
	FetchRetryDelay time.Duration

	FFprobe         string
	FFmpeg          string
	ProbeTimeout    time.Duration
	DefaultDuration time.Duration

	SegmentDuration   time.Duration
	MaxSegments       int
	SegmentTimeout    time.Duration
	SegmentRetries    int
	SegmentRetryDelay time.Duration
	SegmentBitrate    string

	TranscriberURL        string
	TranscriberKey        string
	TranscriberModel      string
	Language              string
	TranscriberTimeout    time.Duration
	TranscriberRetries    int
	TranscriberRetryDelay time.Duration
	MaxFileSize           int64

	BatchSize           int
	BatchPause          time.Duration
	Passes              int
	PassDelay           time.Duration
	MinTranscriptLength int
	WorkDir             string
	JobTimeout          time.Duration

	StatusQueueSize int
}

// Default returns pipeline config with design defaults
func Default() *Pipeline {
	return &Pipeline{
		FetchTimeout:    300 * time.Second,
		FetchRetries:    3,
		FetchRetryDelay: 2 * time.Second,

		FFprobe:         "ffprobe",
		FFmpeg:          "ffmpeg",
		ProbeTimeout:    60 * time.Second,
		DefaultDuration: 600 * time.Second,

		SegmentDuration:   45 * time.Second,
		MaxSegments:       20,
		SegmentTimeout:    120 * time.Second,
		SegmentRetries:    3,
		SegmentRetryDelay: 2 * time.Second,
		SegmentBitrate:    "64k",

		TranscriberModel:      "whisper-1",
		TranscriberTimeout:    300 * time.Second,
		TranscriberRetries:    3,
		TranscriberRetryDelay: 2 * time.Second,
		MaxFileSize:           25 * 1024 * 1024,

		BatchSize:           3,
		BatchPause:          1500 * time.Millisecond,
		Passes:              3,
		PassDelay:           2 * time.Second,
		MinTranscriptLength: 10,
		WorkDir:             os.TempDir(),
		JobTimeout:          90 * time.Minute,

		StatusQueueSize: 100,
	}
}

// FromViper reads config, not provided values are taken from Default
func FromViper(v *viper.Viper) (*Pipeline, error) {
	if v == nil {
		return nil, fmt.Errorf("no config")
	}
	d := Default()
	res := &Pipeline{
		FetchTimeout:    defaultV(v.GetDuration("fetch.timeout"), d.FetchTimeout),
		FetchRetries:    defaultV(v.GetInt("fetch.retries"), d.FetchRetries),
		FetchRetryDelay: defaultV(v.GetDuration("fetch.retryDelay"), d.FetchRetryDelay),

		FFprobe:         defaultV(v.GetString("media.ffprobe"), d.FFprobe),
		FFmpeg:          defaultV(v.GetString("media.ffmpeg"), d.FFmpeg),
		ProbeTimeout:    defaultV(v.GetDuration("probe.timeout"), d.ProbeTimeout),
		DefaultDuration: defaultV(v.GetDuration("probe.defaultDuration"), d.DefaultDuration),

		SegmentDuration:   defaultV(v.GetDuration("segment.duration"), d.SegmentDuration),
		MaxSegments:       defaultV(v.GetInt("segment.max"), d.MaxSegments),
		SegmentTimeout:    defaultV(v.GetDuration("segment.timeout"), d.SegmentTimeout),
		SegmentRetries:    defaultV(v.GetInt("segment.retries"), d.SegmentRetries),
		SegmentRetryDelay: defaultV(v.GetDuration("segment.retryDelay"), d.SegmentRetryDelay),
		SegmentBitrate:    defaultV(v.GetString("segment.bitrate"), d.SegmentBitrate),

		TranscriberURL:        v.GetString("transcriber.url"),
		TranscriberKey:        v.GetString("transcriber.key"),
		TranscriberModel:      defaultV(v.GetString("transcriber.model"), d.TranscriberModel),
		Language:              v.GetString("transcriber.language"),
		TranscriberTimeout:    defaultV(v.GetDuration("transcriber.timeout"), d.TranscriberTimeout),
		TranscriberRetries:    defaultV(v.GetInt("transcriber.retries"), d.TranscriberRetries),
		TranscriberRetryDelay: defaultV(v.GetDuration("transcriber.retryDelay"), d.TranscriberRetryDelay),
		MaxFileSize:           defaultV(v.GetInt64("transcriber.maxFileSize"), d.MaxFileSize),

		BatchSize:           defaultV(v.GetInt("pipeline.batchSize"), d.BatchSize),
		BatchPause:          defaultV(v.GetDuration("pipeline.batchPause"), d.BatchPause),
		Passes:              defaultV(v.GetInt("pipeline.passes"), d.Passes),
		PassDelay:           defaultV(v.GetDuration("pipeline.passDelay"), d.PassDelay),
		MinTranscriptLength: defaultV(v.GetInt("pipeline.minTranscriptLength"), d.MinTranscriptLength),
		WorkDir:             defaultV(v.GetString("pipeline.workDir"), d.WorkDir),
		JobTimeout:          defaultV(v.GetDuration("pipeline.timeout"), d.JobTimeout),

		StatusQueueSize: defaultV(v.GetInt("status.queueSize"), d.StatusQueueSize),
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// Validate checks config values
func (p *Pipeline) Validate() error {
	if p.SegmentDuration < time.Second {
		return fmt.Errorf("segment duration too small: %v", p.SegmentDuration)
	}
	if p.MaxSegments < 1 {
		return fmt.Errorf("wrong max segments: %d", p.MaxSegments)
	}
	if p.BatchSize < 1 {
		return fmt.Errorf("wrong batch size: %d", p.BatchSize)
	}
	if p.Passes < 1 {
		return fmt.Errorf("wrong passes count: %d", p.Passes)
	}
	if p.FetchRetries < 1 || p.SegmentRetries < 1 || p.TranscriberRetries < 1 {
		return fmt.Errorf("retries must be >= 1")
	}
	if p.MaxFileSize < 1 {
		return fmt.Errorf("wrong max file size: %d", p.MaxFileSize)
	}
	if p.WorkDir == "" {
		return fmt.Errorf("no work dir")
	}
	return nil
}

func defaultV[T comparable](v, d T) T {
	var e T
	if v == e {
		return d
	}
	return v
}
