package pipeline

import (
	"testing"

	"github.com/airenas/transcribo/internal/pkg/config"
	"github.com/airenas/transcribo/internal/pkg/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	cfg.TranscriberURL = "http://localhost:8000/v1/audio/transcriptions"
	cfg.TranscriberKey = "key"

	p, err := Build(cfg, &mocks.Reporter{})

	require.Nil(t, err)
	require.NotNil(t, p)
	assert.Equal(t, cfg, p.cfg)
}

func TestBuild_Fail(t *testing.T) {
	tests := []struct {
		name string
		f    func(*config.Pipeline)
	}{
		{name: "No transcriber url", f: func(c *config.Pipeline) { c.TranscriberURL = "" }},
		{name: "No ffmpeg", f: func(c *config.Pipeline) { c.FFmpeg = "" }},
		{name: "No ffprobe", f: func(c *config.Pipeline) { c.FFprobe = "" }},
		{name: "Wrong fetch retries", f: func(c *config.Pipeline) { c.FetchRetries = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.WorkDir = t.TempDir()
			cfg.TranscriberURL = "http://localhost:8000"
			tt.f(cfg)
			_, err := Build(cfg, &mocks.Reporter{})
			assert.NotNil(t, err)
		})
	}
	_, err := Build(nil, &mocks.Reporter{})
	assert.NotNil(t, err)
}
