package mocks

import (
	"context"
	"io"
	"time"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/transcribo/internal/pkg/media"
	"github.com/airenas/transcribo/internal/pkg/persistence"
	"github.com/airenas/transcribo/internal/pkg/status"
	"github.com/airenas/transcribo/internal/pkg/transcriber/api"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader) error {
	args := m.Called(ctx, name, r)
	return args.Error(0)
}

func (m *Filer) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, name)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// DB is postgress DB mock
type DB struct{ mock.Mock }

func (m *DB) SaveStatus(ctx context.Context, item *persistence.Status) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) LoadStatus(ctx context.Context, id string) (*persistence.Status, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Status](args.Get(0)), args.Error(1)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Reporter is status reporter mock
type Reporter struct{ mock.Mock }

func (m *Reporter) Report(ctx context.Context, ID string, st status.Status, msg string, progress int) error {
	args := m.Called(ctx, ID, st, msg, progress)
	return args.Error(0)
}

// Fetcher is downloader mock
type Fetcher struct{ mock.Mock }

func (m *Fetcher) Fetch(ctx context.Context, url, dir string) (string, error) {
	args := m.Called(ctx, url, dir)
	return args.String(0), args.Error(1)
}

// Prober is ffprobe mock
type Prober struct{ mock.Mock }

func (m *Prober) Duration(ctx context.Context, file string) (time.Duration, error) {
	args := m.Called(ctx, file)
	return to[time.Duration](args.Get(0)), args.Error(1)
}

// Segmenter is ffmpeg splitter mock
type Segmenter struct{ mock.Mock }

func (m *Segmenter) Split(ctx context.Context, file, dir string, total time.Duration) ([]media.Segment, error) {
	args := m.Called(ctx, file, dir, total)
	return to[[]media.Segment](args.Get(0)), args.Error(1)
}

// Transcriber is transcription client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, file string, opts *api.Options) (string, error) {
	args := m.Called(ctx, file, opts)
	return args.String(0), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
