package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airenas/transcribo/internal/pkg/test"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestServer(t *testing.T, h http.HandlerFunc) (*Fetcher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(func() { server.Close() })
	f, err := NewFetcher(time.Second, 3, time.Millisecond)
	require.Nil(t, err)
	f.httpclient = server.Client()
	f.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return f, server
}

func TestNewFetcher(t *testing.T) {
	_, err := NewFetcher(0, 3, time.Second)
	assert.NotNil(t, err)
	_, err = NewFetcher(time.Second, 0, time.Second)
	assert.NotNil(t, err)
	_, err = NewFetcher(time.Second, 1, time.Second)
	assert.Nil(t, err)
}

func TestFetch(t *testing.T) {
	f, server := initTestServer(t, func(rw http.ResponseWriter, req *http.Request) {
		_, _ = rw.Write([]byte("audio data"))
	})
	dir := t.TempDir()
	got, err := f.Fetch(test.Ctx(t), server.URL+"/a/file.MP3?x=1", dir)
	require.Nil(t, err)
	b, err := os.ReadFile(got)
	require.Nil(t, err)
	assert.Equal(t, "audio data", string(b))
	assert.Equal(t, ".mp3", got[len(got)-4:])
}

func TestFetch_BadStatusNotRetried(t *testing.T) {
	var calls int32
	f, server := initTestServer(t, func(rw http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		rw.WriteHeader(http.StatusNotFound)
	})
	dir := t.TempDir()
	_, err := f.Fetch(test.Ctx(t), server.URL+"/file.mp3", dir)
	require.NotNil(t, err)
	var de *DownloadError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestFetch_TimeoutRetried(t *testing.T) {
	var calls int32
	f, server := initTestServer(t, func(rw http.ResponseWriter, req *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			select {
			case <-req.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		_, _ = rw.Write([]byte("audio"))
	})
	f.timeout = 50 * time.Millisecond
	got, err := f.Fetch(test.Ctx(t), server.URL+"/file.wav", t.TempDir())
	require.Nil(t, err)
	assert.NotEmpty(t, got)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_Exhausted(t *testing.T) {
	var calls int32
	f, server := initTestServer(t, func(rw http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-req.Context().Done():
		case <-time.After(time.Second):
		}
	})
	f.timeout = 20 * time.Millisecond
	_, err := f.Fetch(test.Ctx(t), server.URL+"/file.wav", t.TempDir())
	require.NotNil(t, err)
	var de *DownloadError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 3, de.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_WrongURL(t *testing.T) {
	f, _ := initTestServer(t, func(rw http.ResponseWriter, req *http.Request) {})
	for _, u := range []string{"", "ftp://olia/a.mp3", "http://", "::"} {
		_, err := f.Fetch(context.Background(), u, t.TempDir())
		assert.NotNil(t, err, u)
	}
}
