package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/metrics"
	"github.com/airenas/transcribo/internal/pkg/utils"
	"github.com/cenkalti/backoff/v4"
)

// Fetcher downloads remote media to a local file
type Fetcher struct {
	httpclient *http.Client
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewFetcher creates fetcher
func NewFetcher(timeout time.Duration, attempts int, delay time.Duration) (*Fetcher, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("wrong timeout %v", timeout)
	}
	if attempts < 1 {
		return nil, fmt.Errorf("wrong attempts %d", attempts)
	}
	res := &Fetcher{httpclient: &http.Client{}, timeout: timeout}
	res.backoff = func() backoff.BackOff { return utils.NewConstantBackoff(delay, attempts) }
	goapp.Log.Info().Dur("timeout", timeout).Int("attempts", attempts).Dur("delay", delay).Msg("fetcher")
	return res, nil
}

// Fetch downloads urlStr into dir and returns the local file path.
// The caller owns the file
func (f *Fetcher) Fetch(ctx context.Context, urlStr, dir string) (string, error) {
	u, err := url.Parse(urlStr)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", NewDownloadError(urlStr, 0, fmt.Errorf("wrong url"))
	}
	file := filepath.Join(dir, "source"+fileExt(u))
	attempt := 0
	res, err := goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		attempt++
		goapp.Log.Debug().Str("url", goapp.Sanitize(urlStr)).Int("attempt", attempt).Msg("download")
		err := f.download(ctx, urlStr, file)
		metrics.Downloads.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			var se *statusError
			retry := !errors.As(err, &se) && ctx.Err() == nil
			return "", retry, err
		}
		return file, false, nil
	}, f.backoff())
	if err != nil {
		_ = os.Remove(file)
		return "", NewDownloadError(urlStr, attempt, err)
	}
	return res, nil
}

type statusError struct {
	err error
}

func (e *statusError) Error() string { return e.err.Error() }

func (f *Fetcher) download(ctx context.Context, urlStr, file string) error {
	ctx, cancelF := context.WithTimeout(ctx, f.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return &statusError{err: err}
	}
	resp, err := f.httpclient.Do(req)
	if err != nil {
		return fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return &statusError{err: fmt.Errorf("can't invoke '%s': %w", goapp.Sanitize(urlStr), err)}
	}
	out, err := os.Create(file)
	if err != nil {
		return &statusError{err: fmt.Errorf("can't create file: %w", err)}
	}
	n, err := io.Copy(out, resp.Body)
	if cErr := out.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return fmt.Errorf("can't read body: %w", err)
	}
	goapp.Log.Info().Str("file", file).Int64("bytes", n).Msg("downloaded")
	return nil
}

func fileExt(u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) < 2 || len(ext) > 6 {
		return ".audio"
	}
	return ext
}
