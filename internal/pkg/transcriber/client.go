package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/metrics"
	tapi "github.com/airenas/transcribo/internal/pkg/transcriber/api"
	"github.com/airenas/transcribo/internal/pkg/utils"
	"github.com/cenkalti/backoff/v4"
)

// Client communicates with the hosted speech-to-text service
type Client struct {
	httpclient  *http.Client
	url         string
	key         string
	model       string
	timeout     time.Duration
	maxFileSize int64
	backoff     func() backoff.BackOff
	newTimer    func() backoff.Timer
}

// NewClient creates a transcriber client
func NewClient(url, key, model string) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if !strings.HasPrefix(url, "http") {
		return nil, fmt.Errorf("no http in url")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res.url = url
	res.key = key
	res.model = model
	res.timeout = time.Second * 300
	res.maxFileSize = 25 * 1024 * 1024
	res.httpclient = asrHTTPClient()
	res.backoff = func() backoff.BackOff { return utils.NewConstantBackoff(2*time.Second, 3) }
	res.newTimer = func() backoff.Timer { return nil }
	return &res, nil
}

// WithLimits sets the attempt timeout and max accepted file size
func (sp *Client) WithLimits(timeout time.Duration, maxFileSize int64) *Client {
	sp.timeout = timeout
	sp.maxFileSize = maxFileSize
	return sp
}

// WithRetry sets the number of attempts and the delay between them
func (sp *Client) WithRetry(attempts int, delay time.Duration) *Client {
	sp.backoff = func() backoff.BackOff { return utils.NewConstantBackoff(delay, attempts) }
	return sp
}

type response struct {
	Text string `json:"text"`
}

// Transcribe sends one audio unit to the service and returns the recognized text
func (sp *Client) Transcribe(ctx context.Context, file string, opts *tapi.Options) (string, error) {
	if opts == nil {
		opts = &tapi.Options{}
	}
	size, err := utils.FileSize(file)
	if err != nil {
		return "", NewTranscriptionError(file, 0, fmt.Errorf("can't access file: %w", err))
	}
	if size == 0 {
		return "", NewTranscriptionError(file, 0, fmt.Errorf("empty file"))
	}
	if size > sp.maxFileSize {
		return "", NewTranscriptionError(file, 0, fmt.Errorf("%w: %d > %d", ErrSizeLimitExceeded, size, sp.maxFileSize))
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", NewTranscriptionError(file, 0, fmt.Errorf("can't read file: %w", err))
	}
	body, contentType, err := sp.makeBody(data, filepath.Base(file), opts.Language)
	if err != nil {
		return "", NewTranscriptionError(file, 0, err)
	}
	timeout := sp.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	attempt := 0
	res, err := utils.InvokeWithTimer(ctx, func() (string, bool, error) {
		attempt++
		goapp.Log.Debug().Str("file", file).Int("attempt", attempt).Dur("timeout", timeout).Msg("call")
		res, retry, err := sp.call(ctx, body, contentType, timeout)
		metrics.UnitAttempts.WithLabelValues(metrics.Result(err)).Inc()
		return res, retry, err
	}, sp.backoff(), sp.newTimer(), func(err error, d time.Duration) {
		goapp.Log.Warn().Err(err).Str("file", file).Int("attempt", attempt).Dur("after", d).Msg("retry")
	})
	if err != nil {
		return "", NewTranscriptionError(file, attempt, err)
	}
	return res, nil
}

func (sp *Client) call(ctx context.Context, body []byte, contentType string, timeout time.Duration) (string, bool, error) {
	cCtx, cancelF := context.WithTimeout(ctx, timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(cCtx, http.MethodPost, sp.url, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", contentType)
	if sp.key != "" {
		req.Header.Set("Authorization", "Bearer "+sp.key)
	}
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return "", isRetryableErr(ctx, cCtx, err), fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
		return "", isRetryableCode(resp.StatusCode), err
	}
	br, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", isRetryableErr(ctx, cCtx, err), fmt.Errorf("can't read body: %w", err)
	}
	var respData response
	if err := json.Unmarshal(br, &respData); err != nil {
		return "", false, fmt.Errorf("can't decode response: %w", err)
	}
	return strings.TrimSpace(respData.Text), false, nil
}

func (sp *Client) makeBody(data []byte, name, language string) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err = part.Write(data); err != nil {
		return nil, "", fmt.Errorf("can't add file content to request: %w", err)
	}
	if err := writer.WriteField("model", sp.model); err != nil {
		return nil, "", fmt.Errorf("can't add param: %w", err)
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, "", fmt.Errorf("can't add param: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return nil, "", fmt.Errorf("can't add param: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("can't close multipart: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

// isRetryableErr treats an attempt timeout like rate limiting, caller cancel stops retries
func isRetryableErr(parent, attempt context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return true
	}
	return goapp.IsRetryableErr(err)
}

func isRetryableCode(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

func asrHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}
