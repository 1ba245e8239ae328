package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/messages"
	"github.com/airenas/transcribo/internal/pkg/persistence"
	"github.com/airenas/transcribo/internal/pkg/pipeline"
	"github.com/airenas/transcribo/internal/pkg/status"
	"github.com/airenas/transcribo/internal/pkg/utils"
	"github.com/airenas/transcribo/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// Runner runs one transcription job
type Runner interface {
	Run(ctx context.Context, req *pipeline.Request) (string, error)
}

// Filer stores files
type Filer interface {
	SaveFile(ctx context.Context, name string, r io.Reader) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	Runner      Runner
	Reporter    status.Reporter
	// Filer is optional, transcripts are archived when set
	Filer      Filer
	JobTimeout time.Duration
	Testing    bool
}

const maxJobRetries = 3

// StartWorkerService starts the event queue listener service to listen for events
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	wm := gue.WorkMap{
		messages.Transcribe: handler.Create(data, handleTranscribe, handler.DefaultOpts[messages.DocMessage]().
			WithFailure(failureHandler(data.Reporter)).
			WithTimeout(data.JobTimeout+time.Minute).WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Transcribe),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter(messages.Transcribe)),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("transcribo-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

// handleTranscribe runs the pipeline. A failed job is already terminal,
// an interrupted run or a lost final status is returned as an error for a reschedule
func handleTranscribe(ctx context.Context, m *messages.DocMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling transcribe")
	res, err := data.Runner.Run(ctx, &pipeline.Request{DocumentID: m.ID, SourceURL: m.SourceURL,
		ForceChunked: m.ForceChunked, Language: m.Language})
	if err != nil {
		if errors.Is(err, pipeline.ErrWrongRequest) {
			goapp.Log.Error().Err(err).Str("ID", m.ID).Msg("drop message")
			return nil
		}
		if errors.Is(err, pipeline.ErrInterrupted) || errors.Is(err, pipeline.ErrFinalStatus) {
			return err
		}
		goapp.Log.Warn().Err(err).Str("ID", m.ID).Msg("transcription failed")
		return nil
	}
	if data.Filer != nil {
		name := persistence.TranscriptFile(m.ID)
		if err := data.Filer.SaveFile(ctx, name, strings.NewReader(res)); err != nil {
			goapp.Log.Error().Err(err).Str("ID", m.ID).Msg("can't archive transcript")
		} else {
			goapp.Log.Info().Str("ID", m.ID).Str("file", name).Msg("archived")
		}
	}
	goapp.Log.Info().Str("ID", m.ID).Int("len", len(res)).Msg("transcribed")
	return nil
}

func failureHandler(reporter status.Reporter) handler.FailureFunc[messages.DocMessage] {
	return func(ctx context.Context, m *messages.DocMessage, err error, j *gue.Job) (bool, time.Duration, error) {
		if j.ErrorCount < maxJobRetries {
			return true, 0, nil
		}
		goapp.Log.Warn().Str("ID", m.ID).Int32("errCount", j.ErrorCount).Msg("give up")
		if err := reporter.Report(ctx, m.ID, status.Failed, pipeline.FailureMessage, 100); err != nil {
			return false, 0, fmt.Errorf("can't save status: %w", err)
		}
		return false, 0, nil
	}
}

func validate(data *ServiceData) error {
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.Runner == nil {
		return fmt.Errorf("no runner")
	}
	if data.Reporter == nil {
		return fmt.Errorf("no reporter")
	}
	if data.JobTimeout <= 0 {
		return fmt.Errorf("wrong job timeout %v", data.JobTimeout)
	}
	return nil
}
