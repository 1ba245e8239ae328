package statusservice

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/messages"
	"github.com/airenas/transcribo/internal/pkg/persistence"
	"github.com/airenas/transcribo/internal/pkg/utils"
	"github.com/airenas/transcribo/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// StatusDB provides persistance functionality
type StatusDB interface {
	LoadStatus(ctx context.Context, id string) (*persistence.Status, error)
}

// HandlerData keeps data required for handler
type HandlerData struct {
	GueClient   *gue.Client
	WorkerCount int
	DB          StatusDB
	WSHandler   WSConnHandler
}

// StartStatusHandler starts the event queue listener for status events
// returns channel for tracking if all jobs are finished
func StartStatusHandler(ctx context.Context, data *HandlerData) (chan struct{}, error) {
	if err := validateHandler(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Msg("Starting listen for messages")

	wm := gue.WorkMap{
		messages.StatusChange: handler.Create(data, handleStatus, handler.DefaultOpts[messages.DocMessage]().
			WithTimeout(10*time.Second).WithFailure(noRetry)),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.StatusChange),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter(messages.StatusChange)),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("status-worker"),
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

func handleStatus(ctx context.Context, m *messages.DocMessage, data *HandlerData) error {
	goapp.Log.Debug().Str("ID", m.ID).Msg("handling status change event")
	if data.WSHandler.Count(m.ID) == 0 {
		goapp.Log.Debug().Str("ID", m.ID).Msg("no connections found")
		return nil
	}
	st, err := data.DB.LoadStatus(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("cannot get status for ID %s: %w", m.ID, err)
	}
	if st == nil {
		return fmt.Errorf("no status for ID %s", m.ID)
	}
	n, err := data.WSHandler.Broadcast(m.ID, mapStatus(st))
	if err != nil {
		return err
	}
	goapp.Log.Debug().Str("ID", m.ID).Int("conns", n).Msg("status pushed")
	return nil
}

// status events are not retried
func noRetry(ctx context.Context, m *messages.DocMessage, err error, j *gue.Job) (bool, time.Duration, error) {
	return false, 0, nil
}

func validateHandler(data *HandlerData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}
