package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

type enqueuer interface {
	Enqueue(ctx context.Context, j *gue.Job) error
}

// Sender enqueues messages as gue jobs, job type and queue are the same
type Sender struct {
	gc enqueuer
}

// NewSender initializes gue sender
func NewSender(pool *pgxpool.Pool) (*Sender, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	gc, err := gue.NewClient(pgxv5.NewConnPool(pool))
	if err != nil {
		return nil, fmt.Errorf("can't init gue: %w", err)
	}
	return &Sender{gc: gc}, nil
}

// SendMessage enqueues the message to queue
func (sender *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	if queue == "" {
		return fmt.Errorf("no queue")
	}
	args, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("can't marshal msg: %w", err)
	}
	if err := sender.gc.Enqueue(ctx, &gue.Job{Type: queue, Queue: queue, Args: args}); err != nil {
		return fmt.Errorf("can't send msg to %s: %w", queue, err)
	}
	goapp.Log.Debug().Str("queue", queue).Int("len", len(args)).Msg("sent")
	return nil
}
