package status

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// ErrQueueClosed is returned when the report comes after the queue worker has stopped
var ErrQueueClosed = fmt.Errorf("status queue closed")

type event struct {
	ID       string
	st       Status
	msg      string
	progress int
	done     chan error
}

// Queue is a Reporter writing statuses in the background.
// Writes keep the order of Report calls. Terminal statuses are waited for
type Queue struct {
	next         Reporter
	ch           chan *event
	stopped      chan struct{}
	writeTimeout time.Duration
}

// NewQueue creates bounded status queue
func NewQueue(next Reporter, size int) (*Queue, error) {
	if next == nil {
		return nil, fmt.Errorf("no reporter")
	}
	if size < 1 {
		return nil, fmt.Errorf("wrong queue size %d", size)
	}
	return &Queue{next: next, ch: make(chan *event, size), stopped: make(chan struct{}),
		writeTimeout: 15 * time.Second}, nil
}

// Start runs the worker loop until ctx is canceled, queued events are flushed before exit.
// Returns channel closed after the loop is finished
func (q *Queue) Start(ctx context.Context) <-chan struct{} {
	res := make(chan struct{})
	go func() {
		defer close(res)
		goapp.Log.Info().Int("size", cap(q.ch)).Msg("status queue started")
		for {
			select {
			case e := <-q.ch:
				q.write(e)
			case <-ctx.Done():
				// stopped is closed before the last drain, a late sender drains itself
				close(q.stopped)
				q.drain()
				goapp.Log.Info().Msg("status queue stopped")
				return
			}
		}
	}()
	return res
}

// Report implements Reporter
func (q *Queue) Report(ctx context.Context, ID string, st Status, msg string, progress int) error {
	e := &event{ID: ID, st: st, msg: msg, progress: progress}
	if st.IsTerminal() {
		e.done = make(chan error, 1)
	}
	select {
	case <-q.stopped:
		return ErrQueueClosed
	default:
	}
	return q.send(ctx, e)
}

func (q *Queue) send(ctx context.Context, e *event) error {
	select {
	case q.ch <- e:
	case <-q.stopped:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-q.stopped:
		q.drain()
	default:
	}
	if e.done == nil {
		return nil
	}
	select {
	case err := <-e.done:
		return err
	case <-q.stopped:
		select {
		case err := <-e.done:
			return err
		default:
			return ErrQueueClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) drain() {
	for {
		select {
		case e := <-q.ch:
			q.write(e)
		default:
			return
		}
	}
}

func (q *Queue) write(e *event) {
	ctx, cf := context.WithTimeout(context.Background(), q.writeTimeout)
	defer cf()
	err := q.next.Report(ctx, e.ID, e.st, e.msg, e.progress)
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", e.ID).Str("status", e.st.String()).Msg("can't write status")
	}
	if e.done != nil {
		e.done <- err
	}
}
