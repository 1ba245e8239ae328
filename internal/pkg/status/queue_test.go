package status

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	ID       string
	st       Status
	progress int
}

type recReporter struct {
	lock  sync.Mutex
	calls []rec
	err   error
	wait  chan struct{}
}

func (r *recReporter) Report(ctx context.Context, ID string, st Status, msg string, progress int) error {
	if r.wait != nil {
		<-r.wait
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.calls = append(r.calls, rec{ID: ID, st: st, progress: progress})
	return r.err
}

func (r *recReporter) get() []rec {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]rec{}, r.calls...)
}

func TestNewQueue(t *testing.T) {
	_, err := NewQueue(nil, 10)
	assert.NotNil(t, err)
	_, err = NewQueue(&recReporter{}, 0)
	assert.NotNil(t, err)
	q, err := NewQueue(&recReporter{}, 1)
	assert.Nil(t, err)
	assert.NotNil(t, q)
}

func TestQueue_KeepsOrder(t *testing.T) {
	r := &recReporter{}
	q, _ := NewQueue(r, 5)
	ctx, cf := context.WithCancel(context.Background())
	done := q.Start(ctx)
	for i := 0; i < 10; i++ {
		require.Nil(t, q.Report(context.Background(), "1", Processing, "m", i*10))
	}
	require.Nil(t, q.Report(context.Background(), "1", Success, "text", 100))
	calls := r.get()
	require.Equal(t, 11, len(calls))
	for i := 0; i < 10; i++ {
		assert.Equal(t, i*10, calls[i].progress)
	}
	assert.Equal(t, Success, calls[10].st)
	cf()
	<-done
}

func TestQueue_TerminalReturnsError(t *testing.T) {
	r := &recReporter{err: fmt.Errorf("olia")}
	q, _ := NewQueue(r, 5)
	ctx, cf := context.WithCancel(context.Background())
	defer cf()
	q.Start(ctx)
	assert.Nil(t, q.Report(context.Background(), "1", Processing, "m", 10))
	assert.NotNil(t, q.Report(context.Background(), "1", Failed, "m", 100))
}

func TestQueue_DrainsOnStop(t *testing.T) {
	r := &recReporter{wait: make(chan struct{})}
	q, _ := NewQueue(r, 5)
	ctx, cf := context.WithCancel(context.Background())
	done := q.Start(ctx)
	for i := 0; i < 3; i++ {
		require.Nil(t, q.Report(context.Background(), "1", Processing, "m", i))
	}
	cf()
	close(r.wait)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue not stopped")
	}
	assert.Equal(t, 3, len(r.get()))
	assert.Equal(t, ErrQueueClosed, q.Report(context.Background(), "1", Processing, "m", 5))
}

func TestQueue_ReportCanceled(t *testing.T) {
	r := &recReporter{wait: make(chan struct{})}
	defer close(r.wait)
	q, _ := NewQueue(r, 1)
	ctx, cf := context.WithCancel(context.Background())
	defer cf()
	q.Start(ctx)
	rCtx, rCf := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer rCf()
	assert.NotNil(t, q.Report(rCtx, "1", Failed, "m", 100))
}

func TestQueue_LateReportIsWritten(t *testing.T) {
	r := &recReporter{}
	q, _ := NewQueue(r, 1)
	ctx, cf := context.WithCancel(context.Background())
	done := q.Start(ctx)
	cf()
	<-done
	written := 0
	for i := 0; i < 50; i++ {
		err := q.send(context.Background(), &event{ID: "1", st: Processing, progress: i})
		if err == nil {
			written++
		} else {
			assert.Equal(t, ErrQueueClosed, err)
		}
		assert.Equal(t, written, len(r.get()))
	}
}
