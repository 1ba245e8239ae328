package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"
)

type testMsg struct {
	ID string `json:"id"`
}

type testData struct {
	calls int
	err   error
	got   string
}

func handle(ctx context.Context, m *testMsg, d *testData) error {
	d.calls++
	d.got = m.ID
	return d.err
}

func TestCreate(t *testing.T) {
	d := &testData{}
	f := Create(d, handle, DefaultOpts[testMsg]())
	err := f(context.Background(), &gue.Job{Args: []byte(`{"id":"olia"}`)})
	require.Nil(t, err)
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, "olia", d.got)
}

func TestCreate_WrongMsg(t *testing.T) {
	d := &testData{}
	f := Create(d, handle, DefaultOpts[testMsg]())
	err := f(context.Background(), &gue.Job{Args: []byte(`{"id":`)})
	require.Nil(t, err)
	assert.Equal(t, 0, d.calls)
}

func TestCreate_Reschedule(t *testing.T) {
	d := &testData{err: fmt.Errorf("olia")}
	f := Create(d, handle, DefaultOpts[testMsg]().WithBackoff(NoBackoff()))
	err := f(context.Background(), &gue.Job{Args: []byte(`{"id":"1"}`)})
	require.NotNil(t, err)
	assert.Equal(t, 1, d.calls)
}

func TestCreate_NoRetry(t *testing.T) {
	d := &testData{err: fmt.Errorf("olia")}
	f := Create(d, handle, DefaultOpts[testMsg]().WithFailure(
		func(ctx context.Context, m *testMsg, err error, j *gue.Job) (bool, time.Duration, error) {
			return false, 0, nil
		}))
	err := f(context.Background(), &gue.Job{Args: []byte(`{"id":"1"}`)})
	assert.Nil(t, err)
}

func TestCreate_SkipAfterRetries(t *testing.T) {
	d := &testData{err: fmt.Errorf("olia")}
	f := Create(d, handle, DefaultOpts[testMsg]())
	err := f(context.Background(), &gue.Job{Args: []byte(`{"id":"1"}`), ErrorCount: 4})
	assert.Nil(t, err)
}

func Test_fullJitter(t *testing.T) {
	for i := 0; i < 100; i++ {
		got := fullJitter(time.Second)
		assert.True(t, got >= 0 && got < time.Second)
	}
}
