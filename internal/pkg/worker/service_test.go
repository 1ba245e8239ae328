package worker

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/transcribo/internal/pkg/messages"
	"github.com/airenas/transcribo/internal/pkg/pipeline"
	"github.com/airenas/transcribo/internal/pkg/status"
	"github.com/airenas/transcribo/internal/pkg/test"
	"github.com/airenas/transcribo/internal/pkg/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"
)

type runnerMock struct{ mock.Mock }

func (m *runnerMock) Run(ctx context.Context, req *pipeline.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

var (
	filerMock    *mocks.Filer
	reporterMock *mocks.Reporter
	runMock      *runnerMock
	srvData      *ServiceData
)

func initTest(t *testing.T) {
	t.Helper()
	filerMock = &mocks.Filer{}
	reporterMock = &mocks.Reporter{}
	runMock = &runnerMock{}
	srvData = &ServiceData{GueClient: &gue.Client{}, WorkerCount: 2, Runner: runMock, Reporter: reporterMock,
		Filer: filerMock, JobTimeout: time.Minute}
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	reporterMock.On("Report", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func newMsg() *messages.DocMessage {
	return &messages.DocMessage{QueueMessage: amessages.QueueMessage{ID: "1"}, SourceURL: "http://a/a.mp3",
		ForceChunked: true, Language: "lt"}
}

func Test_handleTranscribe(t *testing.T) {
	initTest(t)
	runMock.On("Run", mock.Anything, mock.Anything).Return("labas rytas visiems", nil)

	err := handleTranscribe(test.Ctx(t), newMsg(), srvData)

	require.Nil(t, err)
	require.Equal(t, 1, len(runMock.Calls))
	assert.Equal(t, &pipeline.Request{DocumentID: "1", SourceURL: "http://a/a.mp3", ForceChunked: true, Language: "lt"},
		runMock.Calls[0].Arguments.Get(1))
	require.Equal(t, 1, len(filerMock.Calls))
	assert.Equal(t, "1/transcript.txt", filerMock.Calls[0].Arguments.String(1))
	assert.Equal(t, "labas rytas visiems", test.RStr(t, filerMock.Calls[0].Arguments.Get(2).(io.Reader)))
}

func Test_handleTranscribe_NoFiler(t *testing.T) {
	initTest(t)
	srvData.Filer = nil
	runMock.On("Run", mock.Anything, mock.Anything).Return("labas rytas visiems", nil)

	err := handleTranscribe(test.Ctx(t), newMsg(), srvData)

	require.Nil(t, err)
	filerMock.AssertNotCalled(t, "SaveFile", mock.Anything, mock.Anything, mock.Anything)
}

func Test_handleTranscribe_FilerFails(t *testing.T) {
	initTest(t)
	filerMock.ExpectedCalls = nil
	filerMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("olia"))
	runMock.On("Run", mock.Anything, mock.Anything).Return("labas rytas visiems", nil)

	err := handleTranscribe(test.Ctx(t), newMsg(), srvData)

	assert.Nil(t, err)
}

func Test_handleTranscribe_Failed(t *testing.T) {
	initTest(t)
	runMock.On("Run", mock.Anything, mock.Anything).Return("", &pipeline.ReassemblyError{Segments: 2})

	err := handleTranscribe(test.Ctx(t), newMsg(), srvData)

	assert.Nil(t, err)
	filerMock.AssertNotCalled(t, "SaveFile", mock.Anything, mock.Anything, mock.Anything)
}

func Test_handleTranscribe_WrongRequest(t *testing.T) {
	initTest(t)
	runMock.On("Run", mock.Anything, mock.Anything).Return("", fmt.Errorf("%w: olia", pipeline.ErrWrongRequest))

	err := handleTranscribe(test.Ctx(t), newMsg(), srvData)

	assert.Nil(t, err)
}

func Test_handleTranscribe_Reschedule(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "interrupted", err: fmt.Errorf("%w: %w", pipeline.ErrInterrupted, context.Canceled), wantErr: true},
		{name: "final status", err: fmt.Errorf("%w: olia", pipeline.ErrFinalStatus), wantErr: true},
		{name: "timeout", err: fmt.Errorf("segments: %w", context.DeadlineExceeded), wantErr: false},
		{name: "failed", err: fmt.Errorf("olia"), wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			runMock.On("Run", mock.Anything, mock.Anything).Return("", tt.err)

			err := handleTranscribe(test.Ctx(t), newMsg(), srvData)

			assert.Equal(t, tt.wantErr, err != nil)
			filerMock.AssertNotCalled(t, "SaveFile", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func Test_handleTranscribe_Interrupted(t *testing.T) {
	initTest(t)
	ctx, cf := context.WithCancel(context.Background())
	runMock.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) { cf() }).
		Return("", fmt.Errorf("%w: %w", pipeline.ErrInterrupted, context.Canceled))

	err := handleTranscribe(ctx, newMsg(), srvData)

	assert.ErrorIs(t, err, pipeline.ErrInterrupted)
	reporterMock.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_failureHandler(t *testing.T) {
	initTest(t)
	f := failureHandler(reporterMock)

	retry, _, err := f(test.Ctx(t), newMsg(), fmt.Errorf("olia"), &gue.Job{ErrorCount: 0})
	assert.Nil(t, err)
	assert.True(t, retry)
	reporterMock.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	retry, _, err = f(test.Ctx(t), newMsg(), fmt.Errorf("olia"), &gue.Job{ErrorCount: maxJobRetries})
	assert.Nil(t, err)
	assert.False(t, retry)
	reporterMock.AssertCalled(t, "Report", mock.Anything, "1", status.Failed, pipeline.FailureMessage, 100)
}

func Test_failureHandler_ReportFails(t *testing.T) {
	initTest(t)
	reporterMock.ExpectedCalls = nil
	reporterMock.On("Report", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("olia"))
	f := failureHandler(reporterMock)

	_, _, err := f(test.Ctx(t), newMsg(), fmt.Errorf("olia"), &gue.Job{ErrorCount: maxJobRetries})
	assert.NotNil(t, err)
}

func Test_validate(t *testing.T) {
	initTest(t)
	tests := []struct {
		name    string
		f       func(*ServiceData)
		wantErr bool
	}{
		{name: "OK", f: func(d *ServiceData) {}, wantErr: false},
		{name: "No filer OK", f: func(d *ServiceData) { d.Filer = nil }, wantErr: false},
		{name: "No workers", f: func(d *ServiceData) { d.WorkerCount = 0 }, wantErr: true},
		{name: "No gue", f: func(d *ServiceData) { d.GueClient = nil }, wantErr: true},
		{name: "No runner", f: func(d *ServiceData) { d.Runner = nil }, wantErr: true},
		{name: "No reporter", f: func(d *ServiceData) { d.Reporter = nil }, wantErr: true},
		{name: "No timeout", f: func(d *ServiceData) { d.JobTimeout = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := *srvData
			tt.f(&d)
			if err := validate(&d); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
