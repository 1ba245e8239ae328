package statusservice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/airenas/transcribo/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	wsService *WSConnKeeper
)

func initWSTest(t *testing.T) {
	wsService = NewWSConnKeeper(time.Minute)
}

func createTestConn(t *testing.T, id string, closeChan <-chan struct{}) *mockWSConn {
	t.Helper()
	connWSMock := &mockWSConn{}
	connWSMock.On("WriteJSON", mock.Anything).Return(nil)
	connWSMock.On("ReadMessage").Return(1, []byte(id), nil).Once()
	connWSMock.On("ReadMessage").Return(1, []byte(id), fmt.Errorf("err")).Run(func(args mock.Arguments) {
		<-closeChan
	})
	connWSMock.On("Close").Return(nil)
	return connWSMock
}

func Test_HandleConnection(t *testing.T) {
	initWSTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	go func() {
		err := wsService.HandleConnection(createTestConn(t, "1", closeCtx.Done()))
		assert.Nil(t, err)
	}()
	testHas(t, "1", 1)
	cf()
	testHas(t, "1", 0)
}

func testHas(t *testing.T, s string, i int) {
	t.Helper()
	ctx := test.Ctx(t)
	for {
		if wsService.Count(s) == i {
			break
		}
		select {
		case <-ctx.Done():
			require.Failf(t, "timeouted", "expected %d connections for %s", i, s)
		case <-time.After(time.Millisecond * 100):
		}
	}
}

func Test_HandleConnection_Several(t *testing.T) {
	initWSTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	for i := 0; i < 10; i++ {
		go func() {
			err := wsService.HandleConnection(createTestConn(t, "1", closeCtx.Done()))
			assert.Nil(t, err)
		}()
	}
	testHas(t, "1", 10)
	cf()
	testHas(t, "1", 0)
}

func Test_HandleConnection_SeveralDifferent(t *testing.T) {
	initWSTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	for i := 0; i < 10; i++ {
		_i := i
		go func() {
			err := wsService.HandleConnection(createTestConn(t, fmt.Sprintf("%d", _i), closeCtx.Done()))
			assert.Nil(t, err)
		}()
	}
	for i := 0; i < 10; i++ {
		testHas(t, fmt.Sprintf("%d", i), 1)
	}
	cf()
	for i := 0; i < 10; i++ {
		testHas(t, fmt.Sprintf("%d", i), 0)
	}
}

func Test_Broadcast(t *testing.T) {
	initWSTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	defer cf()
	c1 := createTestConn(t, "1", closeCtx.Done())
	c2 := createTestConn(t, "1", closeCtx.Done())
	c3 := createTestConn(t, "2", closeCtx.Done())
	for _, c := range []*mockWSConn{c1, c2, c3} {
		cl := c
		go func() { _ = wsService.HandleConnection(cl) }()
	}
	testHas(t, "1", 2)
	testHas(t, "2", 1)

	n, err := wsService.Broadcast("1", "olia")

	require.Nil(t, err)
	assert.Equal(t, 2, n)
	c1.AssertCalled(t, "WriteJSON", "olia")
	c2.AssertCalled(t, "WriteJSON", "olia")
	c3.AssertNotCalled(t, "WriteJSON", mock.Anything)
}

func Test_Broadcast_None(t *testing.T) {
	initWSTest(t)
	n, err := wsService.Broadcast("1", "olia")
	assert.Nil(t, err)
	assert.Equal(t, 0, n)
}

func Test_Broadcast_Fail(t *testing.T) {
	initWSTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	defer cf()
	c := &mockWSConn{}
	c.On("WriteJSON", mock.Anything).Return(fmt.Errorf("olia"))
	c.On("ReadMessage").Return(1, []byte("1"), nil).Once()
	c.On("ReadMessage").Return(1, []byte("1"), fmt.Errorf("err")).Run(func(args mock.Arguments) {
		<-closeCtx.Done()
	})
	c.On("Close").Return(nil)
	go func() { _ = wsService.HandleConnection(c) }()
	testHas(t, "1", 1)

	_, err := wsService.Broadcast("1", "olia")

	assert.NotNil(t, err)
}
