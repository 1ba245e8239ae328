package clean

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airenas/transcribo/internal/pkg/test"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var (
	cleanerMock *mockCleaner
	tData       *Data
	tEcho       *echo.Echo
)

func initTest(t *testing.T) {
	cleanerMock = newCleanMock(false)
	tData = &Data{}
	tData.Cleaner = cleanerMock
	tData.AllCleaner = cleanerMock
	tEcho = initRoutes(tData)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/delete/1", nil)
	test.Code(t, tEcho, req, http.StatusMethodNotAllowed)
}

func Test_Clean(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodDelete, "/delete/job-1-a", nil)
	test.Code(t, tEcho, req, http.StatusOK)
	cleanerMock.AssertCalled(t, "Clean", mock.Anything, "job-1-a")
}

func Test_Clean_Fails(t *testing.T) {
	initTest(t)
	tData.Cleaner = newCleanMock(true)
	tEcho = initRoutes(tData)
	req := httptest.NewRequest(http.MethodDelete, "/delete/1", nil)
	test.Code(t, tEcho, req, http.StatusInternalServerError)
}

func Test_CleanAll(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodDelete, "/delete", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[deleteAllResult](t, resp.Result())
	assert.Equal(t, 2, res.Deleted)
}

func Test_CleanAll_Fails(t *testing.T) {
	initTest(t)
	tData.AllCleaner = newCleanMock(true)
	tEcho = initRoutes(tData)
	req := httptest.NewRequest(http.MethodDelete, "/delete", nil)
	test.Code(t, tEcho, req, http.StatusInternalServerError)
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, http.StatusOK)
}

func Test_validate(t *testing.T) {
	initTest(t)
	type args struct {
		data *Data
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{data: &Data{Cleaner: cleanerMock, AllCleaner: cleanerMock}}, wantErr: false},
		{name: "Fail Cleaner", args: args{data: &Data{AllCleaner: cleanerMock}}, wantErr: true},
		{name: "Fail AllCleaner", args: args{data: &Data{Cleaner: cleanerMock}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type mockCleaner struct{ mock.Mock }

func (m *mockCleaner) Clean(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCleaner) CleanAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newCleanMock(fail bool) *mockCleaner {
	res := &mockCleaner{}
	var err error
	n := 2
	if fail {
		err = errors.New("olia")
		n = 0
	}
	res.On("Clean", mock.Anything, mock.Anything).Return(err)
	res.On("CleanAll", mock.Anything).Return(n, err)
	return res
}
