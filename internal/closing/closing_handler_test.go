package closing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-pointage/internal/closing"
	closingerrors "go-pointage/internal/closing/errors"
	"go-pointage/internal/timesheet"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClosingService struct {
	ValidateFn func(ctx context.Context, employeeID string, month, year int) (closing.ValidateResponse, error)
	CloseFn    func(ctx context.Context, month, year int) (closing.CloseResponse, error)
}

func (f *fakeClosingService) Validate(ctx context.Context, employeeID string, month, year int) (closing.ValidateResponse, error) {
	return f.ValidateFn(ctx, employeeID, month, year)
}
func (f *fakeClosingService) Close(ctx context.Context, month, year int) (closing.CloseResponse, error) {
	return f.CloseFn(ctx, month, year)
}

type envelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func call(t *testing.T, svc closing.Service, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := closing.NewHandler(svc)
	r := gin.New()
	r.POST("/timesheets/:employee_id/:year/:month/validate", h.Validate)
	r.POST("/months/:year/:month/close", h.Close)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestClosingHandler_Validate(t *testing.T) {
	svc := &fakeClosingService{
		ValidateFn: func(_ context.Context, employeeID string, month, year int) (closing.ValidateResponse, error) {
			assert.Equal(t, "emp-1", employeeID)
			assert.Equal(t, 2, month)
			assert.Equal(t, 2024, year)
			return closing.ValidateResponse{Timesheet: timesheet.TimesheetResponse{Status: timesheet.StatusValidated}}, nil
		},
	}

	w, env := call(t, svc, "/timesheets/emp-1/2024/2/validate")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"status":"validated"`)

	w, env = call(t, svc, "/timesheets/emp-1/2024/99/validate")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CALENDAR_INPUT", env.Error.Code)
}

func TestClosingHandler_Close(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeClosingService{
			CloseFn: func(_ context.Context, month, year int) (closing.CloseResponse, error) {
				return closing.CloseResponse{Month: month, Year: year, Closed: 4}, nil
			},
		}
		w, env := call(t, svc, "/months/2024/1/close")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"month":1,"year":2024,"closed":4}`, string(env.Data))
	})

	t.Run("not all validated", func(t *testing.T) {
		svc := &fakeClosingService{
			CloseFn: func(context.Context, int, int) (closing.CloseResponse, error) {
				return closing.CloseResponse{}, closingerrors.ErrNotAllValidated.WithDetails(map[string]any{
					"employee_ids": []string{"emp-2"},
				})
			},
		}
		w, env := call(t, svc, "/months/2024/1/close")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "NOT_ALL_VALIDATED", env.Error.Code)
		assert.Equal(t, []any{"emp-2"}, env.Error.Details["employee_ids"])
	})
}
