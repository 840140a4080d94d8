package hourbank_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-pointage/internal/hourbank"
	hourbankerrors "go-pointage/internal/hourbank/errors"
	"go-pointage/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBankService struct {
	BalanceFn  func(ctx context.Context, employeeID string) (hourbank.BalanceResponse, error)
	LedgerFn   func(ctx context.Context, employeeID string) ([]hourbank.LedgerEntryResponse, error)
	WithdrawFn func(ctx context.Context, employeeID string, month, year int, hours decimal.Decimal) (hourbank.MovementResponse, error)
	DepositFn  func(ctx context.Context, employeeID string, month, year int) (hourbank.MovementResponse, error)
}

func (f *fakeBankService) GetBalance(ctx context.Context, employeeID string) (hourbank.BalanceResponse, error) {
	return f.BalanceFn(ctx, employeeID)
}
func (f *fakeBankService) GetLedger(ctx context.Context, employeeID string) ([]hourbank.LedgerEntryResponse, error) {
	return f.LedgerFn(ctx, employeeID)
}
func (f *fakeBankService) Withdraw(ctx context.Context, employeeID string, month, year int, hours decimal.Decimal) (hourbank.MovementResponse, error) {
	return f.WithdrawFn(ctx, employeeID, month, year, hours)
}
func (f *fakeBankService) DepositSurplus(ctx context.Context, employeeID string, month, year int) (hourbank.MovementResponse, error) {
	return f.DepositFn(ctx, employeeID, month, year)
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestRouter(svc hourbank.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	apperror.Init()
	h := hourbank.NewHandler(svc)
	r := gin.New()
	r.GET("/hour-bank/:employee_id", h.GetBalance)
	r.GET("/hour-bank/:employee_id/ledger", h.GetLedger)
	r.POST("/timesheets/:employee_id/:year/:month/bank/withdraw", h.Withdraw)
	r.POST("/timesheets/:employee_id/:year/:month/bank/deposit", h.Deposit)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestHourBankHandler_Withdraw(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeBankService{
			WithdrawFn: func(_ context.Context, employeeID string, month, year int, h decimal.Decimal) (hourbank.MovementResponse, error) {
				assert.Equal(t, "emp-1", employeeID)
				assert.Equal(t, 1, month)
				assert.Equal(t, 2024, year)
				assert.True(t, h.Equal(hours("12")))
				return hourbank.MovementResponse{Balance: hours("15")}, nil
			},
		}
		w, env := do(t, newTestRouter(svc), http.MethodPost, "/timesheets/emp-1/2024/1/bank/withdraw", `{"hours":"12"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(env.Data), `"balance":"15"`)
	})

	t.Run("missing hours", func(t *testing.T) {
		w, env := do(t, newTestRouter(&fakeBankService{}), http.MethodPost, "/timesheets/emp-1/2024/1/bank/withdraw", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "hours", env.Error.Details["field"])
	})

	t.Run("hours finer than two decimals", func(t *testing.T) {
		w, env := do(t, newTestRouter(&fakeBankService{}), http.MethodPost, "/timesheets/emp-1/2024/1/bank/withdraw", `{"hours":"1.005"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "hours", env.Error.Details["field"])
	})

	t.Run("insufficient balance", func(t *testing.T) {
		svc := &fakeBankService{
			WithdrawFn: func(context.Context, string, int, int, decimal.Decimal) (hourbank.MovementResponse, error) {
				return hourbank.MovementResponse{}, hourbankerrors.ErrInsufficientBankBalance.WithDetails(map[string]any{"balance": "3"})
			},
		}
		w, env := do(t, newTestRouter(svc), http.MethodPost, "/timesheets/emp-1/2024/1/bank/withdraw", `{"hours":"12"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "INSUFFICIENT_BANK_BALANCE", env.Error.Code)
		assert.Equal(t, "3", env.Error.Details["balance"])
	})

	t.Run("bad period", func(t *testing.T) {
		w, _ := do(t, newTestRouter(&fakeBankService{}), http.MethodPost, "/timesheets/emp-1/2024/0/bank/withdraw", `{"hours":"1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHourBankHandler_Reads(t *testing.T) {
	svc := &fakeBankService{
		BalanceFn: func(_ context.Context, employeeID string) (hourbank.BalanceResponse, error) {
			return hourbank.BalanceResponse{EmployeeID: employeeID, Balance: hours("6.5")}, nil
		},
		LedgerFn: func(context.Context, string) ([]hourbank.LedgerEntryResponse, error) {
			return []hourbank.LedgerEntryResponse{{ID: "l-1", Delta: hours("6.5"), Reason: hourbank.ReasonDeposit}}, nil
		},
		DepositFn: func(context.Context, string, int, int) (hourbank.MovementResponse, error) {
			return hourbank.MovementResponse{}, nil
		},
	}
	r := newTestRouter(svc)

	w, env := do(t, r, http.MethodGet, "/hour-bank/emp-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"balance":"6.5"`)

	w, env = do(t, r, http.MethodGet, "/hour-bank/emp-1/ledger", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"reason":"deposit"`)

	w, env = do(t, r, http.MethodPost, "/timesheets/emp-1/2024/1/bank/deposit", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"entry":null`)
}
