package rbac

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-pointage/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =========================================
// Mock Service
// =========================================

type mockService struct {
	err error
}

func (m *mockService) LoadPolicy() error {
	return nil
}

func (m *mockService) Enforce(req domain.EnforceRequest) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return req.Role == domain.RoleSupervisor && req.Resource == "timesheet" && req.Action == "validate", nil
}

type apiEnvelope struct {
	Ok    bool                    `json:"ok"`
	Data  *domain.EnforceResponse `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func doEnforce(t *testing.T, svc Service, body string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/rbac/enforce", NewHandler(svc).Enforce)

	req, _ := http.NewRequest(http.MethodPost, "/rbac/enforce", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestHandler_Enforce(t *testing.T) {
	w, env := doEnforce(t, &mockService{}, `{"role":" SUPERVISOR ","resource":"timesheet","action":"validate"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Data)
	assert.True(t, env.Data.Allowed)
}

func TestHandler_Enforce_ValidationError(t *testing.T) {
	w, env := doEnforce(t, &mockService{}, `{"resource":"timesheet","action":"validate"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestHandler_Enforce_ServiceError(t *testing.T) {
	w, env := doEnforce(t, &mockService{err: errors.New("boom")}, `{"role":"SUPERVISOR","resource":"timesheet","action":"validate"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
}
