package hourbank

import (
	"net/http"

	"go-pointage/internal/shared/apperror"
	"go-pointage/internal/shared/response"
	"go-pointage/internal/timesheet"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("hourbank.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("hourbank.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("hour bank request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) GetBalance(c *gin.Context) {
	resp, err := h.service.GetBalance(c.Request.Context(), c.Param("employee_id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetLedger(c *gin.Context) {
	rows, err := h.service.GetLedger(c.Request.Context(), c.Param("employee_id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows, nil)
}

func (h *Handler) Withdraw(c *gin.Context) {
	month, year, err := timesheet.ParsePeriod(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http withdraw validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Withdraw(c.Request.Context(), c.Param("employee_id"), month, year, *req.Hours)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Deposit(c *gin.Context) {
	month, year, err := timesheet.ParsePeriod(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.DepositSurplus(c.Request.Context(), c.Param("employee_id"), month, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
