package closing

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
	l := zap.L().Named("closing.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("closing.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("closing request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Validate(c *gin.Context) {
	month, year, err := timesheet.ParsePeriod(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.Validate(c.Request.Context(), c.Param("employee_id"), month, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Close(c *gin.Context) {
	month, year, err := timesheet.ParsePeriod(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	h.logger.Info("http close month", zap.Int("month", month), zap.Int("year", year))

	resp, err := h.service.Close(c.Request.Context(), month, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
