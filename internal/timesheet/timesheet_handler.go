package timesheet

import (
	"net/http"
	"strconv"
	"time"

	"go-pointage/internal/calendar"
	calendarerrors "go-pointage/internal/calendar/errors"
	"go-pointage/internal/shared/apperror"
	"go-pointage/internal/shared/response"
	timesheeterrors "go-pointage/internal/timesheet/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("timesheet.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("timesheet.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("timesheet request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.Error(err),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// ParsePeriod reads :year and :month path params.
func ParsePeriod(c *gin.Context) (month, year int, err error) {
	year, yErr := strconv.Atoi(c.Param("year"))
	month, mErr := strconv.Atoi(c.Param("month"))
	if yErr != nil || mErr != nil {
		return 0, 0, calendarerrors.ErrInvalidCalendarInput
	}
	if err := calendar.ValidatePeriod(month, year); err != nil {
		return 0, 0, err
	}
	return month, year, nil
}

func toEntryInput(req DailyEntryRequest, index *int) (EntryInput, error) {
	date, err := time.Parse(dateLayout, req.EntryDate)
	if err != nil {
		d := map[string]any{"entry_date": req.EntryDate}
		if index != nil {
			d["index"] = *index
		}
		return EntryInput{}, timesheeterrors.ErrInvalidDateFormat.WithDetails(d)
	}
	return EntryInput{
		Date:    date,
		Hours:   *req.Hours,
		DayType: req.DayType,
		Note:    req.Note,
	}, nil
}

func (h *Handler) GetOverview(c *gin.Context) {
	month, mErr := strconv.Atoi(c.Query("month"))
	year, yErr := strconv.Atoi(c.Query("year"))
	if mErr != nil || yErr != nil {
		h.writeServiceError(c, calendarerrors.ErrInvalidCalendarInput)
		return
	}
	h.logger.Debug("http get monthly overview", zap.Int("month", month), zap.Int("year", year))

	rows, err := h.service.GetMonthlyOverview(c.Request.Context(), month, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	items, meta := response.Paginate(rows, page, pageSize)
	response.Success(c, http.StatusOK, items, &meta)
}

func (h *Handler) GetEmployeeMonth(c *gin.Context) {
	month, year, err := ParsePeriod(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	employeeID := c.Param("employee_id")

	resp, err := h.service.GetMonthlyTimesheet(c.Request.Context(), employeeID, month, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) OpenMonth(c *gin.Context) {
	month, year, err := ParsePeriod(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.OpenMonth(c.Request.Context(), c.Param("employee_id"), month, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) SaveEntry(c *gin.Context) {
	month, year, err := ParsePeriod(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	var req DailyEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http save daily entry validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}
	in, err := toEntryInput(req, nil)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if !calendar.Contains(in.Date, month, year) {
		h.writeServiceError(c, timesheeterrors.InvalidEntry(map[string]any{
			"date":   req.EntryDate,
			"reason": "entry date is outside the requested month",
		}))
		return
	}

	resp, err := h.service.UpsertDailyEntry(c.Request.Context(), c.Param("employee_id"), in)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) SaveEntriesBatch(c *gin.Context) {
	month, year, err := ParsePeriod(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	var req BatchEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http save daily entries batch validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	inputs := make([]EntryInput, len(req.Entries))
	for i, e := range req.Entries {
		idx := i
		in, err := toEntryInput(e, &idx)
		if err != nil {
			h.writeServiceError(c, err)
			return
		}
		if !calendar.Contains(in.Date, month, year) {
			h.writeServiceError(c, timesheeterrors.InvalidEntry(map[string]any{
				"index":  i,
				"date":   e.EntryDate,
				"reason": "entry date is outside the requested month",
			}))
			return
		}
		inputs[i] = in
	}

	resp, err := h.service.BatchUpsert(c.Request.Context(), c.Param("employee_id"), inputs)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
