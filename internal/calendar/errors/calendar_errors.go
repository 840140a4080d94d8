package calendarerrors

import (
	"go-pointage/internal/shared/apperror"
	"net/http"
)

var (
	ErrInvalidCalendarInput = apperror.New(
		apperror.CodeInvalidCalendarInput,
		"Month must be between 1 and 12 and year must be positive",
		http.StatusBadRequest,
	)
	ErrInvalidWeeklyHours = apperror.New(
		apperror.CodeInvalidCalendarInput,
		"Weekly hours must not be negative",
		http.StatusBadRequest,
	)
)
