package timesheeterrors

import (
	"go-pointage/internal/shared/apperror"
	"net/http"
)

var (
	ErrInvalidEntry = apperror.New(
		apperror.CodeInvalidEntry,
		"Invalid daily entry",
		http.StatusBadRequest,
	)
	ErrTimesheetLocked = apperror.New(
		apperror.CodeTimesheetLocked,
		"Timesheet is no longer open for changes",
		http.StatusConflict,
	)
	ErrTimesheetNotFound = apperror.New(
		apperror.CodeNotFound,
		"Timesheet not found",
		http.StatusNotFound,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid employee ID",
		http.StatusBadRequest,
	)
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"Employee not found",
		http.StatusNotFound,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidEntry,
		"Invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
)

// InvalidEntry returns ErrInvalidEntry carrying the offending entry.
func InvalidEntry(details map[string]any) *apperror.AppError {
	return ErrInvalidEntry.WithDetails(details)
}
