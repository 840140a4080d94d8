package closingerrors

import (
	"go-pointage/internal/shared/apperror"
	"net/http"
)

var (
	ErrInvalidStateTransition = apperror.New(
		apperror.CodeInvalidStateTransition,
		"Timesheet status does not allow this transition",
		http.StatusConflict,
	)
	ErrNotAllValidated = apperror.New(
		apperror.CodeNotAllValidated,
		"Every timesheet of the month must be validated before closing",
		http.StatusConflict,
	)
)
