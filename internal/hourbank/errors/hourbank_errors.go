package hourbankerrors

import (
	"go-pointage/internal/shared/apperror"
	"net/http"
)

var (
	ErrInsufficientBankBalance = apperror.New(
		apperror.CodeInsufficientBankBalance,
		"Hour bank balance is insufficient for this withdrawal",
		http.StatusConflict,
	)
	ErrInvalidHours = apperror.New(
		apperror.CodeInvalidEntry,
		"Hours must be greater than zero",
		http.StatusBadRequest,
	)
	ErrHoursPrecision = apperror.New(
		apperror.CodeInvalidEntry,
		"Hours must have at most two decimal places",
		http.StatusBadRequest,
	)
)
