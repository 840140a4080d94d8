package apperror

const (
	// Client errors (4xx)
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeInvalidToken  = "INVALID_TOKEN"
	CodeTokenExpired  = "TOKEN_EXPIRED"
	CodeTooMany       = "TOO_MANY_REQUESTS"
	CodeProcessing    = "PROCESSING"
	CodeValidationErr = "VALIDATION_ERROR"

	// Pointage
	CodeInvalidCalendarInput    = "INVALID_CALENDAR_INPUT"
	CodeInvalidEntry            = "INVALID_ENTRY"
	CodeTimesheetLocked         = "TIMESHEET_LOCKED"
	CodeInsufficientBankBalance = "INSUFFICIENT_BANK_BALANCE"
	CodeInvalidStateTransition  = "INVALID_STATE_TRANSITION"
	CodeNotAllValidated         = "NOT_ALL_VALIDATED"

	// Server errors (5xx)
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)
