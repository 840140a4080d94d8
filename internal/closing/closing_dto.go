package closing

import (
	"go-pointage/internal/hourbank"
	"go-pointage/internal/timesheet"
)

type ValidateResponse struct {
	Timesheet timesheet.TimesheetResponse   `json:"timesheet"`
	Deposit   *hourbank.LedgerEntryResponse `json:"deposit"`
}

type CloseResponse struct {
	Month  int   `json:"month"`
	Year   int   `json:"year"`
	Closed int64 `json:"closed"`
}
