package closing

import "go-pointage/internal/timesheet"

// open -> validated -> closed, nothing else.
func isAllowedStatusTransition(currentStatus, targetStatus string) bool {
	switch currentStatus {
	case timesheet.StatusOpen:
		return targetStatus == timesheet.StatusValidated
	case timesheet.StatusValidated:
		return targetStatus == timesheet.StatusClosed
	default:
		return false
	}
}
