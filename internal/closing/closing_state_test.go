package closing

import (
	"testing"

	"go-pointage/internal/timesheet"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowedStatusTransition(t *testing.T) {
	statuses := []string{timesheet.StatusOpen, timesheet.StatusValidated, timesheet.StatusClosed}
	allowed := map[[2]string]bool{
		{timesheet.StatusOpen, timesheet.StatusValidated}:   true,
		{timesheet.StatusValidated, timesheet.StatusClosed}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]string{from, to}], isAllowedStatusTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, isAllowedStatusTransition("", timesheet.StatusValidated))
	assert.False(t, isAllowedStatusTransition(timesheet.StatusOpen, "archived"))
}
