package events

import (
	"fmt"
	"time"
)

const (
	MonthClosedTopic     = "hr.pointage.month.v1"
	MonthClosedEventType = "month_closed"
)

// MonthClosedEvent is emitted once per successful close, for payroll consumers.
type MonthClosedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	Month      int       `json:"month"`
	Year       int       `json:"year"`
	Closed     int64     `json:"closed"`
	ClosedBy   string    `json:"closed_by,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e MonthClosedEvent) PeriodKey() string {
	return fmt.Sprintf("%04d-%02d", e.Year, e.Month)
}
