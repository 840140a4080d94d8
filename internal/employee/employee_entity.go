package employee

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Employee owns the weekly contract hours that drive each month's target.
type Employee struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EmployeeNumber string          `gorm:"size:32;not null;uniqueIndex:uq_employee_number"`
	FullName       string          `gorm:"size:150;not null"`
	Email          string          `gorm:"size:150;not null;uniqueIndex:uq_employee_email"`
	WeeklyHours    decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0;check:ck_employee_weekly_hours,weekly_hours >= 0 AND weekly_hours <= 168"`
	IsActive       bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Employee) TableName() string {
	return "employees"
}
