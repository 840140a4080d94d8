package employee

import "github.com/shopspring/decimal"

type CreateEmployeeRequest struct {
	FullName       string           `json:"full_name" binding:"required,max=150"`
	Email          string           `json:"email" binding:"required,email"`
	EmployeeNumber string           `json:"employee_number" binding:"omitempty,max=32"`
	WeeklyHours    *decimal.Decimal `json:"weekly_hours" binding:"required,hours"`
}

type UpdateEmployeeRequest struct {
	FullName    string           `json:"full_name" binding:"required,max=150"`
	Email       string           `json:"email" binding:"required,email"`
	WeeklyHours *decimal.Decimal `json:"weekly_hours" binding:"required,hours"`
	IsActive    *bool            `json:"is_active"`
}

type EmployeeResponse struct {
	ID             string          `json:"id"`
	EmployeeNumber string          `json:"employee_number"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email"`
	WeeklyHours    decimal.Decimal `json:"weekly_hours"`
	IsActive       bool            `json:"is_active"`
}
