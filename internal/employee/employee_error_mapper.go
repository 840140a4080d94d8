package employee

import (
	"errors"
	"strings"

	employeeerrors "go-pointage/internal/employee/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// constraintErrors maps the employees table constraints to caller errors.
var constraintErrors = map[string]error{
	"uq_employee_number":       employeeerrors.ErrEmployeeNumberAlreadyExists,
	"uq_employee_email":        employeeerrors.ErrEmployeeAlreadyExists,
	"ck_employee_weekly_hours": employeeerrors.ErrInvalidWeeklyHours,
}

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return employeeerrors.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation || pgErr.Code == pgCheckViolation {
			if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
				return mapped
			}
		}
		return err
	}

	// drivers that only surface the message text
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "violates check constraint") {
		for name, mapped := range constraintErrors {
			if strings.Contains(msg, name) {
				return mapped
			}
		}
	}

	return err
}
