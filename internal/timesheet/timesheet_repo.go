package timesheet

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=timesheet_repo.go -destination=mock/timesheet_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindEmployee(ctx context.Context, employeeID string) (*EmployeeRef, error)
	FindActiveEmployees(ctx context.Context) ([]EmployeeRef, error)
	FindByEmployeeMonth(ctx context.Context, employeeID string, month, year int) (*MonthlyTimesheet, error)
	FindByEmployeeMonthForUpdate(ctx context.Context, employeeID string, month, year int) (*MonthlyTimesheet, error)
	// Create inserts ts unless the (employee, month, year) row already exists; created reports which happened.
	Create(ctx context.Context, ts *MonthlyTimesheet) (created bool, err error)
	Update(ctx context.Context, ts *MonthlyTimesheet) error
	FindEntries(ctx context.Context, timesheetID uuid.UUID) ([]DailyEntry, error)
	UpsertEntry(ctx context.Context, e *DailyEntry) error
	FindAllByMonth(ctx context.Context, month, year int) ([]MonthlyTimesheet, error)
	FindAllByMonthForUpdate(ctx context.Context, month, year int) ([]MonthlyTimesheet, error)
	// CloseMonth moves every validated timesheet of the month to closed.
	CloseMonth(ctx context.Context, month, year int, closedBy string, closedAt time.Time) (int64, error)
	MonthClosed(ctx context.Context, month, year int) (bool, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// conn routes statements through the bound transaction when there is one.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) FindEmployee(ctx context.Context, employeeID string) (*EmployeeRef, error) {
	var e EmployeeRef
	err := r.conn(ctx).First(&e, "id = ?", employeeID).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) FindActiveEmployees(ctx context.Context) ([]EmployeeRef, error) {
	var rows []EmployeeRef
	err := r.conn(ctx).
		Where("is_active = ?", true).
		Order("full_name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindByEmployeeMonth(ctx context.Context, employeeID string, month, year int) (*MonthlyTimesheet, error) {
	var ts MonthlyTimesheet
	err := r.conn(ctx).
		Where("employee_id = ? AND month = ? AND year = ?", employeeID, month, year).
		First(&ts).Error
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func (r *repository) FindByEmployeeMonthForUpdate(ctx context.Context, employeeID string, month, year int) (*MonthlyTimesheet, error) {
	var ts MonthlyTimesheet
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("employee_id = ? AND month = ? AND year = ?", employeeID, month, year).
		First(&ts).Error
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func (r *repository) Create(ctx context.Context, ts *MonthlyTimesheet) (bool, error) {
	res := r.conn(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ts)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Update(ctx context.Context, ts *MonthlyTimesheet) error {
	return r.conn(ctx).Save(ts).Error
}

func (r *repository) FindEntries(ctx context.Context, timesheetID uuid.UUID) ([]DailyEntry, error) {
	var rows []DailyEntry
	err := r.conn(ctx).
		Where("timesheet_id = ?", timesheetID).
		Order("entry_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpsertEntry(ctx context.Context, e *DailyEntry) error {
	return r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "timesheet_id"}, {Name: "entry_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"hours", "day_type", "note", "updated_at"}),
		}).
		Create(e).Error
}

func (r *repository) FindAllByMonth(ctx context.Context, month, year int) ([]MonthlyTimesheet, error) {
	var rows []MonthlyTimesheet
	err := r.conn(ctx).
		Where("month = ? AND year = ?", month, year).
		Order("employee_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindAllByMonthForUpdate(ctx context.Context, month, year int) ([]MonthlyTimesheet, error) {
	var rows []MonthlyTimesheet
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("month = ? AND year = ?", month, year).
		Order("employee_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CloseMonth(ctx context.Context, month, year int, closedBy string, closedAt time.Time) (int64, error) {
	res := r.conn(ctx).
		Model(&MonthlyTimesheet{}).
		Where("month = ? AND year = ? AND status = ?", month, year, StatusValidated).
		Updates(map[string]any{
			"status":     StatusClosed,
			"closed_at":  closedAt,
			"closed_by":  closedBy,
			"updated_at": closedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MonthClosed(ctx context.Context, month, year int) (bool, error) {
	var n int64
	err := r.conn(ctx).
		Model(&MonthlyTimesheet{}).
		Where("month = ? AND year = ? AND status = ?", month, year, StatusClosed).
		Count(&n).Error
	return n > 0, err
}
