package hourbank

import (
	"context"
	"database/sql"

	"go-pointage/internal/timesheet"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

//go:generate mockgen -source=hourbank_repo.go -destination=mock/hourbank_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	// LockEmployee takes a transaction scoped advisory lock on the employee's ledger.
	LockEmployee(ctx context.Context, employeeID string) error
	Balance(ctx context.Context, employeeID string) (decimal.Decimal, error)
	Append(ctx context.Context, e *LedgerEntry) error
	FindByEmployee(ctx context.Context, employeeID string) ([]LedgerEntry, error)
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

func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) LockEmployee(ctx context.Context, employeeID string) error {
	return r.conn(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", employeeID).Error
}

func (r *repository) Balance(ctx context.Context, employeeID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.conn(ctx).
		Model(&LedgerEntry{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("employee_id = ?", employeeID).
		Row().
		Scan(&balance)
	return balance, err
}

func (r *repository) Append(ctx context.Context, e *LedgerEntry) error {
	return r.conn(ctx).Omit("seq").Create(e).Error
}

func (r *repository) FindByEmployee(ctx context.Context, employeeID string) ([]LedgerEntry, error) {
	var rows []LedgerEntry
	err := r.conn(ctx).
		Where("employee_id = ?", employeeID).
		Order("seq ASC").
		Find(&rows).Error
	return rows, err
}

type balanceReader struct {
	repo Repository
}

// NewBalanceReader adapts the ledger to timesheet.BalanceReader.
func NewBalanceReader(repo Repository) timesheet.BalanceReader {
	return &balanceReader{repo: repo}
}

func (b *balanceReader) WithTx(tx *sql.Tx) timesheet.BalanceReader {
	return &balanceReader{repo: b.repo.WithTx(tx)}
}

func (b *balanceReader) Balance(ctx context.Context, employeeID string) (decimal.Decimal, error) {
	return b.repo.Balance(ctx, employeeID)
}
