package hourbank

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-pointage/internal/audit"
	"go-pointage/internal/calendar"
	hourbankerrors "go-pointage/internal/hourbank/errors"
	"go-pointage/internal/shared/contextutil"
	"go-pointage/internal/shared/keylock"
	"go-pointage/internal/timesheet"
	timesheeterrors "go-pointage/internal/timesheet/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=hourbank_service.go -destination=mock/hourbank_service_mock.go -package=mock
type Service interface {
	GetBalance(ctx context.Context, employeeID string) (BalanceResponse, error)
	GetLedger(ctx context.Context, employeeID string) ([]LedgerEntryResponse, error)
	Withdraw(ctx context.Context, employeeID string, month, year int, hours decimal.Decimal) (MovementResponse, error)
	DepositSurplus(ctx context.Context, employeeID string, month, year int) (MovementResponse, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	tsRepo timesheet.Repository
	loader *timesheet.Loader
	ledger *Ledger
	locks  *keylock.Locker
	audit  audit.Logger
	rdb    *redis.Client
	logger *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	tsRepo timesheet.Repository,
	loader *timesheet.Loader,
	locks *keylock.Locker,
	auditLogger audit.Logger,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("hourbank.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("hourbank.service")
	}
	if auditLogger == nil {
		auditLogger = audit.Nop()
	}
	return &service{
		db:     db,
		repo:   repo,
		tsRepo: tsRepo,
		loader: loader,
		ledger: NewLedger(repo),
		locks:  locks,
		audit:  auditLogger,
		rdb:    rdb,
		logger: l,
	}
}

func (s *service) ensureEmployee(ctx context.Context, employeeID string) error {
	if _, err := uuid.Parse(employeeID); err != nil {
		return timesheeterrors.ErrInvalidEmployeeID
	}
	if _, err := s.tsRepo.FindEmployee(ctx, employeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return timesheeterrors.ErrEmployeeNotFound
		}
		return err
	}
	return nil
}

func (s *service) GetBalance(ctx context.Context, employeeID string) (BalanceResponse, error) {
	s.logger.Debug("get hour bank balance requested", zap.String("employee_id", employeeID))
	if err := s.ensureEmployee(ctx, employeeID); err != nil {
		return BalanceResponse{}, err
	}
	balance, err := s.repo.Balance(ctx, employeeID)
	if err != nil {
		s.logger.Error("get hour bank balance failed", zap.Error(err))
		return BalanceResponse{}, err
	}
	return BalanceResponse{EmployeeID: employeeID, Balance: balance}, nil
}

func (s *service) GetLedger(ctx context.Context, employeeID string) ([]LedgerEntryResponse, error) {
	s.logger.Debug("get hour bank ledger requested", zap.String("employee_id", employeeID))
	if err := s.ensureEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	rows, err := s.repo.FindByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.Error("get hour bank ledger failed", zap.Error(err))
		return nil, err
	}
	res := make([]LedgerEntryResponse, len(rows))
	for i, r := range rows {
		res[i] = MapToResponse(r)
	}
	return res, nil
}

func (s *service) Withdraw(ctx context.Context, employeeID string, month, year int, hours decimal.Decimal) (MovementResponse, error) {
	s.logger.Debug("withdraw bank hours requested",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("employee_id", employeeID),
		zap.Int("month", month),
		zap.Int("year", year),
		zap.String("hours", hours.String()),
	)
	if !hours.IsPositive() {
		return MovementResponse{}, hourbankerrors.ErrInvalidHours
	}
	if !calendar.FitsHoursPlaces(hours) {
		return MovementResponse{}, hourbankerrors.ErrHoursPrecision
	}
	return s.move(ctx, "withdraw", employeeID, month, year, func(l *Ledger, ts *timesheet.MonthlyTimesheet) (*LedgerEntry, error) {
		return l.Withdraw(ctx, ts, hours)
	})
}

func (s *service) DepositSurplus(ctx context.Context, employeeID string, month, year int) (MovementResponse, error) {
	s.logger.Debug("deposit surplus requested",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("employee_id", employeeID),
		zap.Int("month", month),
		zap.Int("year", year),
	)
	return s.move(ctx, "deposit", employeeID, month, year, func(l *Ledger, ts *timesheet.MonthlyTimesheet) (*LedgerEntry, error) {
		return l.DepositSurplus(ctx, ts)
	})
}

type movement func(l *Ledger, ts *timesheet.MonthlyTimesheet) (*LedgerEntry, error)

func (s *service) move(ctx context.Context, action, employeeID string, month, year int, apply movement) (MovementResponse, error) {
	if err := calendar.ValidatePeriod(month, year); err != nil {
		return MovementResponse{}, err
	}
	if _, err := uuid.Parse(employeeID); err != nil {
		return MovementResponse{}, timesheeterrors.ErrInvalidEmployeeID
	}

	unlock := s.locks.LockEmployee(employeeID, month, year)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error(action+" bank hours begin tx failed", zap.Error(err))
		return MovementResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.tsRepo.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	ts, _, err := s.loader.WithTx(tx).Acquire(ctx, employeeID, month, year)
	if err != nil {
		s.logger.Warn(action+" bank hours acquire failed", zap.String("employee_id", employeeID), zap.Error(err))
		return MovementResponse{}, err
	}

	entry, err := apply(ledger, ts)
	if err != nil {
		s.logger.Warn(action+" bank hours rejected",
			zap.String("timesheet_id", ts.ID.String()),
			zap.Error(err),
		)
		return MovementResponse{}, err
	}

	if entry != nil {
		if err := qtx.Update(ctx, ts); err != nil {
			s.logger.Error(action+" bank hours update timesheet failed", zap.Error(err))
			return MovementResponse{}, err
		}
	}
	balance, err := ledger.Balance(ctx, employeeID)
	if err != nil {
		return MovementResponse{}, err
	}
	entries, err := qtx.FindEntries(ctx, ts.ID)
	if err != nil {
		return MovementResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error(action+" bank hours commit failed", zap.Error(err))
		return MovementResponse{}, err
	}

	resp := MovementResponse{
		Balance:   balance,
		Timesheet: timesheet.MapToResponse(*ts, entries),
	}
	if entry == nil {
		s.logger.Info(action+" bank hours moved nothing", zap.String("timesheet_id", ts.ID.String()))
		return resp, nil
	}

	e := MapToResponse(*entry)
	resp.Entry = &e
	timesheet.InvalidateOverview(ctx, s.rdb, s.logger, month, year)
	s.audit.Log(ctx, audit.Record{
		EntityType: audit.EntityHourBank,
		EntityID:   entry.ID.String(),
		Action:     action,
		Payload: map[string]any{
			"employee_id":       employeeID,
			"timesheet_id":      ts.ID.String(),
			"month":             month,
			"year":              year,
			"delta":             entry.Delta.String(),
			"resulting_balance": entry.ResultingBalance.String(),
		},
	})
	s.logger.Info(action+" bank hours success",
		zap.String("employee_id", employeeID),
		zap.String("delta", entry.Delta.String()),
		zap.String("balance", entry.ResultingBalance.String()),
	)
	return resp, nil
}

func MapToResponse(e LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:               e.ID.String(),
		EmployeeID:       e.EmployeeID.String(),
		TimesheetID:      e.TimesheetID.String(),
		Month:            e.Month,
		Year:             e.Year,
		Delta:            e.Delta,
		Reason:           e.Reason,
		ResultingBalance: e.ResultingBalance,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
}
