package closing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-pointage/internal/audit"
	"go-pointage/internal/calendar"
	closingerrors "go-pointage/internal/closing/errors"
	"go-pointage/internal/events"
	"go-pointage/internal/hourbank"
	"go-pointage/internal/messaging/kafka"
	"go-pointage/internal/shared/contextutil"
	"go-pointage/internal/shared/keylock"
	"go-pointage/internal/timesheet"
	timesheeterrors "go-pointage/internal/timesheet/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//go:generate mockgen -source=closing_service.go -destination=mock/closing_service_mock.go -package=mock
type Service interface {
	Validate(ctx context.Context, employeeID string, month, year int) (ValidateResponse, error)
	Close(ctx context.Context, month, year int) (CloseResponse, error)
}

type service struct {
	db     *sql.DB
	tsRepo timesheet.Repository
	loader *timesheet.Loader
	ledger *hourbank.Ledger
	outbox kafka.OutboxRepository
	locks  *keylock.Locker
	audit  audit.Logger
	rdb    *redis.Client
	now    func() time.Time
	logger *zap.Logger
}

func NewService(
	db *sql.DB,
	tsRepo timesheet.Repository,
	loader *timesheet.Loader,
	ledger *hourbank.Ledger,
	outbox kafka.OutboxRepository,
	locks *keylock.Locker,
	auditLogger audit.Logger,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("closing.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("closing.service")
	}
	if auditLogger == nil {
		auditLogger = audit.Nop()
	}
	return &service{
		db:     db,
		tsRepo: tsRepo,
		loader: loader,
		ledger: ledger,
		outbox: outbox,
		locks:  locks,
		audit:  auditLogger,
		rdb:    rdb,
		now:    func() time.Time { return time.Now().UTC() },
		logger: l,
	}
}

func (s *service) Validate(ctx context.Context, employeeID string, month, year int) (ValidateResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	actor := contextutil.GetUserID(ctx)
	s.logger.Debug("validate month requested",
		zap.String("request_id", rid),
		zap.String("employee_id", employeeID),
		zap.Int("month", month),
		zap.Int("year", year),
		zap.String("actor", actor),
	)

	if err := calendar.ValidatePeriod(month, year); err != nil {
		return ValidateResponse{}, err
	}
	if _, err := uuid.Parse(employeeID); err != nil {
		return ValidateResponse{}, timesheeterrors.ErrInvalidEmployeeID
	}

	unlock := s.locks.LockEmployee(employeeID, month, year)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("validate month begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return ValidateResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.tsRepo.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	ts, _, err := s.loader.WithTx(tx).Acquire(ctx, employeeID, month, year)
	if err != nil {
		s.logger.Warn("validate month acquire failed", zap.String("employee_id", employeeID), zap.Error(err))
		return ValidateResponse{}, err
	}
	if !isAllowedStatusTransition(ts.Status, timesheet.StatusValidated) {
		s.logger.Warn("validate month invalid transition",
			zap.String("timesheet_id", ts.ID.String()),
			zap.String("from_status", ts.Status),
			zap.String("to_status", timesheet.StatusValidated),
		)
		return ValidateResponse{}, closingerrors.ErrInvalidStateTransition.WithDetails(map[string]any{
			"from": ts.Status,
			"to":   timesheet.StatusValidated,
		})
	}

	deposit, err := ledger.DepositSurplus(ctx, ts)
	if err != nil {
		s.logger.Error("validate month deposit surplus failed", zap.Error(err))
		return ValidateResponse{}, err
	}
	balance, err := ledger.Balance(ctx, employeeID)
	if err != nil {
		s.logger.Error("validate month read balance failed", zap.Error(err))
		return ValidateResponse{}, err
	}

	now := s.now()
	ts.BankBalanceOut = balance
	ts.Status = timesheet.StatusValidated
	ts.ValidatedAt = &now
	if actor != "" {
		ts.ValidatedBy = &actor
	}
	ts.UpdatedAt = now
	if err := qtx.Update(ctx, ts); err != nil {
		s.logger.Error("validate month persist failed", zap.Error(err))
		return ValidateResponse{}, err
	}
	entries, err := qtx.FindEntries(ctx, ts.ID)
	if err != nil {
		return ValidateResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("validate month commit failed", zap.String("request_id", rid), zap.Error(err))
		return ValidateResponse{}, err
	}

	resp := ValidateResponse{Timesheet: timesheet.MapToResponse(*ts, entries)}
	payload := map[string]any{
		"employee_id":      employeeID,
		"month":            month,
		"year":             year,
		"bank_balance_out": balance.String(),
	}
	if deposit != nil {
		d := hourbank.MapToResponse(*deposit)
		resp.Deposit = &d
		payload["deposited"] = deposit.Delta.String()
	}

	timesheet.InvalidateOverview(ctx, s.rdb, s.logger, month, year)
	s.audit.Log(ctx, audit.Record{
		EntityType: audit.EntityTimesheet,
		EntityID:   ts.ID.String(),
		Action:     "validate",
		Payload:    payload,
	})
	s.logger.Info("validate month success",
		zap.String("request_id", rid),
		zap.String("timesheet_id", ts.ID.String()),
		zap.String("bank_balance_out", balance.String()),
	)
	return resp, nil
}

func (s *service) Close(ctx context.Context, month, year int) (CloseResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	actor := contextutil.GetUserID(ctx)
	s.logger.Debug("close month requested",
		zap.String("request_id", rid),
		zap.Int("month", month),
		zap.Int("year", year),
		zap.String("actor", actor),
	)

	if err := calendar.ValidatePeriod(month, year); err != nil {
		return CloseResponse{}, err
	}

	unlock := s.locks.LockMonth(month, year)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("close month begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return CloseResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.tsRepo.WithTx(tx)
	sheets, err := qtx.FindAllByMonthForUpdate(ctx, month, year)
	if err != nil {
		s.logger.Error("close month load timesheets failed", zap.Error(err))
		return CloseResponse{}, err
	}

	var pending []string
	for _, ts := range sheets {
		if ts.Status == timesheet.StatusOpen {
			pending = append(pending, ts.EmployeeID.String())
		}
	}
	if len(pending) > 0 {
		s.logger.Warn("close month blocked by open timesheets",
			zap.Int("month", month),
			zap.Int("year", year),
			zap.Strings("employee_ids", pending),
		)
		return CloseResponse{}, closingerrors.ErrNotAllValidated.WithDetails(map[string]any{
			"employee_ids": pending,
		})
	}

	now := s.now()
	closed, err := qtx.CloseMonth(ctx, month, year, actor, now)
	if err != nil {
		s.logger.Error("close month persist failed", zap.Error(err))
		return CloseResponse{}, err
	}

	if closed > 0 && s.outbox != nil {
		event := events.MonthClosedEvent{
			EventType:  events.MonthClosedEventType,
			RequestID:  rid,
			Month:      month,
			Year:       year,
			Closed:     closed,
			ClosedBy:   actor,
			OccurredAt: now,
		}
		outboxEvent, err := kafka.NewOutboxEvent(rid, "month", event.PeriodKey(), event.EventType, events.MonthClosedTopic, event)
		if err != nil {
			s.logger.Error("close month marshal event failed", zap.Error(err))
			return CloseResponse{}, err
		}
		if err := s.outbox.WithTx(tx).Create(ctx, outboxEvent); err != nil {
			s.logger.Error("close month outbox persist failed", zap.Error(err))
			return CloseResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("close month commit failed", zap.String("request_id", rid), zap.Error(err))
		return CloseResponse{}, err
	}

	resp := CloseResponse{Month: month, Year: year, Closed: closed}
	if closed == 0 {
		s.logger.Info("close month found nothing to close", zap.Int("month", month), zap.Int("year", year))
		return resp, nil
	}

	timesheet.InvalidateOverview(ctx, s.rdb, s.logger, month, year)
	s.audit.Log(ctx, audit.Record{
		EntityType: audit.EntityMonth,
		EntityID:   fmt.Sprintf("%04d-%02d", year, month),
		Action:     "close",
		Payload: map[string]any{
			"month":  month,
			"year":   year,
			"closed": closed,
		},
	})
	s.logger.Info("close month success",
		zap.String("request_id", rid),
		zap.Int("month", month),
		zap.Int("year", year),
		zap.Int64("closed", closed),
	)
	return resp, nil
}
