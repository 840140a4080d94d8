package employee

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-pointage/internal/audit"
	employeeerrors "go-pointage/internal/employee/errors"
	"go-pointage/internal/events"
	"go-pointage/internal/messaging/kafka"
	"go-pointage/internal/shared/contextutil"
	"go-pointage/internal/shared/counter"
	"go-pointage/internal/timesheet"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxWeeklyHours = decimal.NewFromInt(168)

//go:generate mockgen -source=employee_service.go -destination=mock/employee_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, req CreateEmployeeRequest) (EmployeeResponse, error)
	GetAll(ctx context.Context) ([]EmployeeResponse, error)
	GetByID(ctx context.Context, id string) (EmployeeResponse, error)
	Update(ctx context.Context, id string, req UpdateEmployeeRequest) (EmployeeResponse, error)
}

type service struct {
	db      *sql.DB
	repo    Repository
	counter counter.Repository
	outbox  kafka.OutboxRepository
	audit   audit.Logger
	rdb     *redis.Client
	now     func() time.Time
	logger  *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	counter counter.Repository,
	outboxRepo kafka.OutboxRepository,
	auditLogger audit.Logger,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("employee.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employee.service")
	}
	if auditLogger == nil {
		auditLogger = audit.Nop()
	}
	return &service{
		db:      db,
		repo:    repo,
		counter: counter,
		outbox:  outboxRepo,
		audit:   auditLogger,
		rdb:     rdb,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  l,
	}
}

func validateWeeklyHours(v *decimal.Decimal) error {
	if v == nil || v.IsNegative() || v.GreaterThan(maxWeeklyHours) {
		return employeeerrors.ErrInvalidWeeklyHours
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateEmployeeRequest) (EmployeeResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("create employee requested",
		zap.String("request_id", rid),
		zap.String("email", req.Email),
	)

	if err := validateWeeklyHours(req.WeeklyHours); err != nil {
		return EmployeeResponse{}, err
	}

	if req.EmployeeNumber == "" {
		nextVal, err := s.counter.GetNextValue(ctx, "employee_number")
		if err != nil {
			s.logger.Error("create employee generate number failed", zap.Error(err))
			return EmployeeResponse{}, err
		}
		req.EmployeeNumber = fmt.Sprintf("EMP-%06d", nextVal)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create employee begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	now := s.now()
	empl := &Employee{
		ID:             uuid.New(),
		EmployeeNumber: req.EmployeeNumber,
		FullName:       req.FullName,
		Email:          req.Email,
		WeeklyHours:    req.WeeklyHours.Round(2),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := qtx.Create(ctx, empl); err != nil {
		s.logger.Error("create employee persist failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	if s.outbox != nil {
		event := events.EmployeeCreatedEvent{
			EventType:      events.EmployeeCreatedEventType,
			RequestID:      rid, // Propagasi ke async events
			EmployeeID:     empl.ID.String(),
			EmployeeNumber: empl.EmployeeNumber,
			OccurredAt:     now,
		}
		outboxEvent, err := kafka.NewOutboxEvent(rid, "employee", empl.ID.String(), event.EventType, events.EmployeeLifecycleTopic, event)
		if err != nil {
			s.logger.Error("marshal event failed", zap.String("request_id", rid), zap.Error(err))
			return EmployeeResponse{}, err
		}
		if err := s.outbox.WithTx(tx).Create(ctx, outboxEvent); err != nil {
			s.logger.Error("create employee outbox persist failed",
				zap.String("employee_id", empl.ID.String()),
				zap.Error(err),
			)
			return EmployeeResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("commit failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}

	// karyawan baru muncul di overview setiap bulan
	timesheet.InvalidateAllOverviews(ctx, s.rdb, s.logger)
	s.audit.Log(ctx, audit.Record{
		EntityType: audit.EntityEmployee,
		EntityID:   empl.ID.String(),
		Action:     "create",
		Payload: map[string]any{
			"employee_number": empl.EmployeeNumber,
			"weekly_hours":    empl.WeeklyHours.String(),
		},
	})
	s.logger.Info("create employee success",
		zap.String("request_id", rid),
		zap.String("employee_id", empl.ID.String()),
	)

	return mapToResponse(*empl), nil
}

func (s *service) GetAll(ctx context.Context) ([]EmployeeResponse, error) {
	s.logger.Debug("get all employees requested")
	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("get all employees failed", zap.Error(err))
		return nil, mapRepositoryError(err)
	}

	return mapToListResponse(rows), nil
}

func (s *service) GetByID(ctx context.Context, id string) (EmployeeResponse, error) {
	s.logger.Debug("get employee by id requested", zap.String("employee_id", id))
	if _, err := uuid.Parse(id); err != nil {
		return EmployeeResponse{}, employeeerrors.ErrInvalidEmployeeID
	}

	empl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("get employee by id failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	return mapToResponse(*empl), nil
}

// Update changes contract data. An open timesheet picks up new weekly hours
// on its next read; validated and closed months keep their frozen target.
func (s *service) Update(ctx context.Context, id string, req UpdateEmployeeRequest) (EmployeeResponse, error) {
	s.logger.Debug("update employee requested", zap.String("employee_id", id))

	if _, err := uuid.Parse(id); err != nil {
		return EmployeeResponse{}, employeeerrors.ErrInvalidEmployeeID
	}
	if err := validateWeeklyHours(req.WeeklyHours); err != nil {
		return EmployeeResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update employee begin tx failed", zap.Error(err))
		return EmployeeResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	empl, err := qtx.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("update employee fetch existing failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	previousHours := empl.WeeklyHours
	empl.FullName = req.FullName
	empl.Email = req.Email
	empl.WeeklyHours = req.WeeklyHours.Round(2)
	if req.IsActive != nil {
		empl.IsActive = *req.IsActive
	}
	empl.UpdatedAt = s.now()

	if err := qtx.Update(ctx, empl); err != nil {
		s.logger.Error("update employee persist failed", zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update employee commit failed", zap.Error(err))
		return EmployeeResponse{}, err
	}

	timesheet.InvalidateAllOverviews(ctx, s.rdb, s.logger)
	s.audit.Log(ctx, audit.Record{
		EntityType: audit.EntityEmployee,
		EntityID:   empl.ID.String(),
		Action:     "update",
		Payload: map[string]any{
			"weekly_hours_before": previousHours.String(),
			"weekly_hours":        empl.WeeklyHours.String(),
			"is_active":           empl.IsActive,
		},
	})
	s.logger.Info("update employee success", zap.String("employee_id", id))

	return mapToResponse(*empl), nil
}

func mapToResponse(empl Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:             empl.ID.String(),
		EmployeeNumber: empl.EmployeeNumber,
		FullName:       empl.FullName,
		Email:          empl.Email,
		WeeklyHours:    empl.WeeklyHours,
		IsActive:       empl.IsActive,
	}
}

func mapToListResponse(rows []Employee) []EmployeeResponse {
	res := make([]EmployeeResponse, len(rows))
	for i, e := range rows {
		res[i] = mapToResponse(e)
	}
	return res
}
