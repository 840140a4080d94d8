package timesheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go-pointage/internal/audit"
	"go-pointage/internal/calendar"
	"go-pointage/internal/shared/contextutil"
	"go-pointage/internal/shared/keylock"
	timesheeterrors "go-pointage/internal/timesheet/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const OverviewKeyPrefix = "timesheets:overview:"

func GetOverviewKey(month, year int) string {
	return fmt.Sprintf("%s%04d-%02d", OverviewKeyPrefix, year, month)
}

// InvalidateOverview drops the cached overview of a month. Failures are logged, never returned.
func InvalidateOverview(ctx context.Context, rdb *redis.Client, logger *zap.Logger, month, year int) {
	if rdb == nil {
		return
	}
	key := GetOverviewKey(month, year)
	if err := rdb.Del(ctx, key).Err(); err != nil {
		logger.Error("failed to invalidate timesheet overview cache",
			zap.Error(err),
			zap.String("key", key),
		)
	}
}

// InvalidateAllOverviews drops every cached month overview. Contract changes
// alter the targets of all open months at once, so no single key is enough.
func InvalidateAllOverviews(ctx context.Context, rdb *redis.Client, logger *zap.Logger) {
	if rdb == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, OverviewKeyPrefix+"*", 100).Result()
		if err != nil {
			logger.Error("failed to scan timesheet overview cache", zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				logger.Error("failed to invalidate timesheet overview cache",
					zap.Error(err),
					zap.Strings("keys", keys),
				)
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

type Options struct {
	MaxDailyHours decimal.Decimal
	OverviewTTL   time.Duration
	Audit         audit.Logger
	Redis         *redis.Client
}

//go:generate mockgen -source=timesheet_service.go -destination=mock/timesheet_service_mock.go -package=mock
type Service interface {
	GetMonthlyTimesheet(ctx context.Context, employeeID string, month, year int) (TimesheetResponse, error)
	OpenMonth(ctx context.Context, employeeID string, month, year int) (TimesheetResponse, error)
	UpsertDailyEntry(ctx context.Context, employeeID string, in EntryInput) (TimesheetResponse, error)
	BatchUpsert(ctx context.Context, employeeID string, in []EntryInput) (TimesheetResponse, error)
	GetMonthlyOverview(ctx context.Context, month, year int) ([]OverviewRow, error)
}

type service struct {
	db          *sql.DB
	repo        Repository
	loader      *Loader
	locks       *keylock.Locker
	audit       audit.Logger
	rdb         *redis.Client
	sf          *singleflight.Group
	maxDaily    decimal.Decimal
	overviewTTL time.Duration
	logger      *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	loader *Loader,
	locks *keylock.Locker,
	opts Options,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("timesheet.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("timesheet.service")
	}
	if opts.MaxDailyHours.IsZero() {
		opts.MaxDailyHours = decimal.NewFromInt(24)
	}
	if opts.OverviewTTL <= 0 {
		opts.OverviewTTL = 5 * time.Minute
	}
	if opts.Audit == nil {
		opts.Audit = audit.Nop()
	}
	return &service{
		db:          db,
		repo:        repo,
		loader:      loader,
		locks:       locks,
		audit:       opts.Audit,
		rdb:         opts.Redis,
		sf:          &singleflight.Group{},
		maxDaily:    opts.MaxDailyHours,
		overviewTTL: opts.OverviewTTL,
		logger:      l,
	}
}

func (s *service) GetMonthlyTimesheet(ctx context.Context, employeeID string, month, year int) (TimesheetResponse, error) {
	s.logger.Debug("get monthly timesheet requested",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("employee_id", employeeID),
		zap.Int("month", month),
		zap.Int("year", year),
	)
	resp, _, err := s.acquireAndRead(ctx, employeeID, month, year)
	return resp, err
}

func (s *service) OpenMonth(ctx context.Context, employeeID string, month, year int) (TimesheetResponse, error) {
	resp, created, err := s.acquireAndRead(ctx, employeeID, month, year)
	if err != nil {
		return TimesheetResponse{}, err
	}
	if created {
		s.audit.Log(ctx, audit.Record{
			EntityType: audit.EntityTimesheet,
			EntityID:   resp.ID,
			Action:     "open",
			Payload: map[string]any{
				"employee_id":       employeeID,
				"month":             month,
				"year":              year,
				"contractual_hours": resp.ContractualHours.String(),
				"bank_balance_in":   resp.BankBalanceIn.String(),
			},
		})
		s.logger.Info("open month success",
			zap.String("employee_id", employeeID),
			zap.String("timesheet_id", resp.ID),
		)
	}
	return resp, nil
}

func (s *service) acquireAndRead(ctx context.Context, employeeID string, month, year int) (TimesheetResponse, bool, error) {
	if err := calendar.ValidatePeriod(month, year); err != nil {
		return TimesheetResponse{}, false, err
	}
	if _, err := uuid.Parse(employeeID); err != nil {
		return TimesheetResponse{}, false, timesheeterrors.ErrInvalidEmployeeID
	}

	unlock := s.locks.LockEmployee(employeeID, month, year)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("get monthly timesheet begin tx failed", zap.Error(err))
		return TimesheetResponse{}, false, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	ts, created, err := s.loader.WithTx(tx).Acquire(ctx, employeeID, month, year)
	if err != nil {
		s.logger.Warn("get monthly timesheet acquire failed", zap.String("employee_id", employeeID), zap.Error(err))
		return TimesheetResponse{}, false, err
	}
	entries, err := qtx.FindEntries(ctx, ts.ID)
	if err != nil {
		s.logger.Error("get monthly timesheet load entries failed", zap.Error(err))
		return TimesheetResponse{}, false, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("get monthly timesheet commit failed", zap.Error(err))
		return TimesheetResponse{}, false, err
	}
	if created {
		InvalidateOverview(ctx, s.rdb, s.logger, month, year)
	}
	return MapToResponse(*ts, entries), created, nil
}

func (s *service) UpsertDailyEntry(ctx context.Context, employeeID string, in EntryInput) (TimesheetResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("upsert daily entry requested",
		zap.String("request_id", rid),
		zap.String("employee_id", employeeID),
		zap.String("entry_date", in.Date.Format(dateLayout)),
		zap.String("day_type", in.DayType),
	)

	if _, err := uuid.Parse(employeeID); err != nil {
		return TimesheetResponse{}, timesheeterrors.ErrInvalidEmployeeID
	}
	in.Date = calendar.DateOnly(in.Date)
	if err := s.validateEntry(in, nil); err != nil {
		s.logger.Warn("upsert daily entry invalid", zap.String("employee_id", employeeID), zap.Error(err))
		return TimesheetResponse{}, err
	}

	return s.applyEntries(ctx, employeeID, int(in.Date.Month()), in.Date.Year(), []EntryInput{in})
}

func (s *service) BatchUpsert(ctx context.Context, employeeID string, in []EntryInput) (TimesheetResponse, error) {
	s.logger.Debug("batch upsert requested",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("employee_id", employeeID),
		zap.Int("count", len(in)),
	)

	if _, err := uuid.Parse(employeeID); err != nil {
		return TimesheetResponse{}, timesheeterrors.ErrInvalidEmployeeID
	}
	if len(in) == 0 {
		return TimesheetResponse{}, timesheeterrors.InvalidEntry(map[string]any{"reason": "batch must contain at least one entry"})
	}

	// validate everything before touching storage
	first := calendar.DateOnly(in[0].Date)
	month, year := int(first.Month()), first.Year()
	seen := make(map[string]int, len(in))
	entries := make([]EntryInput, len(in))
	for i, e := range in {
		e.Date = calendar.DateOnly(e.Date)
		idx := i
		if err := s.validateEntry(e, &idx); err != nil {
			s.logger.Warn("batch upsert invalid entry", zap.Int("index", i), zap.Error(err))
			return TimesheetResponse{}, err
		}
		key := e.Date.Format(dateLayout)
		if !calendar.Contains(e.Date, month, year) {
			return TimesheetResponse{}, timesheeterrors.InvalidEntry(entryDetails(e, &idx, "all entries must belong to the same month"))
		}
		if first, dup := seen[key]; dup {
			d := entryDetails(e, &idx, "duplicate date in batch")
			d["first_index"] = first
			return TimesheetResponse{}, timesheeterrors.InvalidEntry(d)
		}
		seen[key] = i
		entries[i] = e
	}

	return s.applyEntries(ctx, employeeID, month, year, entries)
}

// applyEntries writes pre-validated entries of a single month in one transaction.
func (s *service) applyEntries(ctx context.Context, employeeID string, month, year int, in []EntryInput) (TimesheetResponse, error) {
	rid := contextutil.GetRequestID(ctx)

	unlock := s.locks.LockEmployee(employeeID, month, year)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("upsert daily entry begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return TimesheetResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	ts, _, err := s.loader.WithTx(tx).Acquire(ctx, employeeID, month, year)
	if err != nil {
		s.logger.Warn("upsert daily entry acquire failed", zap.String("employee_id", employeeID), zap.Error(err))
		return TimesheetResponse{}, err
	}
	if ts.Status != StatusOpen {
		s.logger.Warn("upsert daily entry on locked timesheet",
			zap.String("timesheet_id", ts.ID.String()),
			zap.String("status", ts.Status),
		)
		return TimesheetResponse{}, timesheeterrors.ErrTimesheetLocked.WithDetails(map[string]any{"status": ts.Status})
	}

	current, err := qtx.FindEntries(ctx, ts.ID)
	if err != nil {
		s.logger.Error("upsert daily entry load entries failed", zap.Error(err))
		return TimesheetResponse{}, err
	}
	byDate := make(map[string]int, len(current))
	for i, e := range current {
		byDate[e.EntryDate.Format(dateLayout)] = i
	}

	now := time.Now().UTC()
	var changed []DailyEntry
	for _, e := range in {
		key := e.Date.Format(dateLayout)
		idx, exists := byDate[key]
		if exists && current[idx].SameAs(e) {
			continue
		}

		row := DailyEntry{
			ID:          uuid.New(),
			TimesheetID: ts.ID,
			EntryDate:   e.Date,
			Hours:       e.Hours,
			DayType:     e.DayType,
			Note:        e.Note,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if exists {
			row.ID = current[idx].ID
			row.CreatedAt = current[idx].CreatedAt
		}
		if err := qtx.UpsertEntry(ctx, &row); err != nil {
			s.logger.Error("upsert daily entry persist failed",
				zap.String("timesheet_id", ts.ID.String()),
				zap.String("entry_date", key),
				zap.Error(err),
			)
			return TimesheetResponse{}, err
		}

		if exists {
			current[idx] = row
		} else {
			byDate[key] = len(current)
			current = append(current, row)
		}
		changed = append(changed, row)
	}

	if len(changed) > 0 {
		Recalculate(ts, current)
		ts.UpdatedAt = now
		if err := qtx.Update(ctx, ts); err != nil {
			s.logger.Error("upsert daily entry update totals failed", zap.Error(err))
			return TimesheetResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("upsert daily entry commit failed", zap.String("request_id", rid), zap.Error(err))
		return TimesheetResponse{}, err
	}

	if len(changed) == 0 {
		s.logger.Debug("upsert daily entry no-op", zap.String("timesheet_id", ts.ID.String()))
		return MapToResponse(*ts, current), nil
	}

	InvalidateOverview(ctx, s.rdb, s.logger, month, year)
	for _, row := range changed {
		s.audit.Log(ctx, audit.Record{
			EntityType: audit.EntityDailyEntry,
			EntityID:   row.ID.String(),
			Action:     "upsert",
			Payload: map[string]any{
				"timesheet_id": ts.ID.String(),
				"employee_id":  employeeID,
				"entry_date":   row.EntryDate.Format(dateLayout),
				"hours":        row.Hours.String(),
				"day_type":     row.DayType,
			},
		})
	}
	s.logger.Info("upsert daily entry success",
		zap.String("request_id", rid),
		zap.String("timesheet_id", ts.ID.String()),
		zap.Int("changed", len(changed)),
		zap.String("total_logged_hours", ts.TotalLoggedHours.String()),
	)

	return MapToResponse(*ts, current), nil
}

func (s *service) validateEntry(e EntryInput, index *int) error {
	if e.Date.IsZero() {
		return timesheeterrors.InvalidEntry(entryDetails(e, index, "entry date is required"))
	}
	if !IsValidDayType(e.DayType) {
		return timesheeterrors.InvalidEntry(entryDetails(e, index, "unknown day type"))
	}
	if e.Hours.IsNegative() {
		return timesheeterrors.InvalidEntry(entryDetails(e, index, "hours must not be negative"))
	}
	if !calendar.FitsHoursPlaces(e.Hours) {
		return timesheeterrors.InvalidEntry(entryDetails(e, index, "hours must have at most two decimal places"))
	}
	if e.Hours.GreaterThan(s.maxDaily) {
		return timesheeterrors.InvalidEntry(entryDetails(e, index, fmt.Sprintf("hours must not exceed %s", s.maxDaily)))
	}
	if e.DayType != DayTypeWork && !e.Hours.IsZero() {
		return timesheeterrors.InvalidEntry(entryDetails(e, index, "only work days may carry hours"))
	}
	return nil
}

func entryDetails(e EntryInput, index *int, reason string) map[string]any {
	d := map[string]any{"reason": reason}
	if !e.Date.IsZero() {
		d["date"] = e.Date.Format(dateLayout)
	}
	if index != nil {
		d["index"] = *index
	}
	return d
}

func (s *service) GetMonthlyOverview(ctx context.Context, month, year int) ([]OverviewRow, error) {
	if err := calendar.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	cacheKey := GetOverviewKey(month, year)

	// 1. Cek Redis
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var rows []OverviewRow
			if json.Unmarshal([]byte(cached), &rows) == nil {
				return rows, nil
			}
		}
	}

	// 2. Singleflight, satu query untuk banyak request bersamaan
	// waiters share the result, so the first caller's cancellation must not abort it
	fillCtx := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		rows, err := s.buildOverview(fillCtx, month, year)
		if err != nil {
			return nil, err
		}

		if s.rdb != nil {
			if data, err := json.Marshal(rows); err == nil {
				if err := s.rdb.Set(fillCtx, cacheKey, data, s.overviewTTL).Err(); err != nil {
					s.logger.Warn("cache timesheet overview failed", zap.String("key", cacheKey), zap.Error(err))
				}
			}
		}
		return rows, nil
	})
	if err != nil {
		s.logger.Error("get monthly overview failed", zap.Error(err))
		return nil, err
	}

	return v.([]OverviewRow), nil
}

func (s *service) buildOverview(ctx context.Context, month, year int) ([]OverviewRow, error) {
	employees, err := s.repo.FindActiveEmployees(ctx)
	if err != nil {
		return nil, err
	}
	sheets, err := s.repo.FindAllByMonth(ctx, month, year)
	if err != nil {
		return nil, err
	}
	byEmployee := make(map[uuid.UUID]MonthlyTimesheet, len(sheets))
	for _, ts := range sheets {
		byEmployee[ts.EmployeeID] = ts
	}

	rows := make([]OverviewRow, 0, len(employees))
	for i := range employees {
		emp := employees[i]
		ts, ok := byEmployee[emp.ID]
		row := OverviewRow{
			EmployeeID:     emp.ID.String(),
			EmployeeName:   emp.FullName,
			EmployeeNumber: emp.EmployeeNumber,
		}
		if ok {
			row.TimesheetID = ts.ID.String()
			if ts.Status == StatusOpen {
				// same target Acquire would set, computed without writing
				contractual, err := s.loader.Calculator().ContractualHoursForMonth(emp.WeeklyHours, month, year)
				if err != nil {
					return nil, err
				}
				ts.WeeklyHours = emp.WeeklyHours
				ts.ContractualHours = contractual
				ts.RefreshPercentage()
			}
		} else {
			// reads never create rows
			preview, err := s.loader.Preview(ctx, &emp, month, year)
			if err != nil {
				return nil, err
			}
			ts = *preview
		}
		row.Status = ts.Status
		row.ContractualHours = ts.ContractualHours
		row.TotalLoggedHours = ts.TotalLoggedHours
		row.EffectiveHours = ts.EffectiveHours()
		row.Percentage = ts.Percentage
		row.BankBalanceIn = ts.BankBalanceIn
		row.BankBalanceOut = ts.BankBalanceOut
		rows = append(rows, row)
	}
	return rows, nil
}

const dateLayout = "2006-01-02"

func MapToResponse(ts MonthlyTimesheet, entries []DailyEntry) TimesheetResponse {
	resp := TimesheetResponse{
		ID:               ts.ID.String(),
		EmployeeID:       ts.EmployeeID.String(),
		Month:            ts.Month,
		Year:             ts.Year,
		Status:           ts.Status,
		WeeklyHours:      ts.WeeklyHours,
		ContractualHours: ts.ContractualHours,
		TotalLoggedHours: ts.TotalLoggedHours,
		BankWithdrawn:    ts.BankWithdrawn,
		BankDeposited:    ts.BankDeposited,
		EffectiveHours:   ts.EffectiveHours(),
		Deficit:          ts.Deficit(),
		Surplus:          ts.Surplus(),
		Percentage:       ts.Percentage,
		BankBalanceIn:    ts.BankBalanceIn,
		BankBalanceOut:   ts.BankBalanceOut,
		ValidatedBy:      ts.ValidatedBy,
		Entries:          make([]DailyEntryResponse, 0, len(entries)),
	}
	if ts.ValidatedAt != nil {
		v := ts.ValidatedAt.Format(time.RFC3339)
		resp.ValidatedAt = &v
	}
	if ts.ClosedAt != nil {
		v := ts.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &v
	}
	for _, e := range sortedEntries(entries) {
		resp.Entries = append(resp.Entries, DailyEntryResponse{
			ID:        e.ID.String(),
			EntryDate: e.EntryDate.Format(dateLayout),
			Hours:     e.Hours,
			DayType:   e.DayType,
			Note:      e.Note,
		})
	}
	return resp
}

func sortedEntries(entries []DailyEntry) []DailyEntry {
	out := make([]DailyEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate.Before(out[j].EntryDate) })
	return out
}
