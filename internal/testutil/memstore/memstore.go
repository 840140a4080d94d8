// Package memstore is an in-memory stand-in for the Postgres repositories used by
// service tests. It exposes a *sql.DB whose transactions snapshot the store on
// Begin and publish the snapshot on Commit, so rollback paths behave like the
// real database.
package memstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sort"
	"sync"
	"time"

	"go-pointage/internal/hourbank"
	"go-pointage/internal/messaging/kafka"
	"go-pointage/internal/timesheet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var errNoStatements = errors.New("memstore: sql statements are not supported")

type state struct {
	employees  map[uuid.UUID]timesheet.EmployeeRef
	timesheets map[uuid.UUID]timesheet.MonthlyTimesheet
	entries    map[uuid.UUID]map[string]timesheet.DailyEntry
	ledger     []hourbank.LedgerEntry
	outbox     []kafka.OutboxEvent
	seq        int64
}

func newState() *state {
	return &state{
		employees:  map[uuid.UUID]timesheet.EmployeeRef{},
		timesheets: map[uuid.UUID]timesheet.MonthlyTimesheet{},
		entries:    map[uuid.UUID]map[string]timesheet.DailyEntry{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.timesheets {
		c.timesheets[k] = v
	}
	for k, m := range s.entries {
		cm := make(map[string]timesheet.DailyEntry, len(m))
		for d, e := range m {
			cm[d] = e
		}
		c.entries[k] = cm
	}
	c.ledger = append([]hourbank.LedgerEntry(nil), s.ledger...)
	c.outbox = append([]kafka.OutboxEvent(nil), s.outbox...)
	c.seq = s.seq
	return c
}

type fault struct {
	op    string
	after int
	err   error
}

// Store holds committed state plus the state of the single open transaction.
type Store struct {
	mu        sync.Mutex
	committed *state
	pending   *state
	faults    []*fault
	calls     map[string]int
	db        *sql.DB
}

func New() *Store {
	s := &Store{committed: newState(), calls: map[string]int{}}
	db := sql.OpenDB(&connector{store: s})
	// a single connection, so transactions run one at a time
	db.SetMaxOpenConns(1)
	s.db = db
	return s
}

// DB returns the handle services use to open transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FailOn makes the call to op that follows after successful calls return err.
func (s *Store) FailOn(op string, after int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &fault{op: op, after: after, err: err})
}

// Calls reports how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) AddEmployee(e timesheet.EmployeeRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.employees[e.ID] = e
}

func (s *Store) SetWeeklyHours(employeeID uuid.UUID, hours decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.committed.employees[employeeID]
	e.WeeklyHours = hours
	s.committed.employees[employeeID] = e
}

// PutTimesheet stores ts as committed, replacing any sheet with the same ID.
func (s *Store) PutTimesheet(ts timesheet.MonthlyTimesheet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.timesheets[ts.ID] = ts
}

// Seed appends committed ledger rows; ResultingBalance is recomputed.
func (s *Store) Seed(employeeID uuid.UUID, deltas ...decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range deltas {
		st := s.committed
		balance := sumDelta(st.ledger, employeeID)
		st.seq++
		st.ledger = append(st.ledger, hourbank.LedgerEntry{
			ID:               uuid.New(),
			Seq:              st.seq,
			EmployeeID:       employeeID,
			Delta:            d,
			Reason:           hourbank.ReasonDeposit,
			ResultingBalance: balance.Add(d),
			CreatedAt:        time.Now().UTC(),
		})
	}
}

func (s *Store) Timesheet(employeeID uuid.UUID, month, year int) (timesheet.MonthlyTimesheet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := findSheet(s.committed, employeeID, month, year)
	if ts == nil {
		return timesheet.MonthlyTimesheet{}, false
	}
	return *ts, true
}

func (s *Store) Entries(timesheetID uuid.UUID) []timesheet.DailyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedEntries(s.committed.entries[timesheetID])
}

func (s *Store) Ledger(employeeID uuid.UUID) []hourbank.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledgerOf(s.committed, employeeID)
}

func (s *Store) Balance(employeeID uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sumDelta(s.committed.ledger, employeeID)
}

// TimesheetRepo returns a timesheet.Repository reading committed state
// until bound to a transaction.
func (s *Store) TimesheetRepo() timesheet.Repository {
	return &timesheetRepo{store: s}
}

func (s *Store) HourBankRepo() hourbank.Repository {
	return &hourbankRepo{store: s}
}

func (s *Store) OutboxRepo() kafka.OutboxRepository {
	return &outboxRepo{store: s}
}

// Outbox returns committed outbox events in insertion order.
func (s *Store) Outbox() []kafka.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]kafka.OutboxEvent(nil), s.committed.outbox...)
}

func (s *Store) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return errors.New("memstore: transaction already open")
	}
	s.pending = s.committed.clone()
	return nil
}

func (s *Store) commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("Commit"); err != nil {
		s.pending = nil
		return err
	}
	s.committed = s.pending
	s.pending = nil
	return nil
}

func (s *Store) rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return nil
}

// do runs fn against the view's state under the store lock.
func (s *Store) do(op string, tx bool, fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(op); err != nil {
		return err
	}
	st := s.committed
	if tx && s.pending != nil {
		st = s.pending
	}
	return fn(st)
}

func (s *Store) hit(op string) error {
	n := s.calls[op]
	s.calls[op] = n + 1
	for i, f := range s.faults {
		if f.op == op && f.after == n {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
			return f.err
		}
	}
	return nil
}

func findSheet(st *state, employeeID uuid.UUID, month, year int) *timesheet.MonthlyTimesheet {
	for _, ts := range st.timesheets {
		if ts.EmployeeID == employeeID && ts.Month == month && ts.Year == year {
			out := ts
			return &out
		}
	}
	return nil
}

func sortedEntries(m map[string]timesheet.DailyEntry) []timesheet.DailyEntry {
	out := make([]timesheet.DailyEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate.Before(out[j].EntryDate) })
	return out
}

func ledgerOf(st *state, employeeID uuid.UUID) []hourbank.LedgerEntry {
	var out []hourbank.LedgerEntry
	for _, e := range st.ledger {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out
}

func sumDelta(rows []hourbank.LedgerEntry, employeeID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, e := range rows {
		if e.EmployeeID == employeeID {
			total = total.Add(e.Delta)
		}
	}
	return total
}

func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

type connector struct {
	store *Store
}

func (c *connector) Connect(context.Context) (driver.Conn, error) {
	return &conn{store: c.store}, nil
}

func (c *connector) Driver() driver.Driver {
	return memDriver{}
}

type memDriver struct{}

func (memDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("memstore: use memstore.New")
}

type conn struct {
	store *Store
}

func (c *conn) Prepare(string) (driver.Stmt, error) {
	return nil, errNoStatements
}

func (c *conn) Close() error {
	return nil
}

func (c *conn) Begin() (driver.Tx, error) {
	if err := c.store.begin(); err != nil {
		return nil, err
	}
	return &memTx{store: c.store}, nil
}

func (c *conn) BeginTx(ctx context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.Begin()
}

type memTx struct {
	store *Store
}

func (t *memTx) Commit() error {
	return t.store.commit()
}

func (t *memTx) Rollback() error {
	return t.store.rollback()
}
