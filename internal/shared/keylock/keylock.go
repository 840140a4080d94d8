// Package keylock serializes work per employee and per (month, year) inside one process.
package keylock

import (
	"fmt"
	"sync"
)

type refRWMutex struct {
	mu   sync.RWMutex
	refs int
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out per-key locks. Entries are dropped when no goroutine holds or waits on them.
type Locker struct {
	mu        sync.Mutex
	months    map[string]*refRWMutex
	employees map[string]*refMutex
}

func New() *Locker {
	return &Locker{
		months:    make(map[string]*refRWMutex),
		employees: make(map[string]*refMutex),
	}
}

func monthKey(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// LockEmployee takes the month lock shared and then the employee lock.
// Call the returned func exactly once to release both.
func (l *Locker) LockEmployee(employeeID string, month, year int) func() {
	m := l.acquireMonth(monthKey(month, year))
	m.mu.RLock()

	e := l.acquireEmployee(employeeID)
	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.releaseEmployee(employeeID, e)
		m.mu.RUnlock()
		l.releaseMonth(monthKey(month, year), m)
	}
}

// LockMonth takes the month lock exclusively.
func (l *Locker) LockMonth(month, year int) func() {
	key := monthKey(month, year)
	m := l.acquireMonth(key)
	m.mu.Lock()

	return func() {
		m.mu.Unlock()
		l.releaseMonth(key, m)
	}
}

func (l *Locker) acquireMonth(key string) *refRWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.months[key]
	if !ok {
		m = &refRWMutex{}
		l.months[key] = m
	}
	m.refs++
	return m
}

func (l *Locker) releaseMonth(key string, m *refRWMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(l.months, key)
	}
}

func (l *Locker) acquireEmployee(key string) *refMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.employees[key]
	if !ok {
		e = &refMutex{}
		l.employees[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) releaseEmployee(key string, e *refMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.employees, key)
	}
}

// size reports live entries; used by tests.
func (l *Locker) size() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.months), len(l.employees)
}
