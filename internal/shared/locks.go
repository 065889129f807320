package shared

import (
	"fmt"
	"sync"
)

// QuotationLockKey builds redis keys for quotation critical sections.
func QuotationLockKey(quotationID int64) string {
	return fmt.Sprintf("quotation:%d:lock", quotationID)
}

// QuotationLocks serializes costing and pricing runs per quotation so two
// simultaneous triggers cannot both create duplicate lines.
type QuotationLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewQuotationLocks constructs an empty lock table.
func NewQuotationLocks() *QuotationLocks {
	return &QuotationLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for the given quotation, creating it on first use.
func (q *QuotationLocks) Lock(quotationID int64) {
	q.mu.Lock()
	m, ok := q.locks[quotationID]
	if !ok {
		m = &sync.Mutex{}
		q.locks[quotationID] = m
	}
	q.mu.Unlock()
	m.Lock()
}

// Unlock releases the mutex for the given quotation.
func (q *QuotationLocks) Unlock(quotationID int64) {
	q.mu.Lock()
	m, ok := q.locks[quotationID]
	q.mu.Unlock()
	if ok {
		m.Unlock()
	}
}
