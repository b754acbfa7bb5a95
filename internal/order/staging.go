package order

import (
	"sync"
	"time"
)

// DefaultStagingTTL bounds how long a staged order waits for payment
// approval before it is dropped.
const DefaultStagingTTL = 30 * time.Minute

// Staged is an order the assistant has assembled but the customer has not
// paid for yet. It lives only in memory; nothing is written to the orders
// table until Toss approves the payment.
type Staged struct {
	OrderNumber   string
	CustomerEmail string
	CustomerName  string
	TotalAmount   int64
	Items         []Item
	stagedAt      time.Time
}

// Staging holds orders awaiting payment approval, keyed by order number.
// Entries expire after the TTL. Safe for concurrent use.
type Staging struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]*Staged

	// now is swappable in tests.
	now func() time.Time
}

// NewStaging creates a staging area. ttl <= 0 uses DefaultStagingTTL.
func NewStaging(ttl time.Duration) *Staging {
	if ttl <= 0 {
		ttl = DefaultStagingTTL
	}
	return &Staging{
		ttl: ttl,
		m:   make(map[string]*Staged),
		now: time.Now,
	}
}

// Stage parks an order until payment approval, replacing any staged order
// with the same number.
func (s *Staging) Stage(st *Staged) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.stagedAt = s.now()
	s.m[st.OrderNumber] = st
	s.sweepLocked()
}

// Consume removes and returns the staged order for the number. The second
// return is false when the order was never staged, already consumed, or
// expired. Single-shot: a second Consume for the same number fails.
func (s *Staging) Consume(orderNumber string) (*Staged, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.m[orderNumber]
	if !ok {
		return nil, false
	}
	delete(s.m, orderNumber)

	if s.now().Sub(st.stagedAt) > s.ttl {
		return nil, false
	}
	return st, true
}

// Discard drops a staged order, if present.
func (s *Staging) Discard(orderNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, orderNumber)
}

// Len reports the number of staged orders, expired entries included.
func (s *Staging) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// sweepLocked drops expired entries. Caller holds mu.
func (s *Staging) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	for k, st := range s.m {
		if st.stagedAt.Before(cutoff) {
			delete(s.m, k)
		}
	}
}
