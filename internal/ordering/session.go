package ordering

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionState is the order submitter's state.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateConfirming SessionState = "confirming"
	StateSubmitting SessionState = "submitting"
	StateSucceeded  SessionState = "succeeded"
	StateFailed     SessionState = "failed"
)

var (
	ErrSessionNotFound    = errors.New("order session not found")
	ErrNotConfirmed       = errors.New("order has not been confirmed")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// OrderSession is one user's order-composition session: a cart plus the
// submitter state machine. All state is ephemeral and scoped to the session;
// nothing survives a restart.
type OrderSession struct {
	ID         uuid.UUID
	CustomerID string
	SupplierID string
	Cart       *Cart

	mu        sync.Mutex
	state     SessionState
	failure   string
	orderRef  string
	touchedAt time.Time
}

func newOrderSession(customerID, supplierID string) *OrderSession {
	return &OrderSession{
		ID:         uuid.New(),
		CustomerID: customerID,
		SupplierID: supplierID,
		Cart:       NewCart(),
		state:      StateIdle,
		touchedAt:  time.Now(),
	}
}

// State returns the current submitter state.
func (s *OrderSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FailureReason returns the surfaced reason of the last failed submission.
func (s *OrderSession) FailureReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// OrderRef returns the upstream reference of the last accepted order.
func (s *OrderSession) OrderRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderRef
}

func (s *OrderSession) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()
}

func (s *OrderSession) idleSince() (time.Time, SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt, s.state
}

// enterConfirming moves to Confirming. Terminal states count as Idle here:
// any fresh user action returns them to the start of the flow.
func (s *OrderSession) enterConfirming() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return ErrSubmissionInFlight
	case StateIdle, StateConfirming, StateSucceeded, StateFailed:
		s.state = StateConfirming
		s.touchedAt = time.Now()
		return nil
	}
	return ErrNotConfirmed
}

// cancelConfirm returns from the summary dialog to Idle with no side effects.
func (s *OrderSession) cancelConfirm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConfirming {
		s.state = StateIdle
		s.touchedAt = time.Now()
	}
}

// beginSubmit moves Confirming to Submitting. A submit while one is in
// flight is rejected before any request is built, so exactly one
// order-creation request is sent per confirmed submission.
func (s *OrderSession) beginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting:
		return ErrSubmissionInFlight
	case StateConfirming:
		s.state = StateSubmitting
		s.touchedAt = time.Now()
		return nil
	default:
		return ErrNotConfirmed
	}
}

// completeSubmit records the terminal outcome. On success the cart is
// cleared entirely; on failure the user's selections are preserved so they
// can adjust and retry.
func (s *OrderSession) completeSubmit(ack *OrderAck, failure string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()
	if ack != nil {
		s.state = StateSucceeded
		s.orderRef = ack.OrderRef
		s.failure = ""
		s.Cart.Reset()
		return
	}
	s.state = StateFailed
	s.failure = failure
}

// acknowledge returns a terminal state to Idle.
func (s *OrderSession) acknowledge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSucceeded || s.state == StateFailed {
		s.state = StateIdle
		s.touchedAt = time.Now()
	}
}

// buildOrderRequest serializes the cart into an order-creation request at
// current prices. Constructed fresh on every submit attempt.
func buildOrderRequest(s *OrderSession, view CatalogView) OrderRequest {
	lines := s.Cart.Lines(view)
	req := OrderRequest{
		CustomerID: s.CustomerID,
		SupplierID: s.SupplierID,
		Items:      make([]OrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		req.Items = append(req.Items, OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice,
		})
		req.TotalPrice += line.LineTotal
	}
	return req
}
