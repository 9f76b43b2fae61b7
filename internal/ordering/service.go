package ordering

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sourceSnapshot holds the most recent results of the three source fetches.
type sourceSnapshot struct {
	products  []Product
	inventory []InventoryRecord
	stock     []StockRecord
	query     InventoryQuery
	fetchedAt time.Time
}

// Service owns the order sessions and the source snapshot, and drives the
// confirm-then-submit protocol against the upstream Order API.
type Service struct {
	fetcher  SourceFetcher
	recorder OrderRecorder
	log      zerolog.Logger

	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*OrderSession
	snap     sourceSnapshot
	gen      uint64
	stale    bool
}

func NewService(fetcher SourceFetcher, recorder OrderRecorder, sessionTTL time.Duration, log zerolog.Logger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	return &Service{
		fetcher:    fetcher,
		recorder:   recorder,
		log:        log,
		sessionTTL: sessionTTL,
		sessions:   make(map[uuid.UUID]*OrderSession),
	}
}

// RefreshSources fires the three listing fetches concurrently and installs
// the merged result. A fetch that fails degrades that one source to an empty
// list instead of blocking the other two. Last request wins: if a newer
// refresh started while this one was in flight, its results are discarded.
func (s *Service) RefreshSources(ctx context.Context, q InventoryQuery) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	var (
		wg        sync.WaitGroup
		products  []Product
		inventory []InventoryRecord
		stock     []StockRecord
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		var err error
		products, err = s.fetcher.FetchProducts(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("product fetch failed, degrading to empty catalog")
			products = nil
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		inventory, err = s.fetcher.FetchInventory(ctx, q)
		if err != nil {
			s.log.Warn().Err(err).Msg("inventory fetch failed, degrading to empty list")
			inventory = nil
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		stock, err = s.fetcher.FetchStock(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("stock fetch failed, degrading to empty list")
			stock = nil
		}
	}()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// A newer refresh started after this one; its results supersede ours.
		return nil
	}
	s.snap = sourceSnapshot{
		products:  products,
		inventory: inventory,
		stock:     stock,
		query:     q,
		fetchedAt: time.Now(),
	}
	s.stale = false
	return nil
}

// refreshIfStale refreshes only when the snapshot is missing or has been
// invalidated by an accepted submission.
func (s *Service) refreshIfStale(ctx context.Context, q InventoryQuery) error {
	s.mu.Lock()
	need := s.stale || s.snap.fetchedAt.IsZero()
	s.mu.Unlock()
	if !need {
		return nil
	}
	return s.RefreshSources(ctx, q)
}

// markSourcesStale flags the snapshot for refetch; the implied stock of an
// accepted order has changed.
func (s *Service) markSourcesStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

func (s *Service) view() CatalogView {
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()
	return NewCatalogView(MergeCatalog(snap.products, snap.inventory, snap.stock))
}

// CatalogQuery scopes a catalog listing.
type CatalogQuery struct {
	SupplierID string
	LowStock   bool
}

// Catalog refreshes the three sources and returns the merged sellable
// products.
func (s *Service) Catalog(ctx context.Context, q CatalogQuery) ([]SellableProduct, error) {
	if err := s.RefreshSources(ctx, InventoryQuery{SupplierID: q.SupplierID, LowStock: q.LowStock}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()
	return MergeCatalog(snap.products, snap.inventory, snap.stock), nil
}

// -- Sessions --

// CreateSession starts a new order-composition session for one customer and
// supplier target. The cart starts empty.
func (s *Service) CreateSession(customerID, supplierID string) *OrderSession {
	sess := newOrderSession(customerID, supplierID)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Session looks up a live session.
func (s *Service) Session(id uuid.UUID) (*OrderSession, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch()
	return sess, nil
}

// SessionView returns the catalog view a session validates and prices
// against, refreshing first when the snapshot was invalidated.
func (s *Service) SessionView(ctx context.Context, sess *OrderSession) (CatalogView, error) {
	if err := s.refreshIfStale(ctx, InventoryQuery{SupplierID: sess.SupplierID}); err != nil {
		return nil, err
	}
	return s.view(), nil
}

// Validate runs the stock validator for a session against current
// availability without changing session state.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) ([]Violation, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	view, err := s.SessionView(ctx, sess)
	if err != nil {
		return nil, err
	}
	return ValidateCart(sess.Cart, view, sess.SupplierID), nil
}

// OrderSummary is the confirmation dialog's content.
type OrderSummary struct {
	SessionID     uuid.UUID  `json:"session_id"`
	CustomerID    string     `json:"customer_id"`
	SupplierID    string     `json:"supplier_id"`
	Lines         []CartLine `json:"lines"`
	TotalQuantity int        `json:"total_quantity"`
	Subtotal      float64    `json:"subtotal"`
}

// BeginConfirm guards the Idle→Confirming transition with a full validation
// pass against freshly refetched availability. On violations the session
// stays where it was and the violations are returned; there is no state
// transition on failure.
func (s *Service) BeginConfirm(ctx context.Context, id uuid.UUID) (*OrderSummary, []Violation, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, nil, err
	}
	if sess.State() == StateSubmitting {
		return nil, nil, ErrSubmissionInFlight
	}
	// A confirm after a failed submission re-validates against fresh data:
	// the failure may itself have been caused by stale availability.
	if err := s.RefreshSources(ctx, InventoryQuery{SupplierID: sess.SupplierID}); err != nil {
		return nil, nil, err
	}
	view := s.view()
	if violations := ValidateCart(sess.Cart, view, sess.SupplierID); len(violations) > 0 {
		return nil, violations, nil
	}
	if err := sess.enterConfirming(); err != nil {
		return nil, nil, err
	}
	return s.summary(sess, view), nil, nil
}

// CancelConfirm dismisses the summary dialog.
func (s *Service) CancelConfirm(id uuid.UUID) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	sess.cancelConfirm()
	return nil
}

// Submit executes the confirmed submission. Success clears the cart and
// marks the sources for refetch; failure preserves the cart so the user can
// retry from it. A second submit while one is in flight is a no-op error
// before any request is sent.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (*OrderAck, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	if err := sess.beginSubmit(); err != nil {
		return nil, err
	}

	req := buildOrderRequest(sess, s.view())
	ack, err := s.fetcher.CreateOrder(ctx, req)
	if err != nil {
		reason := submissionFailureReason(err)
		sess.completeSubmit(nil, reason)
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("order submission failed")
		return nil, &SubmissionError{Message: reason}
	}

	sess.completeSubmit(ack, "")
	s.markSourcesStale()
	s.recordSubmission(ctx, sess, req, ack)
	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("order_ref", ack.OrderRef).
		Int("items", len(req.Items)).
		Msg("order accepted")
	return ack, nil
}

// Acknowledge returns a terminal session to Idle.
func (s *Service) Acknowledge(id uuid.UUID) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	sess.acknowledge()
	return nil
}

func (s *Service) summary(sess *OrderSession, view CatalogView) *OrderSummary {
	lines := sess.Cart.Lines(view)
	sum := &OrderSummary{
		SessionID:  sess.ID,
		CustomerID: sess.CustomerID,
		SupplierID: sess.SupplierID,
		Lines:      lines,
	}
	for _, line := range lines {
		sum.TotalQuantity += line.Quantity
		sum.Subtotal += line.LineTotal
	}
	return sum
}

func (s *Service) recordSubmission(ctx context.Context, sess *OrderSession, req OrderRequest, ack *OrderAck) {
	if s.recorder == nil {
		return
	}
	rec := SubmissionRecord{
		OrderRef:   ack.OrderRef,
		CustomerID: sess.CustomerID,
		SupplierID: sess.SupplierID,
		Items:      req.Items,
		TotalPrice: req.TotalPrice,
	}
	for _, item := range req.Items {
		rec.TotalQuantity += item.Quantity
	}
	if err := s.recorder.RecordSubmission(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("order_ref", ack.OrderRef).Msg("failed to record accepted order")
	}
}

func submissionFailureReason(err error) string {
	var subErr *SubmissionError
	if errors.As(err, &subErr) && subErr.Message != "" {
		return subErr.Message
	}
	return "order submission failed"
}

// StartSweeper removes sessions idle past the TTL. Sessions with a
// submission in flight are never swept.
func (s *Service) StartSweeper(ctx context.Context) {
	interval := s.sessionTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepOnce(time.Now())
			}
		}
	}()
}

func (s *Service) sweepOnce(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	swept := 0
	for id, sess := range s.sessions {
		touched, state := sess.idleSince()
		if state == StateSubmitting {
			continue
		}
		if now.Sub(touched) > s.sessionTTL {
			delete(s.sessions, id)
			swept++
		}
	}
	if swept > 0 {
		s.log.Debug().Int("swept", swept).Msg("expired order sessions removed")
	}
	return swept
}
