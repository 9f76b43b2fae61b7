package orderlog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record persists an accepted order. The item count and total quantity are
// derived from the lines so callers cannot record inconsistent totals.
func (s *Service) Record(ctx context.Context, rec *OrderRecord) error {
	if rec.OrderRef == "" {
		return fmt.Errorf("order_ref is required")
	}
	if rec.CustomerID == "" {
		return fmt.Errorf("customer_id is required")
	}
	if len(rec.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}

	rec.ItemCount = len(rec.Items)
	rec.TotalQuantity = 0
	for _, item := range rec.Items {
		rec.TotalQuantity += item.Quantity
	}

	return s.repo.Create(ctx, rec)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*OrderRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns recorded orders, newest first, optionally scoped to one
// customer.
func (s *Service) List(ctx context.Context, customerID string, limit, offset int) ([]*OrderRecord, int, error) {
	if customerID != "" {
		return s.repo.ListByCustomer(ctx, customerID, limit, offset)
	}
	return s.repo.List(ctx, limit, offset)
}
