package orderlog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, rec *OrderRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*OrderRecord, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*OrderRecord, int, error)
	List(ctx context.Context, limit, offset int) ([]*OrderRecord, int, error)
}
