// Package orderlog keeps an audit trail of order submissions the upstream
// Order API accepted. The log is write-once; accepted orders are never
// edited or deleted here.
package orderlog

import (
	"time"

	"github.com/google/uuid"
)

// OrderRecord is one accepted order submission.
type OrderRecord struct {
	ID            uuid.UUID  `json:"id"`
	OrderRef      string     `json:"order_ref"`
	CustomerID    string     `json:"customer_id"`
	SupplierID    string     `json:"supplier_id,omitempty"`
	ItemCount     int        `json:"item_count"`
	TotalQuantity int        `json:"total_quantity"`
	TotalPrice    float64    `json:"total_price"`
	Items         []LineItem `json:"items"`
	SubmittedAt   time.Time  `json:"submitted_at"`
}

// LineItem is one product line of a recorded order.
type LineItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
