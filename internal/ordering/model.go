package ordering

import (
	"context"
	"encoding/json"
)

// Ref is a reference to a product or supplier that may arrive either as a
// bare identifier string or as an embedded object. Both forms resolve to the
// same identity.
type Ref struct {
	ID   string
	Name string
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.ID = s
		r.Name = ""
		return nil
	}
	var obj struct {
		ID       string `json:"id"`
		LegacyID string `json:"_id"`
		Name     string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	if r.ID == "" {
		r.ID = obj.LegacyID
	}
	r.Name = obj.Name
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// Product is a catalog entry. Owned by the catalog service; read-only here.
type Product struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Brand      string   `json:"brand,omitempty"`
	Category   string   `json:"category,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	MRP        float64  `json:"mrp,omitempty"`
	TradePrice float64  `json:"tradePrice,omitempty"`
	Images     []string `json:"images,omitempty"`
}

func (p *Product) UnmarshalJSON(data []byte) error {
	type product Product
	aux := struct {
		*product
		LegacyID string `json:"_id"`
	}{product: (*product)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.LegacyID
	}
	return nil
}

// InventoryRecord is a supplier's stocked quantity of one product.
type InventoryRecord struct {
	Product      Ref     `json:"product"`
	Supplier     Ref     `json:"supplier"`
	SupplierName string  `json:"supplierName,omitempty"`
	AvailableQty int     `json:"availableQty"`
	CostPrice    float64 `json:"costPrice"`
}

// SupplierLabel returns the best display name for the record's supplier.
func (r *InventoryRecord) SupplierLabel() string {
	if r.SupplierName != "" {
		return r.SupplierName
	}
	return r.Supplier.Name
}

// StockRecord is the legacy representation of supplier-held quantity.
// It carries no price.
type StockRecord struct {
	Product  Ref `json:"product"`
	Supplier Ref `json:"supplier"`
	Quantity int `json:"quantity"`
}

// SellableProduct is the derived join of a Product with its resolved
// availability. AvailableStock is nil when no inventory or stock record
// exists for the product; nil means unknown, never zero.
type SellableProduct struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Brand          string  `json:"brand,omitempty"`
	Category       string  `json:"category,omitempty"`
	Unit           string  `json:"unit,omitempty"`
	Image          string  `json:"image,omitempty"`
	DisplayPrice   float64 `json:"display_price"`
	AvailableStock *int    `json:"available_stock"`
	SupplierName   string  `json:"supplier_name,omitempty"`
}

// Orderable reports whether the product can be added to an order. A product
// whose price could not be resolved is displayed but never orderable at 0.
func (p *SellableProduct) Orderable() bool {
	return p.DisplayPrice > 0
}

// CatalogView indexes sellable products by product identity. It is the
// read-time source for cart line prices and availability checks.
type CatalogView map[string]SellableProduct

// OrderItem is one line of an order-creation request.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderRequest is the serialized payload built from non-zero cart lines at
// submission time. Constructed fresh on each submit attempt.
type OrderRequest struct {
	CustomerID string      `json:"customer"`
	SupplierID string      `json:"supplier,omitempty"`
	Items      []OrderItem `json:"items"`
	TotalPrice float64     `json:"totalPrice"`
}

// OrderAck acknowledges an accepted order.
type OrderAck struct {
	OrderRef string `json:"order_ref"`
	Message  string `json:"message,omitempty"`
}

// InventoryQuery scopes an inventory listing.
type InventoryQuery struct {
	SupplierID string
	LowStock   bool
}

// SourceFetcher is the upstream Order API as this engine sees it: three read
// endpoints and one write endpoint. The transport behind it is not the
// engine's concern.
type SourceFetcher interface {
	FetchProducts(ctx context.Context) ([]Product, error)
	FetchInventory(ctx context.Context, q InventoryQuery) ([]InventoryRecord, error)
	FetchStock(ctx context.Context) ([]StockRecord, error)
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderAck, error)
}

// SubmissionError is a rejected order submission. Message carries the
// server's reason verbatim when one was provided.
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "order submission failed"
}

// SubmissionRecord describes an accepted submission for the order log.
type SubmissionRecord struct {
	OrderRef      string
	CustomerID    string
	SupplierID    string
	Items         []OrderItem
	TotalQuantity int
	TotalPrice    float64
}

// OrderRecorder persists accepted submissions. Recording is best-effort;
// failures never affect the submission outcome.
type OrderRecorder interface {
	RecordSubmission(ctx context.Context, rec SubmissionRecord) error
}
