package ordering

import "fmt"

// ViolationCode classifies a validation failure.
type ViolationCode string

const (
	ViolationEmptyCart         ViolationCode = "EmptyCart"
	ViolationMissingSupplier   ViolationCode = "MissingSupplier"
	ViolationInsufficientStock ViolationCode = "InsufficientStock"
	ViolationUnpricedProduct   ViolationCode = "UnpricedProduct"
)

// Violation is one declared validation outcome. Violations are values the
// caller checks, not errors.
type Violation struct {
	Code        ViolationCode `json:"code"`
	ProductID   string        `json:"product_id,omitempty"`
	ProductName string        `json:"product_name,omitempty"`
	Requested   int           `json:"requested,omitempty"`
	Available   *int          `json:"available,omitempty"`
	Message     string        `json:"message"`
}

// ValidateCart checks the cart against the resolved availability. It is
// synchronous and side-effect free, and always runs to completion so the
// caller sees every violation at once rather than just the first.
func ValidateCart(cart *Cart, view CatalogView, supplierID string) []Violation {
	var violations []Violation

	if supplierID == "" {
		violations = append(violations, Violation{
			Code:    ViolationMissingSupplier,
			Message: "select a supplier before placing the order",
		})
	}

	lines := cart.Lines(view)
	if len(lines) == 0 {
		violations = append(violations, Violation{
			Code:    ViolationEmptyCart,
			Message: "the cart has no items",
		})
		return violations
	}

	for _, line := range lines {
		sp, ok := view[line.ProductID]
		if !ok || sp.AvailableStock == nil {
			violations = append(violations, Violation{
				Code:        ViolationInsufficientStock,
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Message:     fmt.Sprintf("%s: no availability record for requested %d", lineLabel(line), line.Quantity),
			})
			continue
		}
		if line.Quantity > *sp.AvailableStock {
			avail := *sp.AvailableStock
			violations = append(violations, Violation{
				Code:        ViolationInsufficientStock,
				ProductID:   line.ProductID,
				ProductName: sp.Name,
				Requested:   line.Quantity,
				Available:   &avail,
				Message:     fmt.Sprintf("%s: requested %d, available %d", sp.Name, line.Quantity, avail),
			})
		}
		if !sp.Orderable() {
			violations = append(violations, Violation{
				Code:        ViolationUnpricedProduct,
				ProductID:   line.ProductID,
				ProductName: sp.Name,
				Requested:   line.Quantity,
				Message:     fmt.Sprintf("%s: no price could be resolved", sp.Name),
			})
		}
	}
	return violations
}

func lineLabel(line CartLine) string {
	if line.ProductName != "" {
		return line.ProductName
	}
	return line.ProductID
}
