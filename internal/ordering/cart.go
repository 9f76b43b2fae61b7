package ordering

import (
	"math"
	"sort"
	"sync"
)

// Cart maps product identity to requested quantity. It never stores price or
// name; every line is annotated from the current catalog view at read time,
// so the cart cannot go stale relative to availability changes.
type Cart struct {
	mu  sync.Mutex
	qty map[string]int
}

func NewCart() *Cart {
	return &Cart{qty: make(map[string]int)}
}

// AddOne increments the requested quantity by 1. A product not yet tracked
// starts at 1.
func (c *Cart) AddOne(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.qty[productID]++
}

// RemoveOne decrements the requested quantity by 1, floored at 0.
func (c *Cart) RemoveOne(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.qty[productID] > 0 {
		c.qty[productID]--
	}
}

// SetQuantity sets the absolute quantity. Non-integer or negative input is
// clamped to the nearest non-negative integer, never rejected.
func (c *Cart) SetQuantity(productID string, qty float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.qty[productID] = clampQuantity(qty)
}

// Remove zeroes the line. The mapping entry persists at zero; the line
// simply disappears from active-item reads.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.qty[productID] = 0
}

// Reset zeroes every line.
func (c *Cart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.qty = make(map[string]int)
}

// Quantity returns the requested quantity for one product.
func (c *Cart) Quantity(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qty[productID]
}

// ActiveCount returns the number of lines with quantity > 0.
func (c *Cart) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.qty {
		if q > 0 {
			n++
		}
	}
	return n
}

// CartLine is one active cart entry annotated with current catalog data.
type CartLine struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// Lines returns all entries with quantity > 0, annotated with the current
// sellable product's name and price. Prices are read live, never cached at
// add time. Order is deterministic (by product id).
func (c *Cart) Lines(view CatalogView) []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.qty))
	for id, q := range c.qty {
		if q > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	lines := make([]CartLine, 0, len(ids))
	for _, id := range ids {
		q := c.qty[id]
		line := CartLine{ProductID: id, Quantity: q}
		if sp, ok := view[id]; ok {
			line.ProductName = sp.Name
			line.UnitPrice = sp.DisplayPrice
			line.LineTotal = sp.DisplayPrice * float64(q)
		}
		lines = append(lines, line)
	}
	return lines
}

// TotalQuantity sums requested quantities over active lines.
func (c *Cart) TotalQuantity(view CatalogView) int {
	total := 0
	for _, line := range c.Lines(view) {
		total += line.Quantity
	}
	return total
}

// Subtotal sums line totals over active lines at current prices.
func (c *Cart) Subtotal(view CatalogView) float64 {
	total := 0.0
	for _, line := range c.Lines(view) {
		total += line.LineTotal
	}
	return total
}

func clampQuantity(q float64) int {
	if q <= 0 || math.IsNaN(q) {
		return 0
	}
	// Cap before converting; int(huge float64) overflows to a negative value.
	if q > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(q))
}
