package ordering

// availability is the resolved (price, quantity, supplier) triple for one
// product. quantity nil means unknown.
type availability struct {
	price        float64
	quantity     *int
	supplierName string
}

// selectInventory picks one authoritative InventoryRecord per product.
// When a product has multiple records the strictly higher costPrice wins;
// ties keep the first encountered. Records carry no reliable ordering, so
// "most recent" is not a usable rule.
func selectInventory(records []InventoryRecord) map[string]InventoryRecord {
	selected := make(map[string]InventoryRecord, len(records))
	for _, rec := range records {
		id := rec.Product.ID
		if id == "" {
			continue
		}
		cur, ok := selected[id]
		if !ok || rec.CostPrice > cur.CostPrice {
			selected[id] = rec
		}
	}
	return selected
}

// selectStock picks one StockRecord per product with the same tie-break
// shape: strictly higher quantity wins, first encountered on ties.
func selectStock(records []StockRecord) map[string]StockRecord {
	selected := make(map[string]StockRecord, len(records))
	for _, rec := range records {
		id := rec.Product.ID
		if id == "" {
			continue
		}
		cur, ok := selected[id]
		if !ok || rec.Quantity > cur.Quantity {
			selected[id] = rec
		}
	}
	return selected
}

// resolveAvailability applies the precedence rule for one product:
// Inventory overrides Stock overrides catalog list price. Inventory is the
// newer supplier-specific source, Stock is legacy, catalog prices are
// defaults of last resort.
func resolveAvailability(p Product, inv map[string]InventoryRecord, stock map[string]StockRecord) availability {
	var a availability
	if rec, ok := inv[p.ID]; ok {
		qty := rec.AvailableQty
		a.quantity = &qty
		a.supplierName = rec.SupplierLabel()
		if rec.CostPrice > 0 {
			a.price = rec.CostPrice
			return a
		}
	} else if rec, ok := stock[p.ID]; ok {
		qty := rec.Quantity
		a.quantity = &qty
		a.supplierName = rec.Supplier.Name
	}
	switch {
	case p.TradePrice > 0:
		a.price = p.TradePrice
	case p.MRP > 0:
		a.price = p.MRP
	default:
		a.price = 0
	}
	return a
}

// MergeCatalog joins every catalog product with its resolved availability.
// Total: each product yields exactly one SellableProduct even with zero
// matching records (quantity nil, price from the catalog fallback chain).
func MergeCatalog(products []Product, inventory []InventoryRecord, stock []StockRecord) []SellableProduct {
	inv := selectInventory(inventory)
	stk := selectStock(stock)

	out := make([]SellableProduct, 0, len(products))
	for _, p := range products {
		a := resolveAvailability(p, inv, stk)
		sp := SellableProduct{
			ID:             p.ID,
			Name:           p.Name,
			Brand:          p.Brand,
			Category:       p.Category,
			Unit:           p.Unit,
			DisplayPrice:   a.price,
			AvailableStock: a.quantity,
			SupplierName:   a.supplierName,
		}
		if len(p.Images) > 0 {
			sp.Image = p.Images[0]
		}
		out = append(out, sp)
	}
	return out
}

// NewCatalogView indexes merged products by identity.
func NewCatalogView(products []SellableProduct) CatalogView {
	view := make(CatalogView, len(products))
	for _, p := range products {
		view[p.ID] = p
	}
	return view
}
