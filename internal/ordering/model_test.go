package ordering

import (
	"encoding/json"
	"testing"
)

func TestRefUnmarshalBareString(t *testing.T) {
	var r Ref
	if err := json.Unmarshal([]byte(`"prod-1"`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.ID != "prod-1" || r.Name != "" {
		t.Errorf("unexpected ref %+v", r)
	}
}

func TestRefUnmarshalObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Ref
	}{
		{"id field", `{"id":"prod-1","name":"Paracetamol"}`, Ref{ID: "prod-1", Name: "Paracetamol"}},
		{"legacy _id field", `{"_id":"prod-2"}`, Ref{ID: "prod-2"}},
		{"id preferred over _id", `{"id":"new","_id":"old"}`, Ref{ID: "new"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r Ref
			if err := json.Unmarshal([]byte(tc.in), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if r != tc.want {
				t.Errorf("got %+v, want %+v", r, tc.want)
			}
		})
	}
}

func TestRefMarshalsAsID(t *testing.T) {
	out, err := json.Marshal(Ref{ID: "prod-1", Name: "ignored"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"prod-1"` {
		t.Errorf("expected bare id, got %s", out)
	}
}

func TestProductUnmarshalLegacyID(t *testing.T) {
	var p Product
	if err := json.Unmarshal([]byte(`{"_id":"prod-9","name":"Aspirin","tradePrice":3.5}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "prod-9" || p.Name != "Aspirin" || p.TradePrice != 3.5 {
		t.Errorf("unexpected product %+v", p)
	}

	// id takes precedence when both are present.
	var q Product
	if err := json.Unmarshal([]byte(`{"id":"new","_id":"old"}`), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.ID != "new" {
		t.Errorf("expected id over _id, got %q", q.ID)
	}
}

func TestInventoryRecordSupplierLabel(t *testing.T) {
	rec := InventoryRecord{SupplierName: "Flat Name", Supplier: Ref{Name: "Embedded"}}
	if got := rec.SupplierLabel(); got != "Flat Name" {
		t.Errorf("flat supplierName wins, got %q", got)
	}
	rec.SupplierName = ""
	if got := rec.SupplierLabel(); got != "Embedded" {
		t.Errorf("embedded name is the fallback, got %q", got)
	}
}

func TestInventoryRecordUnmarshalMixedShapes(t *testing.T) {
	raw := `{"product":{"_id":"p1","name":"Paracetamol"},"supplier":"s1","availableQty":12,"costPrice":7.5}`
	var rec InventoryRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Product.ID != "p1" || rec.Supplier.ID != "s1" || rec.AvailableQty != 12 || rec.CostPrice != 7.5 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestSubmissionErrorMessage(t *testing.T) {
	err := &SubmissionError{StatusCode: 422, Message: "out of stock"}
	if err.Error() != "out of stock" {
		t.Errorf("server message must surface verbatim, got %q", err.Error())
	}
	generic := &SubmissionError{StatusCode: 500}
	if generic.Error() != "order submission failed" {
		t.Errorf("missing message falls back to generic reason, got %q", generic.Error())
	}
}

func TestOrderRequestWireFormat(t *testing.T) {
	req := OrderRequest{
		CustomerID: "cust-1",
		SupplierID: "sup-1",
		Items:      []OrderItem{{ProductID: "p1", Quantity: 2, Price: 3}},
		TotalPrice: 6,
	}
	out, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["customer"] != "cust-1" {
		t.Errorf("customer key expected on the wire, got %v", decoded)
	}
	if decoded["totalPrice"] != 6.0 {
		t.Errorf("totalPrice key expected, got %v", decoded)
	}
}
