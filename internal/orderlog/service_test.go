package orderlog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	records []*OrderRecord
}

func (m *mockRepo) Create(ctx context.Context, rec *OrderRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*OrderRecord, error) {
	for _, rec := range m.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*OrderRecord, int, error) {
	var out []*OrderRecord
	for _, rec := range m.records {
		if rec.CustomerID == customerID {
			out = append(out, rec)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*OrderRecord, int, error) {
	return m.records, len(m.records), nil
}

func TestRecordDerivesTotals(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	rec := &OrderRecord{
		OrderRef:   "ord-1",
		CustomerID: "cust-1",
		TotalPrice: 12,
		Items: []LineItem{
			{ProductID: "p1", Quantity: 2, Price: 3},
			{ProductID: "p2", Quantity: 1, Price: 6},
		},
		// Inconsistent caller-provided totals are overwritten.
		ItemCount:     99,
		TotalQuantity: 99,
	}
	if err := svc.Record(context.Background(), rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected 1 stored record")
	}
	stored := repo.records[0]
	if stored.ItemCount != 2 || stored.TotalQuantity != 3 {
		t.Errorf("expected derived totals 2/3, got %d/%d", stored.ItemCount, stored.TotalQuantity)
	}
}

func TestRecordValidation(t *testing.T) {
	svc := NewService(&mockRepo{})
	cases := []struct {
		name string
		rec  *OrderRecord
	}{
		{"missing order ref", &OrderRecord{CustomerID: "c", Items: []LineItem{{ProductID: "p", Quantity: 1}}}},
		{"missing customer", &OrderRecord{OrderRef: "o", Items: []LineItem{{ProductID: "p", Quantity: 1}}}},
		{"no items", &OrderRecord{OrderRef: "o", CustomerID: "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Record(context.Background(), tc.rec); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestListScopesToCustomer(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	for _, cust := range []string{"a", "a", "b"} {
		svc.Record(context.Background(), &OrderRecord{
			OrderRef:   "ord",
			CustomerID: cust,
			Items:      []LineItem{{ProductID: "p", Quantity: 1}},
		})
	}

	records, total, err := svc.List(context.Background(), "a", 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Errorf("expected 2 records for customer a, got %d", total)
	}

	_, total, _ = svc.List(context.Background(), "", 20, 0)
	if total != 3 {
		t.Errorf("expected all 3 records without a customer scope, got %d", total)
	}
}
