package models

import (
	"errors"
	"testing"
	"time"
)

func seedStore(t *testing.T) (*Store, []string) {
	t.Helper()
	store := NewStore()
	var ids []string
	for _, name := range []string{"iPhone 15 Pro 128GB", "Samsung Galaxy S24 Ultra", "MacBook Air M2"} {
		id, err := store.Add(&Product{Name: name, Quantity: 1, PurchasePrice: 10, SalePrice: 20})
		if err != nil {
			t.Fatalf("add %q: %v", name, err)
		}
		ids = append(ids, id)
	}
	return store, ids
}

func TestStoreAddAssignsID(t *testing.T) {
	store := NewStore()
	id, err := store.Add(&Product{Name: "Widget"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Fatalf("expected assigned id")
	}
	if _, ok := store.Get(id); !ok {
		t.Fatalf("product not retrievable by id")
	}
}

func TestStoreAddRejectsInvalid(t *testing.T) {
	store := NewStore()
	if _, err := store.Add(&Product{Name: ""}); err == nil {
		t.Fatalf("expected validation error")
	}
	if store.Len() != 0 {
		t.Fatalf("invalid product must not be stored")
	}
}

func TestStoreAddRejectsDuplicateID(t *testing.T) {
	store := NewStore()
	if _, err := store.Add(&Product{ID: "fixed", Name: "A"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := store.Add(&Product{ID: "fixed", Name: "B"}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store, ids := seedStore(t)

	got, ok := store.Get(ids[0])
	if !ok {
		t.Fatalf("product missing")
	}
	got.Name = "mutated"

	again, _ := store.Get(ids[0])
	if again.Name == "mutated" {
		t.Fatalf("Get must return a copy, not internal state")
	}
}

func TestStoreListInsertionOrder(t *testing.T) {
	store, ids := seedStore(t)

	list := store.List()
	if len(list) != len(ids) {
		t.Fatalf("list length = %d, want %d", len(list), len(ids))
	}
	for i, p := range list {
		if p.ID != ids[i] {
			t.Fatalf("position %d has id %s, want %s", i, p.ID, ids[i])
		}
	}
}

func TestStoreFindByName(t *testing.T) {
	store, _ := seedStore(t)

	tests := []struct {
		name    string
		query   string
		want    string
		wantHit bool
	}{
		{name: "exact", query: "MacBook Air M2", want: "MacBook Air M2", wantHit: true},
		{name: "substring", query: "galaxy", want: "Samsung Galaxy S24 Ultra", wantHit: true},
		{name: "case insensitive", query: "IPHONE", want: "iPhone 15 Pro 128GB", wantHit: true},
		{name: "padded", query: "  macbook  ", want: "MacBook Air M2", wantHit: true},
		{name: "miss", query: "ThinkPad", wantHit: false},
		{name: "empty", query: "", wantHit: false},
		{name: "blank", query: "   ", wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := store.FindByName(tt.query)
			if ok != tt.wantHit {
				t.Fatalf("FindByName(%q) hit = %v, want %v", tt.query, ok, tt.wantHit)
			}
			if ok && got.Name != tt.want {
				t.Fatalf("FindByName(%q) = %q, want %q", tt.query, got.Name, tt.want)
			}
		})
	}
}

func TestStoreApplyPrice(t *testing.T) {
	store, ids := seedStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := store.ApplyPrice(ids[0], KindCompetitor, 99.5, now); err != nil {
		t.Fatalf("apply competitor price: %v", err)
	}
	p, _ := store.Get(ids[0])
	if p.CompetitorNewPrice == nil || *p.CompetitorNewPrice != 99.5 {
		t.Fatalf("competitor new price not applied: %v", p.CompetitorNewPrice)
	}
	if p.CompetitorUsedPrice != nil {
		t.Fatalf("used price must stay nil")
	}
	if p.LastUpdated == nil || !p.LastUpdated.Equal(now) {
		t.Fatalf("LastUpdated = %v, want %v", p.LastUpdated, now)
	}

	later := now.Add(time.Hour)
	if err := store.ApplyPrice(ids[0], KindUsed, 45, later); err != nil {
		t.Fatalf("apply used price: %v", err)
	}
	p, _ = store.Get(ids[0])
	if p.CompetitorUsedPrice == nil || *p.CompetitorUsedPrice != 45 {
		t.Fatalf("competitor used price not applied: %v", p.CompetitorUsedPrice)
	}
	if *p.CompetitorNewPrice != 99.5 {
		t.Fatalf("new price must survive a used-price update")
	}
	if !p.LastUpdated.Equal(later) {
		t.Fatalf("LastUpdated not restamped")
	}

	// Reapplying the same price is allowed.
	if err := store.ApplyPrice(ids[0], KindCompetitor, 99.5, later); err != nil {
		t.Fatalf("reapply same price: %v", err)
	}
}

func TestStoreApplyPriceErrors(t *testing.T) {
	store, ids := seedStore(t)
	now := time.Now()

	if err := store.ApplyPrice("missing", KindCompetitor, 10, now); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := store.ApplyPrice(ids[0], KindCompetitor, -10, now); err == nil {
		t.Fatalf("negative price must be rejected")
	}
	p, _ := store.Get(ids[0])
	if p.CompetitorNewPrice != nil || p.LastUpdated != nil {
		t.Fatalf("failed apply must not mutate the product")
	}
}

func TestStoreApplyEdit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		field   EditField
		value   any
		wantErr bool
		check   func(t *testing.T, p Product)
	}{
		{
			name: "rename", field: FieldName, value: "  New Name  ",
			check: func(t *testing.T, p Product) {
				if p.Name != "New Name" {
					t.Fatalf("name = %q", p.Name)
				}
			},
		},
		{
			name: "description", field: FieldDescription, value: "fresh",
			check: func(t *testing.T, p Product) {
				if p.Description != "fresh" {
					t.Fatalf("description = %q", p.Description)
				}
			},
		},
		{
			name: "quantity", field: FieldQuantity, value: 7,
			check: func(t *testing.T, p Product) {
				if p.Quantity != 7 {
					t.Fatalf("quantity = %d", p.Quantity)
				}
			},
		},
		{
			name: "purchase price", field: FieldPurchasePrice, value: 12.5,
			check: func(t *testing.T, p Product) {
				if p.PurchasePrice != 12.5 {
					t.Fatalf("purchase price = %v", p.PurchasePrice)
				}
			},
		},
		{
			name: "sale price", field: FieldSalePrice, value: 30.0,
			check: func(t *testing.T, p Product) {
				if p.SalePrice != 30.0 {
					t.Fatalf("sale price = %v", p.SalePrice)
				}
			},
		},
		{name: "empty name", field: FieldName, value: "  ", wantErr: true},
		{name: "name wrong type", field: FieldName, value: 5, wantErr: true},
		{name: "negative quantity", field: FieldQuantity, value: -1, wantErr: true},
		{name: "quantity wrong type", field: FieldQuantity, value: "5", wantErr: true},
		{name: "negative price", field: FieldSalePrice, value: -2.0, wantErr: true},
		{name: "price wrong type", field: FieldSalePrice, value: "30", wantErr: true},
		{name: "unknown field", field: EditField("id"), value: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, ids := seedStore(t)
			err := store.ApplyEdit(ids[0], tt.field, tt.value, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("apply edit: %v", err)
			}
			p, _ := store.Get(ids[0])
			if p.LastUpdated == nil || !p.LastUpdated.Equal(now) {
				t.Fatalf("LastUpdated not stamped")
			}
			tt.check(t, p)
		})
	}
}

func TestStoreApplyEditUnknownProduct(t *testing.T) {
	store, _ := seedStore(t)
	if err := store.ApplyEdit("missing", FieldName, "x", time.Now()); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestParseEditField(t *testing.T) {
	tests := []struct {
		input   string
		want    EditField
		wantErr bool
	}{
		{input: "name", want: FieldName},
		{input: "description", want: FieldDescription},
		{input: "quantity", want: FieldQuantity},
		{input: "purchasePrice", want: FieldPurchasePrice},
		{input: "salePrice", want: FieldSalePrice},
		{input: " quantity ", want: FieldQuantity},
		{input: "id", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEditField(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseEditField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
