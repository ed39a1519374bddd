package store

import (
	"testing"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/model"
)

func TestSaleAndVoid(t *testing.T) {
	f := newFixture(t)
	item := f.saleItem(t)

	sale, err := CreateSale(f.ctx, f.db, NewSale{CustomerID: f.customer.ID, ItemIDs: []int64{item.ID}}, f.user.ID)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.Status != model.SaleCompleted {
		t.Errorf("expected COMPLETED, got %q", sale.Status)
	}
	if sale.Subtotal != 100 || sale.VATAmount != 7 || sale.Total != 107 {
		t.Errorf("expected 100 + 7 = 107, got %v + %v = %v", sale.Subtotal, sale.VATAmount, sale.Total)
	}
	if len(sale.Items) != 1 || sale.Items[0].UnitPrice != 100 {
		t.Errorf("expected one line at 100, got %+v", sale.Items)
	}

	got, _ := GetItem(f.ctx, f.db, item.ID)
	if got.Status != model.StatusSold {
		t.Errorf("expected SOLD, got %q", got.Status)
	}
	if got.SaleID == nil || *got.SaleID != sale.ID {
		t.Errorf("expected item linked to sale %d, got %v", sale.ID, got.SaleID)
	}

	voided, err := VoidSale(f.ctx, f.db, sale.ID, f.user.ID, "customer changed mind")
	if err != nil {
		t.Fatalf("VoidSale: %v", err)
	}
	if voided.Status != model.SaleVoided || voided.VoidedAt == nil {
		t.Errorf("expected VOIDED with timestamp, got %q %v", voided.Status, voided.VoidedAt)
	}
	if voided.VoidedByID == nil || *voided.VoidedByID != f.user.ID {
		t.Errorf("expected voided by %d, got %v", f.user.ID, voided.VoidedByID)
	}

	got, _ = GetItem(f.ctx, f.db, item.ID)
	if got.Status != model.StatusInStock {
		t.Errorf("expected IN_STOCK after void, got %q", got.Status)
	}
	if got.SaleID != nil {
		t.Errorf("expected sale link cleared, got %v", *got.SaleID)
	}

	// CREATED, SOLD, SALE_VOIDED
	if n := f.eventCount(t, item.ID); n != 3 {
		t.Errorf("expected 3 events, got %d", n)
	}
}

func TestVoidSaleTwiceFails(t *testing.T) {
	f := newFixture(t)
	item := f.saleItem(t)

	sale, _ := CreateSale(f.ctx, f.db, NewSale{CustomerID: f.customer.ID, ItemIDs: []int64{item.ID}}, f.user.ID)
	if _, err := VoidSale(f.ctx, f.db, sale.ID, f.user.ID, ""); err != nil {
		t.Fatalf("VoidSale: %v", err)
	}

	_, err := VoidSale(f.ctx, f.db, sale.ID, f.user.ID, "")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict on second void, got %v", err)
	}

	_, err = VoidSale(f.ctx, f.db, 999, f.user.ID, "")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found for unknown sale, got %v", err)
	}
}

func TestSaleIsAtomic(t *testing.T) {
	f := newFixture(t)
	a := f.saleItem(t)
	b := f.saleItem(t)
	c := f.saleItem(t)

	if _, err := CreateSale(f.ctx, f.db, NewSale{CustomerID: f.customer.ID, ItemIDs: []int64{b.ID}}, f.user.ID); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	_, err := CreateSale(f.ctx, f.db, NewSale{CustomerID: f.customer.ID, ItemIDs: []int64{a.ID, b.ID, c.ID}}, f.user.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	for _, id := range []int64{a.ID, c.ID} {
		if s := f.status(t, id); s != model.StatusInStock {
			t.Errorf("item %d: expected IN_STOCK, got %q", id, s)
		}
		if n := f.eventCount(t, id); n != 1 {
			t.Errorf("item %d: expected only the CREATED event, got %d", id, n)
		}
	}

	sales, _ := ListSales(f.ctx, f.db, SaleFilter{})
	if len(sales) != 1 {
		t.Errorf("expected only the first sale, got %d", len(sales))
	}
}

func TestSaleRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	item := f.saleItem(t)
	asset := f.asset(t)

	cases := []struct {
		name string
		in   NewSale
		kind apperr.Kind
	}{
		{"no items", NewSale{CustomerID: f.customer.ID}, apperr.KindValidation},
		{"duplicate items", NewSale{CustomerID: f.customer.ID, ItemIDs: []int64{item.ID, item.ID}}, apperr.KindValidation},
		{"unknown customer", NewSale{CustomerID: 999, ItemIDs: []int64{item.ID}}, apperr.KindNotFound},
		{"unknown item", NewSale{CustomerID: f.customer.ID, ItemIDs: []int64{999}}, apperr.KindNotFound},
		{"asset", NewSale{CustomerID: f.customer.ID, ItemIDs: []int64{asset.ID}}, apperr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateSale(f.ctx, f.db, tc.in, f.user.ID)
			if !apperr.Is(err, tc.kind) {
				t.Errorf("expected %s error, got %v", tc.kind, err)
			}
		})
	}
}

func TestSaleTotalRoundsToCents(t *testing.T) {
	f := newFixture(t)
	cheap, err := CreateProductModel(f.ctx, f.db, model.ProductModel{
		Name: "Cable", CategoryID: f.model.CategoryID, SellingPrice: 9.99,
	})
	if err != nil {
		t.Fatalf("CreateProductModel: %v", err)
	}

	var ids []int64
	for range 3 {
		item, err := CreateItem(f.ctx, f.db, NewItem{
			ItemType: model.ItemTypeSale, SerialNumber: f.nextSerial(), ProductModelID: cheap.ID,
		}, f.user.ID)
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		ids = append(ids, item.ID)
	}

	sale, err := CreateSale(f.ctx, f.db, NewSale{CustomerID: f.customer.ID, ItemIDs: ids}, f.user.ID)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	// 29.97 * 0.07 = 2.0979
	if sale.Subtotal != 29.97 || sale.VATAmount != 2.1 || sale.Total != 32.07 {
		t.Errorf("unexpected totals %v / %v / %v", sale.Subtotal, sale.VATAmount, sale.Total)
	}
}

func TestBorrowedItemCannotBeSold(t *testing.T) {
	f := newFixture(t)
	item := f.saleItem(t)
	if _, err := CreateBorrowing(f.ctx, f.db, NewBorrowing{CustomerID: f.customer.ID, ItemIDs: []int64{item.ID}}, f.user.ID); err != nil {
		t.Fatalf("CreateBorrowing: %v", err)
	}

	_, err := CreateSale(f.ctx, f.db, NewSale{CustomerID: f.customer.ID, ItemIDs: []int64{item.ID}}, f.user.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict selling a borrowed item, got %v", err)
	}
}
