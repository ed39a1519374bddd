package store

import (
	"bytes"
	"testing"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/model"
)

func TestCustomerCRUD(t *testing.T) {
	f := newFixture(t)

	c, err := CreateCustomer(f.ctx, f.db, model.Customer{Name: "Globex", Email: "ops@globex.example"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if c.ID == 0 || c.Email != "ops@globex.example" {
		t.Errorf("unexpected customer: %+v", c)
	}

	c.Phone = "555-0100"
	if err := UpdateCustomer(f.ctx, f.db, *c); err != nil {
		t.Fatalf("UpdateCustomer: %v", err)
	}
	got, _ := GetCustomer(f.ctx, f.db, c.ID)
	if got.Phone != "555-0100" {
		t.Errorf("expected phone to be updated, got %q", got.Phone)
	}

	found, err := ListCustomers(f.ctx, f.db, "globex")
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if len(found) != 1 || found[0].ID != c.ID {
		t.Errorf("expected search to find Globex, got %+v", found)
	}

	if err := DeleteCustomer(f.ctx, f.db, c.ID); err != nil {
		t.Fatalf("DeleteCustomer: %v", err)
	}
	if got, _ := GetCustomer(f.ctx, f.db, c.ID); got != nil {
		t.Error("expected customer to be gone")
	}
	if err := DeleteCustomer(f.ctx, f.db, c.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteCustomerInUse(t *testing.T) {
	f := newFixture(t)
	item := f.saleItem(t)
	if _, err := CreateSale(f.ctx, f.db, NewSale{CustomerID: f.customer.ID, ItemIDs: []int64{item.ID}}, f.user.ID); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	err := DeleteCustomer(f.ctx, f.db, f.customer.ID)
	if !apperr.Is(err, apperr.KindIntegrity) {
		t.Errorf("expected integrity error, got %v", err)
	}
}

func TestCategoryRules(t *testing.T) {
	f := newFixture(t)

	if _, err := CreateCategory(f.ctx, f.db, model.Category{Name: "Routers"}); !apperr.Is(err, apperr.KindIntegrity) {
		t.Errorf("expected duplicate category to fail, got %v", err)
	}

	// The fixture's model still belongs to the category.
	err := DeleteCategory(f.ctx, f.db, f.model.CategoryID)
	if !apperr.Is(err, apperr.KindIntegrity) {
		t.Errorf("expected integrity error deleting used category, got %v", err)
	}

	categories, err := ListCategories(f.ctx, f.db)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(categories) != 1 || !categories[0].RequiresSerial {
		t.Errorf("unexpected categories: %+v", categories)
	}
}

func TestSupplierLinkedToItem(t *testing.T) {
	f := newFixture(t)

	s, err := CreateSupplier(f.ctx, f.db, model.Supplier{Name: "Distri Co", Contact: "Ana"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	item, err := CreateItem(f.ctx, f.db, NewItem{
		ItemType:       model.ItemTypeSale,
		SerialNumber:   f.nextSerial(),
		ProductModelID: f.model.ID,
		SupplierID:     &s.ID,
	}, f.user.ID)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.SupplierID == nil || *item.SupplierID != s.ID {
		t.Errorf("expected supplier %d, got %v", s.ID, item.SupplierID)
	}

	if err := DeleteSupplier(f.ctx, f.db, s.ID); !apperr.Is(err, apperr.KindIntegrity) {
		t.Errorf("expected integrity error deleting used supplier, got %v", err)
	}

	missing := int64(999)
	_, err = CreateItem(f.ctx, f.db, NewItem{
		ItemType:       model.ItemTypeSale,
		SerialNumber:   f.nextSerial(),
		ProductModelID: f.model.ID,
		SupplierID:     &missing,
	}, f.user.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found for unknown supplier, got %v", err)
	}
}

func TestProductModelValidation(t *testing.T) {
	f := newFixture(t)

	_, err := CreateProductModel(f.ctx, f.db, model.ProductModel{Name: "Bad", CategoryID: f.model.CategoryID, SellingPrice: -1})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for negative price, got %v", err)
	}

	_, err = CreateProductModel(f.ctx, f.db, model.ProductModel{Name: "Orphan", CategoryID: 999})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found for unknown category, got %v", err)
	}

	f.saleItem(t)
	if err := DeleteProductModel(f.ctx, f.db, f.model.ID); !apperr.Is(err, apperr.KindIntegrity) {
		t.Errorf("expected integrity error deleting used model, got %v", err)
	}
}

func TestProductModelImage(t *testing.T) {
	f := newFixture(t)

	data, _, err := GetProductModelImage(f.ctx, f.db, f.model.ID, false)
	if err != nil {
		t.Fatalf("GetProductModelImage: %v", err)
	}
	if data != nil {
		t.Error("expected no image before upload")
	}

	image, thumb := []byte("full-size"), []byte("thumb")
	if err := SetProductModelImage(f.ctx, f.db, f.model.ID, image, thumb, "image/jpeg"); err != nil {
		t.Fatalf("SetProductModelImage: %v", err)
	}

	data, mime, err := GetProductModelImage(f.ctx, f.db, f.model.ID, true)
	if err != nil {
		t.Fatalf("GetProductModelImage: %v", err)
	}
	if !bytes.Equal(data, thumb) || mime != "image/jpeg" {
		t.Errorf("expected thumbnail, got %q (%s)", data, mime)
	}

	pm, _ := GetProductModel(f.ctx, f.db, f.model.ID)
	if pm.ImageMime != "image/jpeg" {
		t.Errorf("expected image_mime to be set, got %q", pm.ImageMime)
	}

	if err := SetProductModelImage(f.ctx, f.db, 999, image, thumb, "image/jpeg"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
