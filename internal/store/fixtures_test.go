package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/engineering-ims/ims/internal/db"
	"github.com/engineering-ims/ims/internal/model"
)

// fixture is a database seeded with one user, customer and product model.
type fixture struct {
	db       *sql.DB
	ctx      context.Context
	user     *model.User
	customer *model.Customer
	model    *model.ProductModel
	serial   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "clerk", "Shop Clerk", "hash", model.RoleManager)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	customer, err := CreateCustomer(ctx, database, model.Customer{Name: "Acme Ltd"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	category, err := CreateCategory(ctx, database, model.Category{Name: "Routers", RequiresSerial: true})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	pm, err := CreateProductModel(ctx, database, model.ProductModel{
		Name: "RX-100", Brand: "Netgear", CategoryID: category.ID, SellingPrice: 100,
	})
	if err != nil {
		t.Fatalf("CreateProductModel: %v", err)
	}

	return &fixture{db: database, ctx: ctx, user: user, customer: customer, model: pm}
}

func (f *fixture) nextSerial() string {
	f.serial++
	return fmt.Sprintf("SN-%04d", f.serial)
}

func (f *fixture) saleItem(t *testing.T) *model.Item {
	t.Helper()
	item, err := CreateItem(f.ctx, f.db, NewItem{
		ItemType:       model.ItemTypeSale,
		SerialNumber:   f.nextSerial(),
		ProductModelID: f.model.ID,
	}, f.user.ID)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func (f *fixture) asset(t *testing.T) *model.Item {
	t.Helper()
	serial := f.nextSerial()
	item, err := CreateItem(f.ctx, f.db, NewItem{
		ItemType:       model.ItemTypeAsset,
		SerialNumber:   serial,
		AssetCode:      "A-" + serial,
		ProductModelID: f.model.ID,
	}, f.user.ID)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func (f *fixture) status(t *testing.T, id int64) model.ItemStatus {
	t.Helper()
	item, err := GetItem(f.ctx, f.db, id)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item == nil {
		t.Fatalf("item %d not found", id)
	}
	return item.Status
}

func (f *fixture) eventCount(t *testing.T, id int64) int {
	t.Helper()
	events, err := ListItemEvents(f.ctx, f.db, id)
	if err != nil {
		t.Fatalf("ListItemEvents: %v", err)
	}
	return len(events)
}
