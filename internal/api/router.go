package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/engineering-ims/ims/internal/auth"
	"github.com/engineering-ims/ims/internal/imaging"
	"github.com/engineering-ims/ims/internal/model"
)

// Config holds what the router needs beyond the database.
type Config struct {
	JWTSecret string
	// MaxImageDimension bounds stored product photos; zero uses the default.
	MaxImageDimension int
	// LoginLimiter throttles login attempts; nil allows 5 per client, then
	// one a minute.
	LoginLimiter *auth.LoginLimiter
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, cfg Config) http.Handler {
	mux := http.NewServeMux()

	limiter := cfg.LoginLimiter
	if limiter == nil {
		limiter = auth.NewLoginLimiter(time.Minute, 5)
	}

	authHandler := &AuthHandler{DB: db, JWTSecret: cfg.JWTSecret, Limiter: limiter}
	usersHandler := &UsersHandler{DB: db}
	catalog := &CatalogHandler{DB: db}
	models := &ProductModelsHandler{DB: db, Images: imaging.NewProcessor(cfg.MaxImageDimension)}
	items := &ItemsHandler{DB: db}
	sales := &SalesHandler{DB: db}
	loans := &LoansHandler{DB: db}
	repairs := &RepairsHandler{DB: db}

	authMW := AuthMiddleware(cfg.JWTSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	manager := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Catalog: read (all roles), write (manager+).
	mux.Handle("GET /api/customers", authed(catalog.ListCustomers))
	mux.Handle("POST /api/customers", manager(catalog.CreateCustomer))
	mux.Handle("GET /api/customers/{id}", authed(catalog.GetCustomer))
	mux.Handle("PUT /api/customers/{id}", manager(catalog.UpdateCustomer))
	mux.Handle("DELETE /api/customers/{id}", manager(catalog.DeleteCustomer))

	mux.Handle("GET /api/suppliers", authed(catalog.ListSuppliers))
	mux.Handle("POST /api/suppliers", manager(catalog.CreateSupplier))
	mux.Handle("GET /api/suppliers/{id}", authed(catalog.GetSupplier))
	mux.Handle("PUT /api/suppliers/{id}", manager(catalog.UpdateSupplier))
	mux.Handle("DELETE /api/suppliers/{id}", manager(catalog.DeleteSupplier))

	mux.Handle("GET /api/categories", authed(catalog.ListCategories))
	mux.Handle("POST /api/categories", manager(catalog.CreateCategory))
	mux.Handle("GET /api/categories/{id}", authed(catalog.GetCategory))
	mux.Handle("PUT /api/categories/{id}", manager(catalog.UpdateCategory))
	mux.Handle("DELETE /api/categories/{id}", manager(catalog.DeleteCategory))

	mux.Handle("GET /api/product-models", authed(models.List))
	mux.Handle("POST /api/product-models", manager(models.Create))
	mux.Handle("GET /api/product-models/{id}", authed(models.Get))
	mux.Handle("PUT /api/product-models/{id}", manager(models.Update))
	mux.Handle("DELETE /api/product-models/{id}", manager(models.Delete))
	mux.Handle("PUT /api/product-models/{id}/image", manager(models.UploadImage))
	mux.Handle("GET /api/product-models/{id}/image", authed(models.GetImage))
	mux.Handle("GET /api/product-models/{id}/thumbnail", authed(models.GetThumbnail))

	// Items: read (all roles), write and status actions (manager+).
	mux.Handle("GET /api/items", authed(items.List))
	mux.Handle("POST /api/items", manager(items.Create))
	mux.Handle("GET /api/items/{id}", authed(items.Get))
	mux.Handle("PUT /api/items/{id}", manager(items.Update))
	mux.Handle("DELETE /api/items/{id}", manager(items.Delete))
	mux.Handle("GET /api/items/{id}/events", authed(items.Events))
	mux.Handle("POST /api/items/{id}/reserve", manager(items.Reserve))
	mux.Handle("POST /api/items/{id}/unreserve", manager(items.Unreserve))
	mux.Handle("POST /api/items/{id}/defective", manager(items.MarkDefective))
	mux.Handle("POST /api/items/{id}/decommission", manager(items.Decommission))
	mux.Handle("POST /api/items/{id}/reinstate", manager(items.Reinstate))

	// Transactions: any role creates and returns, manager+ voids.
	mux.Handle("GET /api/sales", authed(sales.List))
	mux.Handle("POST /api/sales", authed(sales.Create))
	mux.Handle("GET /api/sales/{id}", authed(sales.Get))
	mux.Handle("POST /api/sales/{id}/void", manager(sales.Void))

	mux.Handle("GET /api/borrowings", authed(loans.ListBorrowings))
	mux.Handle("POST /api/borrowings", authed(loans.CreateBorrowing))
	mux.Handle("GET /api/borrowings/{id}", authed(loans.GetBorrowing))
	mux.Handle("POST /api/borrowings/{id}/return", authed(loans.ReturnBorrowing))

	mux.Handle("GET /api/assignments", authed(loans.ListAssignments))
	mux.Handle("POST /api/assignments", authed(loans.CreateAssignment))
	mux.Handle("GET /api/assignments/{id}", authed(loans.GetAssignment))
	mux.Handle("POST /api/assignments/{id}/return", authed(loans.ReturnAssignment))

	mux.Handle("GET /api/repairs", authed(repairs.List))
	mux.Handle("POST /api/repairs", authed(repairs.Create))
	mux.Handle("GET /api/repairs/{id}", authed(repairs.Get))
	mux.Handle("POST /api/repairs/{id}/return", authed(repairs.Return))

	return mux
}
