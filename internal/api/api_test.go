package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engineering-ims/ims/internal/auth"
	"github.com/engineering-ims/ims/internal/db"
	"github.com/engineering-ims/ims/internal/model"
	"github.com/engineering-ims/ims/internal/store"
)

const testJWTSecret = "test-secret"

type testServer struct {
	*httptest.Server
	t     *testing.T
	token string
}

func setupTestServer(t *testing.T) *testServer {
	return setupTestServerWith(t, Config{JWTSecret: testJWTSecret})
}

func setupTestServerWith(t *testing.T, cfg Config) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(LoggingMiddleware(NewRouter(database, cfg)))
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, database, "admin", "Administrator", hash, model.RoleAdmin)
	require.NoError(t, err)

	ts := &testServer{Server: server, t: t}
	ts.token = ts.login("admin", "password")
	return ts
}

func (ts *testServer) login(username, password string) string {
	ts.t.Helper()
	var resp loginResponse
	status := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username, "password": password,
	}, &resp)
	require.Equal(ts.t, http.StatusOK, status, "login as %s", username)
	require.NotEmpty(ts.t, resp.Token)
	return resp.Token
}

// do sends a JSON request and decodes the response into out when non-nil.
func (ts *testServer) do(method, path, token string, body, out any) int {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// admin sends a request as the bootstrap admin.
func (ts *testServer) admin(method, path string, body, out any) int {
	ts.t.Helper()
	return ts.do(method, path, ts.token, body, out)
}

// seedSaleItem creates a category, a model priced at 100, a customer and one
// in-stock unit, returning the customer and item ids.
func (ts *testServer) seedSaleItem() (customerID, itemID int64) {
	ts.t.Helper()
	var category model.Category
	require.Equal(ts.t, http.StatusCreated, ts.admin(http.MethodPost, "/api/categories",
		map[string]any{"name": "Routers", "requires_serial": true}, &category))

	var pm model.ProductModel
	require.Equal(ts.t, http.StatusCreated, ts.admin(http.MethodPost, "/api/product-models",
		map[string]any{"name": "RX-100", "category_id": category.ID, "selling_price": 100}, &pm))

	var customer model.Customer
	require.Equal(ts.t, http.StatusCreated, ts.admin(http.MethodPost, "/api/customers",
		map[string]any{"name": "Acme Ltd"}, &customer))

	var item model.Item
	require.Equal(ts.t, http.StatusCreated, ts.admin(http.MethodPost, "/api/items",
		map[string]any{"item_type": "SALE", "serial_number": "SN-1", "product_model_id": pm.ID}, &item))
	require.Equal(ts.t, model.StatusInStock, item.Status)

	return customer.ID, item.ID
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	var body map[string]string
	status := ts.do(http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "admin", "password": "wrong"}, &body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", body["error"])

	status = ts.do(http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "nobody", "password": "password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	var me model.User
	require.Equal(t, http.StatusOK, ts.admin(http.MethodGet, "/api/auth/me", nil, &me))
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, model.RoleAdmin, me.Role)
}

func TestLoginRateLimit(t *testing.T) {
	ts := setupTestServerWith(t, Config{
		JWTSecret:    testJWTSecret,
		LoginLimiter: auth.NewLoginLimiter(time.Hour, 2),
	})

	// setupTestServerWith already spent one attempt.
	bad := map[string]string{"username": "admin", "password": "wrong"}
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/auth/login", "", bad, nil))
	assert.Equal(t, http.StatusTooManyRequests, ts.do(http.MethodPost, "/api/auth/login", "", bad, nil))
}

func TestUnauthenticatedAccess(t *testing.T) {
	ts := setupTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/items", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/items", "not-a-token", nil, nil))

	forged, err := auth.GenerateToken("other-secret", 1, "admin", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/items", forged, nil, nil))
}

func TestRoleBasedAccess(t *testing.T) {
	ts := setupTestServer(t)

	var user model.User
	require.Equal(t, http.StatusCreated, ts.admin(http.MethodPost, "/api/users", map[string]string{
		"username": "clerk", "full_name": "Front Desk", "password": "password", "role": model.RoleUser,
	}, &user))
	userToken := ts.login("clerk", "password")

	// Regular user should not be able to register items (manager+ required).
	status := ts.do(http.MethodPost, "/api/items", userToken, map[string]any{"item_type": "SALE"}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Regular user should not access /api/users.
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, "/api/users", userToken, nil, nil))

	// Reads are open to every role.
	var items []model.Item
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/items", userToken, nil, &items))
	assert.Empty(t, items)
}

func TestSaleAndVoidFlow(t *testing.T) {
	ts := setupTestServer(t)
	customerID, itemID := ts.seedSaleItem()

	var sale model.Sale
	require.Equal(t, http.StatusCreated, ts.admin(http.MethodPost, "/api/sales", map[string]any{
		"customer_id": customerID, "item_ids": []int64{itemID},
	}, &sale))
	assert.Equal(t, model.SaleCompleted, sale.Status)
	assert.InDelta(t, 100, sale.Subtotal, 0.001)
	assert.InDelta(t, 7, sale.VATAmount, 0.001)
	assert.InDelta(t, 107, sale.Total, 0.001)
	require.Len(t, sale.Items, 1)

	var item model.Item
	require.Equal(t, http.StatusOK, ts.admin(http.MethodGet, fmt.Sprintf("/api/items/%d", itemID), nil, &item))
	assert.Equal(t, model.StatusSold, item.Status)
	require.NotNil(t, item.SaleID)
	assert.Equal(t, sale.ID, *item.SaleID)

	// A sold unit cannot be sold again.
	var body map[string]string
	status := ts.admin(http.MethodPost, "/api/sales", map[string]any{
		"customer_id": customerID, "item_ids": []int64{itemID},
	}, &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "SOLD")

	var voided model.Sale
	require.Equal(t, http.StatusOK, ts.admin(http.MethodPost, fmt.Sprintf("/api/sales/%d/void", sale.ID),
		map[string]string{"reason": "wrong customer"}, &voided))
	assert.Equal(t, model.SaleVoided, voided.Status)
	assert.Equal(t, "wrong customer", voided.VoidReason)

	// A cleared sale link is omitted from the JSON, so decode into a fresh value.
	var after model.Item
	require.Equal(t, http.StatusOK, ts.admin(http.MethodGet, fmt.Sprintf("/api/items/%d", itemID), nil, &after))
	assert.Equal(t, model.StatusInStock, after.Status)
	assert.Nil(t, after.SaleID)

	// Voiding twice is a conflict, reported as a client error.
	status = ts.admin(http.MethodPost, fmt.Sprintf("/api/sales/%d/void", sale.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var events []model.ItemEvent
	require.Equal(t, http.StatusOK, ts.admin(http.MethodGet, fmt.Sprintf("/api/items/%d/events", itemID), nil, &events))
	require.Len(t, events, 3)
	assert.Equal(t, model.EventCreated, events[0].EventType)
	assert.Equal(t, model.EventSold, events[1].EventType)
	assert.Equal(t, model.EventSaleVoided, events[2].EventType)
	assert.Equal(t, "admin", events[2].Username)
}

func TestStandaloneActions(t *testing.T) {
	ts := setupTestServer(t)
	_, itemID := ts.seedSaleItem()
	path := fmt.Sprintf("/api/items/%d", itemID)

	var item model.Item
	require.Equal(t, http.StatusOK, ts.admin(http.MethodPost, path+"/reserve", nil, &item))
	assert.Equal(t, model.StatusReserved, item.Status)

	// Reserving a reserved unit is rejected.
	assert.Equal(t, http.StatusBadRequest, ts.admin(http.MethodPost, path+"/reserve", nil, nil))

	require.Equal(t, http.StatusOK, ts.admin(http.MethodPost, path+"/unreserve", nil, &item))
	assert.Equal(t, model.StatusInStock, item.Status)

	require.Equal(t, http.StatusOK, ts.admin(http.MethodPost, path+"/defective",
		map[string]string{"reason": "dead on arrival"}, &item))
	assert.Equal(t, model.StatusDefective, item.Status)

	require.Equal(t, http.StatusOK, ts.admin(http.MethodPost, path+"/reinstate", nil, &item))
	assert.Equal(t, model.StatusInStock, item.Status)
}

func TestAssignmentFlow(t *testing.T) {
	ts := setupTestServer(t)

	var category model.Category
	require.Equal(t, http.StatusCreated, ts.admin(http.MethodPost, "/api/categories",
		map[string]any{"name": "Laptops"}, &category))
	var pm model.ProductModel
	require.Equal(t, http.StatusCreated, ts.admin(http.MethodPost, "/api/product-models",
		map[string]any{"name": "XPS 13", "brand": "Dell", "category_id": category.ID}, &pm))

	var assets [2]model.Item
	for i := range assets {
		require.Equal(t, http.StatusCreated, ts.admin(http.MethodPost, "/api/items", map[string]any{
			"item_type": "ASSET", "asset_code": fmt.Sprintf("IT-%d", i), "product_model_id": pm.ID,
		}, &assets[i]))
		assert.Equal(t, model.StatusInWarehouse, assets[i].Status)
	}

	var me model.User
	require.Equal(t, http.StatusOK, ts.admin(http.MethodGet, "/api/auth/me", nil, &me))

	var a model.Assignment
	require.Equal(t, http.StatusCreated, ts.admin(http.MethodPost, "/api/assignments", map[string]any{
		"assignee_id": me.ID,
		"item_ids":    []int64{assets[0].ID, assets[1].ID},
		"due_date":    "2030-01-31",
	}, &a))
	assert.Equal(t, model.AssignmentAssigned, a.Status)
	require.NotNil(t, a.DueDate)
	assert.Equal(t, 2030, a.DueDate.Year())

	require.Equal(t, http.StatusOK, ts.admin(http.MethodPost, fmt.Sprintf("/api/assignments/%d/return", a.ID),
		map[string]any{"item_ids": []int64{assets[0].ID}}, &a))
	assert.Equal(t, model.PartiallyReturned, a.Status)
	assert.Nil(t, a.ReturnedAt)

	// The same unit cannot come back twice.
	status := ts.admin(http.MethodPost, fmt.Sprintf("/api/assignments/%d/return", a.ID),
		map[string]any{"item_ids": []int64{assets[0].ID}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	require.Equal(t, http.StatusOK, ts.admin(http.MethodPost, fmt.Sprintf("/api/assignments/%d/return", a.ID),
		map[string]any{"item_ids": []int64{assets[1].ID}}, &a))
	assert.Equal(t, model.AssignmentReturned, a.Status)
	assert.NotNil(t, a.ReturnedAt)

	var list []model.Assignment
	require.Equal(t, http.StatusOK, ts.admin(http.MethodGet, "/api/assignments?status=returned", nil, &list))
	assert.Len(t, list, 1)
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := setupTestServer(t)

	assert.Equal(t, http.StatusOK, ts.admin(http.MethodGet, "/api/items", nil, nil))
	assert.Equal(t, http.StatusOK, ts.admin(http.MethodPost, "/api/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, ts.admin(http.MethodGet, "/api/items", nil, nil))

	// A fresh login still works.
	fresh := ts.login("admin", "password")
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/items", fresh, nil, nil))
}

func TestErrorMapping(t *testing.T) {
	ts := setupTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusNotFound, ts.admin(http.MethodGet, "/api/items/999", nil, &body))
	assert.Equal(t, "item 999 not found", body["error"])

	assert.Equal(t, http.StatusBadRequest, ts.admin(http.MethodGet, "/api/items/abc", nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.admin(http.MethodGet, "/api/items?status=LOST", nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.admin(http.MethodPost, "/api/customers", map[string]string{}, nil))

	// Unknown product model on registration.
	status := ts.admin(http.MethodPost, "/api/items",
		map[string]any{"item_type": "SALE", "product_model_id": 42}, &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "product model 42 not found", body["error"])
}

func TestRequestIDHeader(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/items")
	require.NoError(t, err)
	resp.Body.Close()
	_, err = uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err)

	// A client supplied id is echoed back.
	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/items", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, id)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))
}

func TestProductModelImageUpload(t *testing.T) {
	ts := setupTestServer(t)

	var category model.Category
	require.Equal(t, http.StatusCreated, ts.admin(http.MethodPost, "/api/categories",
		map[string]any{"name": "Switches"}, &category))
	var pm model.ProductModel
	require.Equal(t, http.StatusCreated, ts.admin(http.MethodPost, "/api/product-models",
		map[string]any{"name": "SW-24", "category_id": category.ID, "selling_price": 250}, &pm))
	path := fmt.Sprintf("/api/product-models/%d", pm.ID)

	// Nothing uploaded yet.
	assert.Equal(t, http.StatusNotFound, ts.admin(http.MethodGet, path+"/thumbnail", nil, nil))

	img := image.NewRGBA(image.Rect(0, 0, 600, 300))
	for x := 0; x < 600; x++ {
		img.Set(x, x%300, color.RGBA{R: 200, A: 255})
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "switch.png")
	require.NoError(t, err)
	_, err = part.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPut, ts.URL+path+"/image", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ts.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, ts.URL+path+"/thumbnail", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 256, cfg.Width)
	assert.Equal(t, 128, cfg.Height)
}
