package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-service/config"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type contactStore struct {
	messages []models.ContactMessage
}

func (s *contactStore) CreateContactMessage(_ context.Context, m *models.ContactMessage) error {
	m.ID = int64(len(s.messages) + 1)
	s.messages = append(s.messages, *m)
	return nil
}

func (s *contactStore) ListContactMessages(_ context.Context, _ bool, _, _ int) ([]models.ContactMessage, error) {
	return s.messages, nil
}

func (s *contactStore) MarkContactMessageRead(_ context.Context, id int64) error {
	if id > int64(len(s.messages)) {
		return store.ErrNotFound
	}
	return nil
}

func newRouter(deps map[string]Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	catalog := service.NewCatalogService(nil, nil, nil, nil, nil, config.BusinessConfig{VariantDraftTTL: time.Hour, MaxCombinations: 4})
	checkout := service.NewCheckoutService(nil, nil, service.NewRequestGuard(nil, time.Minute), nil, nil, nil, config.BusinessConfig{})
	contact := service.NewContactService(&contactStore{})

	router := gin.New()
	NewHandler(catalog, checkout, nil, contact, deps).SetupRoutes(router)
	return router
}

func do(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	w := do(newRouter(nil), http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestReadiness(t *testing.T) {
	w := do(newRouter(map[string]Pinger{"postgres": pinger{}}), http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(newRouter(map[string]Pinger{
		"postgres": pinger{},
		"redis":    pinger{err: errors.New("connection refused")},
	}), http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	details := decode(t, w)["details"].(map[string]interface{})
	assert.Equal(t, "connection refused", details["redis"])
	assert.NotContains(t, details, "postgres")
}

func TestUserRoutesNeedUserHeader(t *testing.T) {
	router := newRouter(nil)

	for _, path := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/addresses"} {
		w := do(router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := do(router, http.MethodPost, "/api/v1/checkout/quote", `{}`, map[string]string{UserHeader: "abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidationDetails(t *testing.T) {
	w := do(newRouter(nil), http.MethodPost, "/api/v1/checkout/quote",
		`{"selected_ids": [], "payment_type_id": 3}`, map[string]string{UserHeader: "7"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Validation failed", body["error"])
	details := body["details"].(map[string]interface{})
	assert.Contains(t, details, "selected_ids")
	assert.Equal(t, "must be one of 1 2", details["payment_type_id"])
}

func TestMalformedBody(t *testing.T) {
	w := do(newRouter(nil), http.MethodPost, "/api/v1/products", `{"name":`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode(t, w)["error"])
}

func TestInvalidPathID(t *testing.T) {
	w := do(newRouter(nil), http.MethodGet, "/api/v1/products/abc", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewVariants(t *testing.T) {
	body := `{
		"attributes": [
			{"id": 1, "code": "color", "name": "Color", "values": [{"id": 3, "value": "Red"}, {"id": 4, "value": "Blue"}]},
			{"id": 2, "code": "storage", "name": "Storage", "values": [{"id": 6, "value": "128GB"}]}
		],
		"picks": {"1": {"3": true, "4": true}, "2": {"6": true}},
		"overrides": {"4-6": {"price": "249000", "checked": false}}
	}`

	w := do(newRouter(nil), http.MethodPost, "/api/v1/variants/preview", body, nil)

	require.Equal(t, http.StatusOK, w.Code)
	rows := decode(t, w)["rows"].([]interface{})
	require.Len(t, rows, 2)
	first := rows[0].(map[string]interface{})
	second := rows[1].(map[string]interface{})
	assert.Equal(t, "3-6", first["id"])
	assert.Equal(t, "Red / 128GB", first["combination"])
	assert.Equal(t, "249000", second["price"])
	assert.Equal(t, false, second["checked"])
}

func TestPreviewVariantsTooManyCombinations(t *testing.T) {
	body := `{
		"attributes": [
			{"id": 1, "values": [{"id": 3, "value": "Red"}, {"id": 4, "value": "Blue"}, {"id": 5, "value": "Green"}]},
			{"id": 2, "values": [{"id": 6, "value": "128GB"}, {"id": 7, "value": "256GB"}]}
		],
		"picks": {"1": {"3": true, "4": true, "5": true}, "2": {"6": true, "7": true}}
	}`

	w := do(newRouter(nil), http.MethodPost, "/api/v1/variants/preview", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Too many variant combinations", decode(t, w)["error"])
}

func TestPreviewCheckout(t *testing.T) {
	body := `{
		"items": [
			{"id": 1, "price": 100000, "quantity": 2, "total": 200000},
			{"id": 2, "price": 50000, "quantity": 1, "total": 50000}
		],
		"selected_ids": [1],
		"shipping": {"service_fee": 30000},
		"voucher": {"id": 9, "code": "TEN", "discount_type": "PERCENT", "discount_value": 10, "max_discount_amount": 15000},
		"payment_type_id": 2
	}`

	w := do(newRouter(nil), http.MethodPost, "/api/v1/checkout/preview", body, nil)

	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.EqualValues(t, 200000, out["subtotal"])
	assert.EqualValues(t, 15000, out["discount"])
	assert.EqualValues(t, 30000, out["shipping_fee"])
	assert.EqualValues(t, 230000, out["cod_amount"])
	assert.EqualValues(t, 215000, out["total"])
}

func TestPreviewCheckoutEmptySelection(t *testing.T) {
	body := `{"items": [{"id": 1, "total": 10}], "selected_ids": [5], "payment_type_id": 1}`

	w := do(newRouter(nil), http.MethodPost, "/api/v1/checkout/preview", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContactRoutes(t *testing.T) {
	router := newRouter(nil)

	w := do(router, http.MethodPost, "/api/v1/contact", `{"name":"An","email":"an@example.com","message":"Hello"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["id"])

	w = do(router, http.MethodPost, "/api/v1/contact", `{"name":"An","email":"nope","message":"Hello"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/v1/contact", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["messages"], 1)

	w = do(router, http.MethodPost, "/api/v1/contact/1/read", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodPost, "/api/v1/contact/9/read", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Message not found", decode(t, w)["error"])
}
