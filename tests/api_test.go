package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"furnimarket/internal/adapter/api"
	"furnimarket/internal/adapter/api/handler"
	"furnimarket/internal/adapter/api/middleware"
	"furnimarket/internal/adapter/api/router"
)

// newTestServer wires the real routers, validator and auth middleware. The
// auth middleware carries no Firebase client, so only paths that reject
// before token verification are exercised here; the business paths are
// covered by the usecase suites.
func newTestServer(environment string) *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()

	authMiddleware := middleware.NewAuthMiddleware(nil)

	e.GET("/health", handler.HealthCheck)
	router.SetupOrderRouter(e, handler.NewOrderHandler(nil), authMiddleware)
	router.SetupChatRouter(e, handler.NewChatHandler(nil), authMiddleware)
	router.SetupWalletRouter(e, handler.NewWalletHandler(nil), authMiddleware)
	router.SetupDevRouter(e, handler.NewDevTokenHandler(nil, nil), environment)

	return e
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	e := newTestServer("development")

	rec := doRequest(e, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	e := newTestServer("development")

	routes := []struct{ method, path string }{
		{http.MethodGet, "/v1/chats"},
		{http.MethodGet, "/v1/chats/unread-count"},
		{http.MethodPost, "/v1/chats/order/order-1"},
		{http.MethodPost, "/v1/chats/chat-1/accept-rules"},
		{http.MethodGet, "/v1/chats/chat-1/messages"},
		{http.MethodPost, "/v1/chats/chat-1/messages"},
		{http.MethodPut, "/v1/chats/chat-1/read"},
		{http.MethodPost, "/v1/orders"},
		{http.MethodGet, "/v1/orders"},
		{http.MethodGet, "/v1/orders/order-1"},
		{http.MethodPost, "/v1/orders/order-1/bids"},
		{http.MethodGet, "/v1/orders/order-1/bids"},
		{http.MethodPost, "/v1/orders/order-1/bids/bid-1/accept"},
		{http.MethodPost, "/v1/orders/order-1/submit-review"},
		{http.MethodPost, "/v1/orders/order-1/accept-work"},
		{http.MethodPost, "/v1/orders/order-1/cancel"},
		{http.MethodGet, "/v1/wallets/me"},
		{http.MethodGet, "/v1/wallets/me/transactions"},
	}

	for _, route := range routes {
		rec := doRequest(e, route.method, route.path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestMalformedAuthorizationHeaderIsRejected(t *testing.T) {
	e := newTestServer("development")

	req := httptest.NewRequest(http.MethodGet, "/v1/chats", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDevTokenValidatesPayload(t *testing.T) {
	e := newTestServer("development")

	// user_id is required.
	rec := doRequest(e, http.MethodPost, "/v1/dev/token", `{"role":"customer"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestDevTokenHiddenInProduction(t *testing.T) {
	e := newTestServer("production")

	rec := doRequest(e, http.MethodPost, "/v1/dev/token", `{"user_id":"u1"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
