package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"billing-service/internal/config"
	"billing-service/internal/handlers"
	"billing-service/internal/middleware"
	"billing-service/internal/services"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	appLogger := logrus.New()
	appLogger.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{AllowedOrigins: []string{"http://localhost:3000"}}
	renderer := services.NewDocumentRenderer()
	quoteHandler := handlers.NewQuoteHandler(nil, nil, renderer)
	invoiceHandler := handlers.NewInvoiceHandler(nil, nil, renderer)
	paymentHandler := handlers.NewPaymentHandler(nil)

	return setupRouter(cfg, appLogger, nil, middleware.NewMemoryIdempotencyStore(),
		quoteHandler, invoiceHandler, paymentHandler)
}

// Lifecycle transitions answer on PATCH, with POST kept as an alias. A
// malformed id proves the route resolved without touching any service: a
// registered route answers 400 INVALID_ID, an unregistered verb answers 404.
func TestRouter_LifecycleTransitionVerbs(t *testing.T) {
	router := newTestRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPatch, "/api/v1/quotes/not-a-uuid/send"},
		{http.MethodPatch, "/api/v1/quotes/not-a-uuid/accept"},
		{http.MethodPatch, "/api/v1/quotes/not-a-uuid/decline"},
		{http.MethodPatch, "/api/v1/quotes/not-a-uuid/view"},
		{http.MethodPatch, "/api/v1/invoices/not-a-uuid/send"},
		{http.MethodPatch, "/api/v1/invoices/not-a-uuid/view"},
		{http.MethodPatch, "/api/v1/invoices/not-a-uuid/void"},
		{http.MethodPost, "/api/v1/quotes/not-a-uuid/send"},
		{http.MethodPost, "/api/v1/quotes/not-a-uuid/accept"},
		{http.MethodPost, "/api/v1/quotes/not-a-uuid/decline"},
		{http.MethodPost, "/api/v1/quotes/not-a-uuid/convert"},
		{http.MethodPost, "/api/v1/invoices/not-a-uuid/send"},
		{http.MethodPost, "/api/v1/invoices/not-a-uuid/void"},
		{http.MethodGet, "/api/v1/quotes/not-a-uuid/pdf"},
		{http.MethodGet, "/api/v1/invoices/not-a-uuid/pdf"},
	}

	for _, route := range routes {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(route.method, route.path, nil)
		req.Header.Set("X-Tenant-ID", "tenant-123")
		router.ServeHTTP(w, req)

		assert.Equalf(t, http.StatusBadRequest, w.Code, "%s %s", route.method, route.path)
	}
}

func TestRouter_MissingTenantRejected(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
