package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/controllers"
	"go-storefront/models"
	"go-storefront/services"
	"go-storefront/utils"
)

type routeRecorder struct {
	called string
}

func (r *routeRecorder) CreateOrder(context.Context, services.Caller, models.CreateOrderRequest, string) (*models.Order, bool, error) {
	r.called = "create"
	return &models.Order{}, true, nil
}

func (r *routeRecorder) ListUserOrders(context.Context, services.Caller) ([]models.Order, error) {
	r.called = "user"
	return nil, nil
}

func (r *routeRecorder) ListOrders(context.Context, string) ([]models.Order, error) {
	r.called = "all"
	return nil, nil
}

func (r *routeRecorder) GetOrder(context.Context, services.Caller, primitive.ObjectID) (*models.Order, error) {
	r.called = "get"
	return &models.Order{}, nil
}

func (r *routeRecorder) UpdateOrderStatus(context.Context, primitive.ObjectID, string) (*models.Order, error) {
	r.called = "status"
	return &models.Order{}, nil
}

func (r *routeRecorder) CancelOrder(context.Context, services.Caller, primitive.ObjectID) (*models.Order, error) {
	r.called = "cancel"
	return &models.Order{}, nil
}

func (r *routeRecorder) DeleteOrder(context.Context, services.Caller, primitive.ObjectID) error {
	r.called = "delete"
	return nil
}

func (r *routeRecorder) Stats(context.Context, string) (*models.OrderStats, error) {
	r.called = "stats"
	return &models.OrderStats{}, nil
}

func newRouter(rec *routeRecorder) *mux.Router {
	router := mux.NewRouter()
	RegisterRoutes(router, Controllers{
		Users:            &controllers.UserController{},
		Products:         &controllers.ProductController{},
		FeaturedProducts: &controllers.FeaturedProductController{},
		NewArrivals:      &controllers.NewArrivalController{},
		Orders:           controllers.NewOrderController(rec),
	})
	return router
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.GenerateAccessToken(primitive.NewObjectID().Hex(), role)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestOrderRoutes(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	user := token(t, models.RoleUser)
	admin := token(t, models.RoleAdmin)

	tests := []struct {
		method, path, auth string
		status             int
		called             string
	}{
		{http.MethodPost, "/api/orders", "", http.StatusUnauthorized, ""},
		{http.MethodGet, "/api/orders/user", user, http.StatusOK, "user"},
		{http.MethodGet, "/api/orders", user, http.StatusForbidden, ""},
		{http.MethodGet, "/api/orders", admin, http.StatusOK, "all"},
		{http.MethodGet, "/api/orders/stats", user, http.StatusForbidden, ""},
		{http.MethodGet, "/api/orders/stats?timeRange=year", admin, http.StatusOK, "stats"},
		{http.MethodPut, "/api/orders/" + id + "/status", user, http.StatusForbidden, ""},
		{http.MethodGet, "/api/orders/" + id, user, http.StatusOK, "get"},
		{http.MethodPost, "/api/orders/" + id + "/cancel", user, http.StatusOK, "cancel"},
		{http.MethodDelete, "/api/orders/" + id, user, http.StatusOK, "delete"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := &routeRecorder{}
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rr := httptest.NewRecorder()
			newRouter(rec).ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.called, rec.called)
		})
	}
}

func TestCatalogAdminRoutesRequireAdmin(t *testing.T) {
	user := token(t, models.RoleUser)
	for _, path := range []string{"/api/products", "/api/featured-products", "/api/new-arrivals"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rr := httptest.NewRecorder()
		newRouter(&routeRecorder{}).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)

		req = httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", user)
		rr = httptest.NewRecorder()
		newRouter(&routeRecorder{}).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code, path)
	}
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(&routeRecorder{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
