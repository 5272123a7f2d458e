package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"go-storefront/controllers"
	"go-storefront/middleware"
)

// Controllers groups the handlers mounted by RegisterRoutes.
type Controllers struct {
	Users            *controllers.UserController
	Products         *controllers.ProductController
	FeaturedProducts *controllers.FeaturedProductController
	NewArrivals      *controllers.NewArrivalController
	Orders           *controllers.OrderController
}

// RegisterRoutes sets up all the routes for the application under /api
func RegisterRoutes(router *mux.Router, c Controllers) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	// Auth routes
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", c.Users.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", c.Users.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", c.Users.RefreshToken).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", c.Users.ForgotPassword).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", c.Users.ResetPassword).Methods(http.MethodPost)

	authed := auth.NewRoute().Subrouter()
	authed.Use(middleware.AuthMiddleware)
	authed.HandleFunc("/profile", c.Users.GetProfile).Methods(http.MethodGet)
	authed.HandleFunc("/logout", c.Users.Logout).Methods(http.MethodPost)

	// Product routes
	products := api.PathPrefix("/products").Subrouter()
	products.HandleFunc("", c.Products.GetProducts).Methods(http.MethodGet)
	products.HandleFunc("/{id}", c.Products.GetProductByID).Methods(http.MethodGet)
	productAdmin := products.NewRoute().Subrouter()
	productAdmin.Use(middleware.AuthMiddleware, middleware.AdminMiddleware)
	productAdmin.HandleFunc("", c.Products.CreateProduct).Methods(http.MethodPost)
	productAdmin.HandleFunc("/{id}", c.Products.UpdateProduct).Methods(http.MethodPut)
	productAdmin.HandleFunc("/{id}", c.Products.DeleteProduct).Methods(http.MethodDelete)

	// Featured product routes
	featured := api.PathPrefix("/featured-products").Subrouter()
	featured.HandleFunc("", c.FeaturedProducts.GetFeaturedProducts).Methods(http.MethodGet)
	featured.HandleFunc("/product/{productId}", c.FeaturedProducts.GetFeaturedProductByProductID).Methods(http.MethodGet)
	featured.HandleFunc("/{id}", c.FeaturedProducts.GetFeaturedProduct).Methods(http.MethodGet)
	featuredAdmin := featured.NewRoute().Subrouter()
	featuredAdmin.Use(middleware.AuthMiddleware, middleware.AdminMiddleware)
	featuredAdmin.HandleFunc("", c.FeaturedProducts.CreateFeaturedProduct).Methods(http.MethodPost)
	featuredAdmin.HandleFunc("/{id}", c.FeaturedProducts.UpdateFeaturedProduct).Methods(http.MethodPut)
	featuredAdmin.HandleFunc("/{id}", c.FeaturedProducts.DeleteFeaturedProduct).Methods(http.MethodDelete)

	// New arrival routes
	arrivals := api.PathPrefix("/new-arrivals").Subrouter()
	arrivals.HandleFunc("", c.NewArrivals.GetNewArrivals).Methods(http.MethodGet)
	arrivals.HandleFunc("/{id}", c.NewArrivals.GetNewArrival).Methods(http.MethodGet)
	arrivalsAdmin := arrivals.NewRoute().Subrouter()
	arrivalsAdmin.Use(middleware.AuthMiddleware, middleware.AdminMiddleware)
	arrivalsAdmin.HandleFunc("", c.NewArrivals.CreateNewArrival).Methods(http.MethodPost)
	arrivalsAdmin.HandleFunc("/{id}", c.NewArrivals.UpdateNewArrival).Methods(http.MethodPut)
	arrivalsAdmin.HandleFunc("/{id}", c.NewArrivals.DeleteNewArrival).Methods(http.MethodDelete)

	// Order routes, all authenticated. Static paths are registered before
	// /{id} so they are not captured as ids.
	orders := api.PathPrefix("/orders").Subrouter()
	orders.Use(middleware.AuthMiddleware)
	orders.HandleFunc("", c.Orders.CreateOrder).Methods(http.MethodPost)
	orders.HandleFunc("/user", c.Orders.GetUserOrders).Methods(http.MethodGet)

	orderAdmin := orders.NewRoute().Subrouter()
	orderAdmin.Use(middleware.AdminMiddleware)
	orderAdmin.HandleFunc("", c.Orders.GetOrders).Methods(http.MethodGet)
	orderAdmin.HandleFunc("/stats", c.Orders.GetOrderStats).Methods(http.MethodGet)
	orderAdmin.HandleFunc("/{id}/status", c.Orders.UpdateOrderStatus).Methods(http.MethodPut)

	orders.HandleFunc("/{id}", c.Orders.GetOrder).Methods(http.MethodGet)
	orders.HandleFunc("/{id}/cancel", c.Orders.CancelOrder).Methods(http.MethodPost)
	orders.HandleFunc("/{id}", c.Orders.DeleteOrder).Methods(http.MethodDelete)
}
