// routes/routes.go
package routes

import (
	"jewelry-ecommerce/controllers"
	"jewelry-ecommerce/middleware"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(
	router *mux.Router,
	userController *controllers.UserController,
	productController *controllers.ProductController,
	cartController *controllers.CartController,
	checkoutController *controllers.CheckoutController,
	orderController *controllers.OrderController,
) {
	// Public routes
	router.HandleFunc("/register", userController.Register).Methods("POST")
	router.HandleFunc("/login", userController.Login).Methods("POST")
	router.HandleFunc("/verify", userController.VerifyEmail).Methods("GET")

	// Product routes
	router.HandleFunc("/products", productController.GetProducts).Methods("GET")
	router.HandleFunc("/products/{id}", productController.GetProductByID).Methods("GET")

	// Cart routes: guests use the X-Guest-Session header, logged-in
	// users their bearer token. Same endpoints either way.
	cart := router.PathPrefix("/cart").Subrouter()
	cart.Use(middleware.OptionalAuthMiddleware)
	cart.HandleFunc("", cartController.GetCart).Methods("GET")
	cart.HandleFunc("", cartController.AddToCart).Methods("POST")
	cart.HandleFunc("", cartController.UpdateQuantity).Methods("PUT")
	cart.HandleFunc("", cartController.ClearCart).Methods("DELETE")
	cart.HandleFunc("/items/{product_id}/{variant_id}", cartController.RemoveFromCart).Methods("DELETE")

	// Protected routes
	protected := router.PathPrefix("/").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/profile", userController.GetProfile).Methods("GET")
	protected.HandleFunc("/profile/address", userController.UpdateShippingAddress).Methods("PUT")
	protected.HandleFunc("/cart/merge", cartController.MergeCart).Methods("POST")
	protected.HandleFunc("/checkout/validate-address", checkoutController.ValidateAddress).Methods("POST")
	protected.HandleFunc("/checkout/session", checkoutController.CreateSession).Methods("POST")
	protected.HandleFunc("/checkout/finalize", checkoutController.Finalize).Methods("POST")
	protected.HandleFunc("/orders", orderController.GetOrders).Methods("GET")
	protected.HandleFunc("/orders/{id}", orderController.GetOrderByID).Methods("GET")

	// Admin routes
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware)
	admin.Use(middleware.AdminMiddleware)
	admin.HandleFunc("/products", productController.CreateProduct).Methods("POST")
	admin.HandleFunc("/products/{id}", productController.UpdateProduct).Methods("PUT")
	admin.HandleFunc("/products/{id}", productController.DeleteProduct).Methods("DELETE")
	admin.HandleFunc("/orders/{id}/status", orderController.UpdateOrderStatus).Methods("PUT")
	admin.HandleFunc("/orders/{id}/payment", orderController.UpdateOrderPaymentStatus).Methods("PUT")
}
