// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"jewelry-ecommerce/checkout"
	"jewelry-ecommerce/clients/carrier"
	"jewelry-ecommerce/clients/payment"
	"jewelry-ecommerce/controllers"
	"jewelry-ecommerce/routes"
	"jewelry-ecommerce/store"
	"jewelry-ecommerce/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Proceeding with environment variables.")
	}

	// Set the JWT secret key
	utils.JwtKey = []byte(os.Getenv("JWT_SECRET"))

	// Initialize EmailService
	emailService := utils.NewEmailService()

	// Connect to MongoDB and Redis
	client := utils.ConnectDB()
	defer func() {
		if err := client.Disconnect(context.TODO()); err != nil {
			log.Fatal(err)
		}
	}()
	redisClient := utils.ConnectRedis()
	defer redisClient.Close()

	// Cart stores: Mongo for users (cached in Redis), Redis KV for
	// guests.
	db := client.Database("jewelry")
	mongoCarts := store.NewMongoCartStore(db)
	userCarts := store.NewCachedCartStore(mongoCarts, store.NewRedisCartCache(redisClient))
	guestCarts := store.NewGuestCartStore(store.NewRedisKV(redisClient))
	catalog := store.NewMongoCatalog(db)
	orders := checkout.NewMongoOrders(db)
	sessions := checkout.NewMongoSessions(db)

	// External integrations
	carrierClient := carrier.NewClient(carrier.Config{
		BaseURL:      os.Getenv("CARRIER_API_URL"),
		ClientID:     os.Getenv("CARRIER_CLIENT_ID"),
		ClientSecret: os.Getenv("CARRIER_CLIENT_SECRET"),
	})
	paymentClient := payment.NewClient(payment.Config{
		BaseURL:    os.Getenv("PAYMENT_API_URL"),
		APIKey:     os.Getenv("PAYMENT_SECRET_KEY"),
		SuccessURL: os.Getenv("CHECKOUT_SUCCESS_URL"),
		CancelURL:  os.Getenv("CHECKOUT_CANCEL_URL"),
	})

	// Initialize controllers
	checkoutService := checkout.NewService(orders, sessions, catalog, userCarts, paymentClient)
	userController := controllers.NewUserController(client, emailService)
	productController := controllers.NewProductController(client)
	cartController := controllers.NewCartController(userCarts, guestCarts, userCarts, catalog)
	checkoutController := controllers.NewCheckoutController(checkoutService, carrierClient, client, emailService)
	orderController := controllers.NewOrderController(client, emailService)

	// Indexes back the one-cart-per-user and at-most-one-order-per-
	// session invariants.
	indexCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mongoCarts.CreateIndexes(indexCtx); err != nil {
		log.Fatal(err)
	}
	if err := orders.CreateIndexes(indexCtx); err != nil {
		log.Fatal(err)
	}
	if err := sessions.CreateIndexes(indexCtx); err != nil {
		log.Fatal(err)
	}

	// Set up the router and register routes
	router := mux.NewRouter()
	routes.RegisterRoutes(router, userController, productController, cartController, checkoutController, orderController)

	// Start the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	fmt.Printf("Server is running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}
