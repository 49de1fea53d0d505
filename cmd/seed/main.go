package main

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"tablepay/internal/auth"
	"tablepay/internal/config"
	"tablepay/internal/db"
	"tablepay/internal/model"
	"tablepay/internal/repository"
)

// Seeds a demo restaurant with one payable order and prints an owner token,
// enough to exercise the config, intent and poll endpoints locally.
func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(
		&model.Restaurant{},
		&model.Order{},
		&model.Payment{},
		&model.PaymentLog{},
		&model.PaymentConfig{},
		&model.WebhookEvent{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	restaurantRepo := repository.NewRestaurantRepository(gormDB)
	orderRepo := repository.NewOrderRepository(gormDB)

	restaurant := &model.Restaurant{
		Name:   "Demo Trattoria",
		Active: true,
	}
	if err := restaurantRepo.Create(ctx, restaurant); err != nil {
		log.Fatalf("Failed to create restaurant: %v", err)
	}
	log.Printf("Created restaurant %s (%s)", restaurant.Name, restaurant.ID)

	order := &model.Order{
		RestaurantID:  restaurant.ID,
		Status:        model.OrderStatusCreated,
		TotalAmount:   decimal.NewFromFloat(42.50),
		Currency:      "USD",
		CustomerName:  "Ada Diner",
		CustomerEmail: "ada@example.com",
	}
	if err := orderRepo.Create(ctx, order); err != nil {
		log.Fatalf("Failed to create order: %v", err)
	}
	log.Printf("Created order %s (%s %s)", order.ID, order.TotalAmount.StringFixed(2), order.Currency)

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	token, err := jwtService.GenerateAccessToken(restaurant.ID, auth.RoleOwner)
	if err != nil {
		log.Fatalf("Failed to generate owner token: %v", err)
	}
	log.Printf("Owner token (expires in %s):", auth.AccessTokenExpiry)
	log.Println("Bearer " + token)

	log.Println("Seed completed")
}
