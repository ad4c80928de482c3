package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T) (*Service, func()) {
	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}

	cleanup := func() {
		service.Close()
	}

	return service, cleanup
}

func createTestProfile(t *testing.T, service *Service, userId string) *models.UserProfile {
	profile, err := service.CreateProfile(context.Background(), store.CreateProfileParams{
		UserId:   userId,
		FullName: "Test User",
		Email:    userId + "@example.com",
	})
	if err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}
	return profile
}

func TestCreateOrder(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestProfile(t, service, "user1")

	order, err := service.CreateOrder(ctx, store.CreateOrderParams{
		UserId:         "user1",
		IdempotencyKey: "key-1",
		Type:           "buy",
		Asset:          "BTC",
		CryptoAmount:   decimal.NewFromFloat(0.019),
		UsdAmount:      decimal.NewFromInt(1000),
		FeeAmount:      decimal.NewFromInt(50),
		QuotePrice:     decimal.NewFromInt(50000),
		PaymentMethod:  "card",
		Status:         models.OrderProcessing,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if order.Id == "" {
		t.Error("Expected order id to be set")
	}
	if order.Status != models.OrderProcessing {
		t.Errorf("Expected status processing, got %s", order.Status)
	}
	if !order.CryptoAmount.Equal(decimal.NewFromFloat(0.019)) {
		t.Errorf("Expected crypto amount 0.019, got %s", order.CryptoAmount.String())
	}

	// Lookup by idempotency key returns the same order
	found, err := service.GetOrderByIdempotencyKey(ctx, "user1", "key-1")
	if err != nil {
		t.Fatalf("GetOrderByIdempotencyKey failed: %v", err)
	}
	if found.Id != order.Id {
		t.Errorf("Expected order %s, got %s", order.Id, found.Id)
	}
}

func TestUpdateOrderStatus_ForwardOnly(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestProfile(t, service, "user1")

	order, err := service.CreateOrder(ctx, store.CreateOrderParams{
		UserId: "user1",
		Type:   "sell",
		Asset:  "ETH",
		Status: models.OrderPending,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	// pending -> processing is allowed
	if err := service.UpdateOrderStatus(ctx, order.Id, models.OrderProcessing); err != nil {
		t.Fatalf("pending -> processing failed: %v", err)
	}

	// processing -> pending is rejected
	err = service.UpdateOrderStatus(ctx, order.Id, models.OrderPending)
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("Expected invalid transition error for processing -> pending, got: %v", err)
	}

	// processing -> completed is allowed
	if err := service.UpdateOrderStatus(ctx, order.Id, models.OrderCompleted); err != nil {
		t.Fatalf("processing -> completed failed: %v", err)
	}

	// Terminal state is frozen
	err = service.UpdateOrderStatus(ctx, order.Id, models.OrderFailed)
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("Expected invalid transition error for completed -> failed, got: %v", err)
	}

	// Repeating the current status is an idempotent no-op
	if err := service.UpdateOrderStatus(ctx, order.Id, models.OrderCompleted); err != nil {
		t.Errorf("Expected repeated completed to be a no-op, got: %v", err)
	}
}

func TestAttachPaymentIntent_OnlyOnce(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestProfile(t, service, "user1")

	order, err := service.CreateOrder(ctx, store.CreateOrderParams{
		UserId: "user1",
		Type:   "buy",
		Asset:  "BTC",
		Status: models.OrderProcessing,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if err := service.AttachPaymentIntent(ctx, order.Id, "pi_123"); err != nil {
		t.Fatalf("AttachPaymentIntent failed: %v", err)
	}

	// Second attach must fail
	if err := service.AttachPaymentIntent(ctx, order.Id, "pi_456"); err == nil {
		t.Error("Expected error attaching a second payment intent, got nil")
	}

	// Lookup by intent finds the order
	found, err := service.GetOrderByPaymentIntent(ctx, "pi_123")
	if err != nil {
		t.Fatalf("GetOrderByPaymentIntent failed: %v", err)
	}
	if found.Id != order.Id {
		t.Errorf("Expected order %s, got %s", order.Id, found.Id)
	}
}

func TestGetOrders_Filtering(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestProfile(t, service, "user1")
	createTestProfile(t, service, "user2")

	seed := []store.CreateOrderParams{
		{UserId: "user1", Type: "buy", Asset: "BTC", Status: models.OrderProcessing},
		{UserId: "user1", Type: "sell", Asset: "ETH", Status: models.OrderPending},
		{UserId: "user2", Type: "buy", Asset: "SOL", Status: models.OrderPending},
	}
	for _, params := range seed {
		if _, err := service.CreateOrder(ctx, params); err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
	}

	all, err := service.GetOrders(ctx, store.OrderFilter{})
	if err != nil {
		t.Fatalf("GetOrders failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 orders, got %d", len(all))
	}

	user1Orders, err := service.GetOrders(ctx, store.OrderFilter{UserId: "user1"})
	if err != nil {
		t.Fatalf("GetOrders for user1 failed: %v", err)
	}
	if len(user1Orders) != 2 {
		t.Errorf("Expected 2 orders for user1, got %d", len(user1Orders))
	}

	pendingBuys, err := service.GetOrders(ctx, store.OrderFilter{Status: models.OrderPending, Type: "buy"})
	if err != nil {
		t.Fatalf("GetOrders for pending buys failed: %v", err)
	}
	if len(pendingBuys) != 1 {
		t.Errorf("Expected 1 pending buy, got %d", len(pendingBuys))
	}
}
