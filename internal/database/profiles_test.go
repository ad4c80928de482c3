package database

import (
	"context"
	"errors"
	"testing"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func TestCreateProfile(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	profile, err := service.CreateProfile(ctx, store.CreateProfileParams{
		UserId:   "user1",
		FullName: "Alice Johnson",
		Email:    "alice@example.com",
		Phone:    "+32 470 00 00 00",
		Country:  "BE",
	})
	if err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	if profile.KYCStatus != models.KYCPending {
		t.Errorf("Expected new profile kyc status pending, got %s", profile.KYCStatus)
	}
	if profile.Tier != models.TierBasic {
		t.Errorf("Expected new profile tier basic, got %s", profile.Tier)
	}

	// Duplicate email is rejected
	_, err = service.CreateProfile(ctx, store.CreateProfileParams{
		UserId:   "user2",
		FullName: "Alice Clone",
		Email:    "alice@example.com",
	})
	if err == nil {
		t.Error("Expected error creating profile with duplicate email, got nil")
	}
}

func TestGetProfileById_NotFound(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.GetProfileById(context.Background(), "missing")
	if !errors.Is(err, store.ErrProfileNotFound) {
		t.Errorf("Expected profile not found error, got: %v", err)
	}
}

func TestUpdateKYCStatus(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestProfile(t, service, "user1")

	if err := service.UpdateKYCStatus(ctx, "user1", models.KYCApproved); err != nil {
		t.Fatalf("UpdateKYCStatus failed: %v", err)
	}

	profile, err := service.GetProfileById(ctx, "user1")
	if err != nil {
		t.Fatalf("GetProfileById failed: %v", err)
	}
	if profile.KYCStatus != models.KYCApproved {
		t.Errorf("Expected kyc status approved, got %s", profile.KYCStatus)
	}
	if profile.Tier != models.TierAdvanced {
		t.Errorf("Expected tier advanced after approval, got %s", profile.Tier)
	}

	// Denial demotes back to basic
	if err := service.UpdateKYCStatus(ctx, "user1", models.KYCDenied); err != nil {
		t.Fatalf("UpdateKYCStatus denial failed: %v", err)
	}
	profile, err = service.GetProfileById(ctx, "user1")
	if err != nil {
		t.Fatalf("GetProfileById failed: %v", err)
	}
	if profile.Tier != models.TierBasic {
		t.Errorf("Expected tier basic after denial, got %s", profile.Tier)
	}

	// Unknown status is rejected
	if err := service.UpdateKYCStatus(ctx, "user1", "verified"); err == nil {
		t.Error("Expected error for unknown kyc status, got nil")
	}

	// Unknown user is reported
	err = service.UpdateKYCStatus(ctx, "missing", models.KYCApproved)
	if !errors.Is(err, store.ErrProfileNotFound) {
		t.Errorf("Expected profile not found error, got: %v", err)
	}
}

func TestDepositRequestLifecycle(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestProfile(t, service, "user1")

	deposit, err := service.CreateDepositRequest(ctx, "user1", "USDT", decimal.NewFromInt(750), "bank ref 42")
	if err != nil {
		t.Fatalf("CreateDepositRequest failed: %v", err)
	}
	if deposit.Status != "pending" {
		t.Errorf("Expected pending status, got %s", deposit.Status)
	}
	if !deposit.Amount.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Expected amount 750, got %s", deposit.Amount.String())
	}

	pending, err := service.GetDepositRequests(ctx, "pending")
	if err != nil {
		t.Fatalf("GetDepositRequests failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending deposit, got %d", len(pending))
	}

	if err := service.UpdateDepositStatus(ctx, deposit.Id, "approved"); err != nil {
		t.Fatalf("UpdateDepositStatus failed: %v", err)
	}

	pending, err = service.GetDepositRequests(ctx, "pending")
	if err != nil {
		t.Fatalf("GetDepositRequests failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending deposits after approval, got %d", len(pending))
	}
}

func TestAdminStats(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestProfile(t, service, "user1")
	createTestProfile(t, service, "user2")

	order, err := service.CreateOrder(ctx, store.CreateOrderParams{
		UserId:    "user1",
		Type:      "buy",
		Asset:     "BTC",
		UsdAmount: decimal.NewFromInt(1500),
		Status:    models.OrderProcessing,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if err := service.UpdateOrderStatus(ctx, order.Id, models.OrderCompleted); err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}

	if _, err := service.CreateDepositRequest(ctx, "user2", "BTC", decimal.NewFromFloat(0.5), ""); err != nil {
		t.Fatalf("CreateDepositRequest failed: %v", err)
	}

	stats, err := service.GetAdminStats(ctx)
	if err != nil {
		t.Fatalf("GetAdminStats failed: %v", err)
	}
	if stats.TotalUsers != 2 {
		t.Errorf("Expected 2 users, got %d", stats.TotalUsers)
	}
	if stats.PendingKYC != 2 {
		t.Errorf("Expected 2 pending kyc, got %d", stats.PendingKYC)
	}
	if stats.PendingDeposits != 1 {
		t.Errorf("Expected 1 pending deposit, got %d", stats.PendingDeposits)
	}
	if !stats.TotalVolumeUSD.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected volume 1500, got %s", stats.TotalVolumeUSD.String())
	}
}

func TestAdminStats_FractionalVolume(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	createTestProfile(t, service, "user1")

	// Volume must be summed exactly; 0.1 + 0.2 would come back as
	// 0.30000000000000004 if the amounts were ever coerced to floats.
	for i, amount := range []string{"0.1", "0.2"} {
		order, err := service.CreateOrder(ctx, store.CreateOrderParams{
			UserId:    "user1",
			Type:      "buy",
			Asset:     "BTC",
			UsdAmount: decimal.RequireFromString(amount),
			Status:    models.OrderProcessing,
		})
		if err != nil {
			t.Fatalf("CreateOrder %d failed: %v", i, err)
		}
		if err := service.UpdateOrderStatus(ctx, order.Id, models.OrderCompleted); err != nil {
			t.Fatalf("UpdateOrderStatus %d failed: %v", i, err)
		}
	}

	stats, err := service.GetAdminStats(ctx)
	if err != nil {
		t.Fatalf("GetAdminStats failed: %v", err)
	}
	if !stats.TotalVolumeUSD.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("Expected volume 0.3, got %s", stats.TotalVolumeUSD.String())
	}
}

func TestWalletAddressSeedRoundTrip(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	assets := []models.AssetSpec{
		{Symbol: "BTC", Network: "bitcoin", DepositAddress: "36Ds3LNDjmRMHDk2Y5r9vWbjTFUCTezruY", FallbackPrice: decimal.NewFromInt(45000)},
		{Symbol: "USDT", Network: "tron", DepositAddress: "TEbbs4roSj2CdGqKzNvZHCXGv58Yzhv127", FallbackPrice: decimal.NewFromInt(1)},
		{Symbol: "SOL", Network: "solana", FallbackPrice: decimal.NewFromInt(95)}, // no address configured
	}

	if err := service.SeedWalletAddresses(ctx, assets); err != nil {
		t.Fatalf("SeedWalletAddresses failed: %v", err)
	}
	// Seeding twice must not duplicate rows
	if err := service.SeedWalletAddresses(ctx, assets); err != nil {
		t.Fatalf("Second SeedWalletAddresses failed: %v", err)
	}

	addresses, err := service.GetWalletAddresses(ctx)
	if err != nil {
		t.Fatalf("GetWalletAddresses failed: %v", err)
	}
	if len(addresses) != 2 {
		t.Fatalf("Expected 2 wallet addresses, got %d", len(addresses))
	}

	byAsset := make(map[string]models.WalletAddress)
	for _, addr := range addresses {
		byAsset[addr.Asset] = addr
	}
	if byAsset["BTC"].Address != "36Ds3LNDjmRMHDk2Y5r9vWbjTFUCTezruY" {
		t.Errorf("Unexpected BTC address: %s", byAsset["BTC"].Address)
	}
	if byAsset["USDT"].Network != "tron" {
		t.Errorf("Unexpected USDT network: %s", byAsset["USDT"].Network)
	}
}
