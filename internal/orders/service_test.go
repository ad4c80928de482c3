package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"crypto-broker-go/internal/database"
	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/notify"
	"crypto-broker-go/internal/payments"
	"crypto-broker-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

type stubPrices struct {
	quotes map[string]decimal.Decimal
}

func (s *stubPrices) GetQuote(symbol string) (models.AssetQuote, error) {
	price, ok := s.quotes[symbol]
	if !ok {
		return models.AssetQuote{}, fmt.Errorf("unsupported asset: %s", symbol)
	}
	return models.AssetQuote{Symbol: symbol, Price: price, Live: true}, nil
}

type stubGateway struct {
	calls int
	fail  bool
}

func (s *stubGateway) CreatePaymentIntent(_ context.Context, orderId string, _ decimal.Decimal) (*payments.PaymentIntent, error) {
	s.calls++
	if s.fail {
		return nil, fmt.Errorf("gateway unavailable")
	}
	return &payments.PaymentIntent{
		Id:           fmt.Sprintf("pi_%s_%d", orderId[:8], s.calls),
		ClientSecret: "secret",
		Status:       "requires_payment_method",
	}, nil
}

func testFees() models.FeeConfig {
	return models.FeeConfig{
		BuyRate:        decimal.NewFromFloat(0.05),
		ConvertRate:    decimal.NewFromFloat(0.01),
		ConvertFeeBase: "balance",
		MinimumBuyUSD:  decimal.NewFromInt(500),
	}
}

func setupTest(t *testing.T) (*Service, *database.Service, *stubGateway, func()) {
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	prices := &stubPrices{quotes: map[string]decimal.Decimal{
		"BTC": decimal.NewFromInt(50000),
		"ETH": decimal.NewFromInt(100),
	}}
	gateway := &stubGateway{}

	service := NewService(db, prices, gateway, &notify.LogNotifier{}, testFees())

	cleanup := func() {
		db.Close()
	}
	return service, db, gateway, cleanup
}

func seedProfile(t *testing.T, db *database.Service, userId string) {
	_, err := db.CreateProfile(context.Background(), store.CreateProfileParams{
		UserId:   userId,
		FullName: "Test User",
		Email:    userId + "@example.com",
	})
	if err != nil {
		t.Fatalf("Failed to seed profile: %v", err)
	}
}

func seedBalance(t *testing.T, db *database.Service, userId, asset string, amount decimal.Decimal) {
	_, err := db.ProcessEntry(context.Background(), store.EntryParams{
		UserId:      userId,
		Asset:       asset,
		EntryType:   "deposit",
		Amount:      amount,
		ExternalRef: fmt.Sprintf("seed:%s:%s", userId, asset),
	})
	if err != nil {
		t.Fatalf("Failed to seed balance: %v", err)
	}
}

func TestPlaceBuyOrder_FeeAndCredit(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")

	order, replayed, err := service.PlaceOrder(ctx, PlaceOrderParams{
		UserId:        "user1",
		Type:          "buy",
		Asset:         "BTC",
		UsdAmount:     decimal.NewFromInt(1000),
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if replayed {
		t.Error("Expected a fresh order, got replay")
	}

	// 5% fee on 1000 USD, remainder at 50000 USD/BTC
	if !order.FeeAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected fee 50, got %s", order.FeeAmount.String())
	}
	if !order.CryptoAmount.Equal(decimal.NewFromFloat(0.019)) {
		t.Errorf("Expected crypto amount 0.019, got %s", order.CryptoAmount.String())
	}
	if order.Status != models.OrderProcessing {
		t.Errorf("Expected buy order to start processing, got %s", order.Status)
	}

	// No crypto is credited until the payment settles
	balance, err := db.GetUserBalance(ctx, "user1", "BTC")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("Expected zero BTC before settlement, got %s", balance.String())
	}
}

func TestPlaceBuyOrder_BelowMinimum(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	seedProfile(t, db, "user1")

	_, _, err := service.PlaceOrder(context.Background(), PlaceOrderParams{
		UserId:    "user1",
		Type:      "buy",
		Asset:     "BTC",
		UsdAmount: decimal.NewFromInt(499),
	})
	if !errors.Is(err, ErrBelowMinimum) {
		t.Errorf("Expected below minimum error, got: %v", err)
	}
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")

	params := PlaceOrderParams{
		UserId:         "user1",
		IdempotencyKey: "attempt-1",
		Type:           "buy",
		Asset:          "BTC",
		UsdAmount:      decimal.NewFromInt(1000),
	}

	first, _, err := service.PlaceOrder(ctx, params)
	if err != nil {
		t.Fatalf("First PlaceOrder failed: %v", err)
	}

	second, replayed, err := service.PlaceOrder(ctx, params)
	if err != nil {
		t.Fatalf("Second PlaceOrder failed: %v", err)
	}
	if !replayed {
		t.Error("Expected replay on repeated idempotency key")
	}
	if second.Id != first.Id {
		t.Errorf("Expected same order id %s, got %s", first.Id, second.Id)
	}

	all, err := db.GetOrders(ctx, store.OrderFilter{UserId: "user1"})
	if err != nil {
		t.Fatalf("GetOrders failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 order after replay, got %d", len(all))
	}
}

func TestPlaceSellOrder_DebitsBalance(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")
	seedBalance(t, db, "user1", "ETH", decimal.NewFromInt(10))

	order, _, err := service.PlaceOrder(ctx, PlaceOrderParams{
		UserId:        "user1",
		Type:          "sell",
		Asset:         "ETH",
		CryptoAmount:  decimal.NewFromInt(4),
		PayoutDetails: "IBAN BE71 0961 2345 6769",
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if order.Status != models.OrderPending {
		t.Errorf("Expected sell order to start pending, got %s", order.Status)
	}
	if !order.UsdAmount.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected usd amount 400, got %s", order.UsdAmount.String())
	}

	balance, err := db.GetUserBalance(ctx, "user1", "ETH")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Expected ETH balance 6 after sell debit, got %s", balance.String())
	}
}

func TestPlaceSellOrder_OverdraftLeavesNoOrder(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")
	seedBalance(t, db, "user1", "ETH", decimal.NewFromInt(1))

	_, _, err := service.PlaceOrder(ctx, PlaceOrderParams{
		UserId:       "user1",
		Type:         "sell",
		Asset:        "ETH",
		CryptoAmount: decimal.NewFromInt(5),
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("Expected insufficient balance error, got: %v", err)
	}

	all, err := db.GetOrders(ctx, store.OrderFilter{UserId: "user1"})
	if err != nil {
		t.Fatalf("GetOrders failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("Expected no order rows after rejected sell, got %d", len(all))
	}

	balance, err := db.GetUserBalance(ctx, "user1", "ETH")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected balance untouched at 1, got %s", balance.String())
	}
}

func TestAttachCardPayment(t *testing.T) {
	service, db, gateway, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")

	order, _, err := service.PlaceOrder(ctx, PlaceOrderParams{
		UserId:        "user1",
		Type:          "buy",
		Asset:         "BTC",
		UsdAmount:     decimal.NewFromInt(1000),
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	intent, err := service.AttachCardPayment(ctx, order.Id)
	if err != nil {
		t.Fatalf("AttachCardPayment failed: %v", err)
	}
	if gateway.calls != 1 {
		t.Errorf("Expected 1 gateway call, got %d", gateway.calls)
	}

	// The order stays processing until the webhook settles it
	updated, err := db.GetOrderById(ctx, order.Id)
	if err != nil {
		t.Fatalf("GetOrderById failed: %v", err)
	}
	if updated.Status != models.OrderProcessing {
		t.Errorf("Expected processing after card attach, got %s", updated.Status)
	}
	if updated.PaymentIntentId != intent.Id {
		t.Errorf("Expected intent %s attached, got %s", intent.Id, updated.PaymentIntentId)
	}

	// A second attach is rejected
	if _, err := service.AttachCardPayment(ctx, order.Id); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("Expected invalid order error on second attach, got: %v", err)
	}
}

func TestSettlePaymentIntent_SuccessAndReplay(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")

	order, _, err := service.PlaceOrder(ctx, PlaceOrderParams{
		UserId:        "user1",
		Type:          "buy",
		Asset:         "BTC",
		UsdAmount:     decimal.NewFromInt(1000),
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	intent, err := service.AttachCardPayment(ctx, order.Id)
	if err != nil {
		t.Fatalf("AttachCardPayment failed: %v", err)
	}

	if err := service.SettlePaymentIntent(ctx, intent.Id, true); err != nil {
		t.Fatalf("SettlePaymentIntent failed: %v", err)
	}

	settled, err := db.GetOrderById(ctx, order.Id)
	if err != nil {
		t.Fatalf("GetOrderById failed: %v", err)
	}
	if settled.Status != models.OrderCompleted {
		t.Errorf("Expected completed after settlement, got %s", settled.Status)
	}

	balance, err := db.GetUserBalance(ctx, "user1", "BTC")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromFloat(0.019)) {
		t.Errorf("Expected BTC balance 0.019 after settlement, got %s", balance.String())
	}

	// Replayed webhook must not double-credit
	if err := service.SettlePaymentIntent(ctx, intent.Id, true); err != nil {
		t.Fatalf("Replayed SettlePaymentIntent failed: %v", err)
	}
	balance, err = db.GetUserBalance(ctx, "user1", "BTC")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromFloat(0.019)) {
		t.Errorf("Expected BTC balance 0.019 after replay, got %s", balance.String())
	}

	// A conflicting failed event after settlement is ignored
	if err := service.SettlePaymentIntent(ctx, intent.Id, false); err != nil {
		t.Errorf("Expected conflicting event to be ignored, got: %v", err)
	}
	final, err := db.GetOrderById(ctx, order.Id)
	if err != nil {
		t.Fatalf("GetOrderById failed: %v", err)
	}
	if final.Status != models.OrderCompleted {
		t.Errorf("Expected order to stay completed, got %s", final.Status)
	}
}

func TestSettlePaymentIntent_Failure(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")

	order, _, err := service.PlaceOrder(ctx, PlaceOrderParams{
		UserId:        "user1",
		Type:          "buy",
		Asset:         "BTC",
		UsdAmount:     decimal.NewFromInt(1000),
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	intent, err := service.AttachCardPayment(ctx, order.Id)
	if err != nil {
		t.Fatalf("AttachCardPayment failed: %v", err)
	}

	if err := service.SettlePaymentIntent(ctx, intent.Id, false); err != nil {
		t.Fatalf("SettlePaymentIntent failed: %v", err)
	}

	failed, err := db.GetOrderById(ctx, order.Id)
	if err != nil {
		t.Fatalf("GetOrderById failed: %v", err)
	}
	if failed.Status != models.OrderFailed {
		t.Errorf("Expected failed status, got %s", failed.Status)
	}

	balance, err := db.GetUserBalance(ctx, "user1", "BTC")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("Expected no BTC credit on failed payment, got %s", balance.String())
	}
}

func TestConvert_BalanceBaseFee(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")
	seedBalance(t, db, "user1", USD, decimal.NewFromInt(2000))

	order, replayed, err := service.Convert(ctx, ConvertParams{
		UserId:    "user1",
		Asset:     "ETH",
		UsdAmount: decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if replayed {
		t.Error("Expected a fresh conversion, got replay")
	}

	// 1% of the whole 2000 USD balance = 20 USD fee; (500-20)/100 = 4.80 ETH
	if !order.FeeAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected fee 20, got %s", order.FeeAmount.String())
	}
	if !order.CryptoAmount.Equal(decimal.NewFromFloat(4.8)) {
		t.Errorf("Expected crypto amount 4.8, got %s", order.CryptoAmount.String())
	}
	if order.Status != models.OrderCompleted {
		t.Errorf("Expected completed conversion, got %s", order.Status)
	}

	usdBalance, err := db.GetUserBalance(ctx, "user1", USD)
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !usdBalance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected USD balance 1500, got %s", usdBalance.String())
	}

	ethBalance, err := db.GetUserBalance(ctx, "user1", "ETH")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !ethBalance.Equal(decimal.NewFromFloat(4.8)) {
		t.Errorf("Expected ETH balance 4.8, got %s", ethBalance.String())
	}
}

func TestConvert_AmountBaseFee(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	// Same conversion with the fee based on the converted amount
	fees := testFees()
	fees.ConvertFeeBase = "amount"
	service.fees = fees

	ctx := context.Background()
	seedProfile(t, db, "user1")
	seedBalance(t, db, "user1", USD, decimal.NewFromInt(2000))

	order, _, err := service.Convert(ctx, ConvertParams{
		UserId:    "user1",
		Asset:     "ETH",
		UsdAmount: decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	// 1% of 500 = 5 USD fee; (500-5)/100 = 4.95 ETH
	if !order.FeeAmount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected fee 5, got %s", order.FeeAmount.String())
	}
	if !order.CryptoAmount.Equal(decimal.NewFromFloat(4.95)) {
		t.Errorf("Expected crypto amount 4.95, got %s", order.CryptoAmount.String())
	}
}

func TestConvert_InsufficientBalance(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")
	seedBalance(t, db, "user1", USD, decimal.NewFromInt(100))

	_, _, err := service.Convert(ctx, ConvertParams{
		UserId:    "user1",
		Asset:     "ETH",
		UsdAmount: decimal.NewFromInt(500),
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Errorf("Expected insufficient balance error, got: %v", err)
	}
}

// flakyStore fails a configurable number of convert credits to exercise
// recovery from a crash between the USD debit and the crypto credit.
type flakyStore struct {
	store.BrokerStore
	failCredits int
}

func (f *flakyStore) ProcessEntry(ctx context.Context, params store.EntryParams) (*models.LedgerEntry, error) {
	if params.EntryType == "convert_credit" && f.failCredits > 0 {
		f.failCredits--
		return nil, fmt.Errorf("simulated storage outage")
	}
	return f.BrokerStore.ProcessEntry(ctx, params)
}

func TestConvert_ResumesAfterPartialFailure(t *testing.T) {
	_, db, _, cleanup := setupTest(t)
	defer cleanup()

	flaky := &flakyStore{BrokerStore: db, failCredits: 1}
	prices := &stubPrices{quotes: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(100)}}
	service := NewService(flaky, prices, &stubGateway{}, &notify.LogNotifier{}, testFees())

	ctx := context.Background()
	seedProfile(t, db, "user1")
	seedBalance(t, db, "user1", USD, decimal.NewFromInt(2000))

	params := ConvertParams{
		UserId:         "user1",
		IdempotencyKey: "convert-retry-1",
		Asset:          "ETH",
		UsdAmount:      decimal.NewFromInt(500),
	}

	// First attempt debits the USD, then dies before the ETH credit lands.
	if _, _, err := service.Convert(ctx, params); err == nil {
		t.Fatal("Expected first conversion attempt to fail")
	}

	stranded, err := db.GetOrderByIdempotencyKey(ctx, "user1", "convert-retry-1")
	if err != nil {
		t.Fatalf("GetOrderByIdempotencyKey failed: %v", err)
	}
	if stranded.Status != models.OrderPending {
		t.Fatalf("Expected stranded order to stay pending, got %s", stranded.Status)
	}
	usdBalance, err := db.GetUserBalance(ctx, "user1", USD)
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !usdBalance.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("Expected USD debit to have applied, balance is %s", usdBalance.String())
	}

	// Retrying with the same key must finish the settlement, not strand the
	// debited funds behind a pending order.
	order, replayed, err := service.Convert(ctx, params)
	if err != nil {
		t.Fatalf("Retried conversion failed: %v", err)
	}
	if !replayed {
		t.Error("Expected the retry to be a replay")
	}
	if order.Status != models.OrderCompleted {
		t.Errorf("Expected completed order after retry, got %s", order.Status)
	}

	// 1% of the 2000 USD balance is a 20 USD fee; the rest buys ETH at 100.
	ethBalance, err := db.GetUserBalance(ctx, "user1", "ETH")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !ethBalance.Equal(decimal.NewFromFloat(4.8)) {
		t.Errorf("Expected 4.8 ETH after retry, got %s", ethBalance.String())
	}
	usdBalance, err = db.GetUserBalance(ctx, "user1", USD)
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !usdBalance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected USD debited exactly once, balance is %s", usdBalance.String())
	}
}

func TestReviewDeposit(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")

	deposit, err := service.ClaimDeposit(ctx, "user1", "USDT", decimal.NewFromInt(750), "bank ref")
	if err != nil {
		t.Fatalf("ClaimDeposit failed: %v", err)
	}

	if err := service.ReviewDeposit(ctx, deposit.Id, true); err != nil {
		t.Fatalf("ReviewDeposit failed: %v", err)
	}

	balance, err := db.GetUserBalance(ctx, "user1", "USDT")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Expected USDT balance 750 after approval, got %s", balance.String())
	}

	// A second review of the same deposit is rejected
	if err := service.ReviewDeposit(ctx, deposit.Id, true); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("Expected invalid order error on double review, got: %v", err)
	}
}

func TestSettleSellOrder(t *testing.T) {
	service, db, _, cleanup := setupTest(t)
	defer cleanup()

	ctx := context.Background()
	seedProfile(t, db, "user1")
	seedBalance(t, db, "user1", "ETH", decimal.NewFromInt(10))

	order, _, err := service.PlaceOrder(ctx, PlaceOrderParams{
		UserId:       "user1",
		Type:         "sell",
		Asset:        "ETH",
		CryptoAmount: decimal.NewFromInt(4),
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if err := service.SettleSellOrder(ctx, order.Id, "payout-123"); err != nil {
		t.Fatalf("SettleSellOrder failed: %v", err)
	}

	usdBalance, err := db.GetUserBalance(ctx, "user1", USD)
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !usdBalance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected USD balance 400 after payout, got %s", usdBalance.String())
	}

	settled, err := db.GetOrderById(ctx, order.Id)
	if err != nil {
		t.Fatalf("GetOrderById failed: %v", err)
	}
	if settled.Status != models.OrderCompleted {
		t.Errorf("Expected completed sell order, got %s", settled.Status)
	}
	if settled.TransactionHash != "payout-123" {
		t.Errorf("Expected payout reference recorded, got %s", settled.TransactionHash)
	}
}
