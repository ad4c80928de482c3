package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crypto-broker-go/internal/models"

	"github.com/shopspring/decimal"
)

func testAssets() []models.AssetSpec {
	return []models.AssetSpec{
		{Symbol: "BTC", Name: "Bitcoin", CoingeckoId: "bitcoin", Network: "bitcoin", FallbackPrice: decimal.NewFromInt(45000)},
		{Symbol: "ETH", Name: "Ethereum", CoingeckoId: "ethereum", Network: "ethereum", FallbackPrice: decimal.NewFromInt(3200)},
	}
}

func testConfig(baseURL string) models.PricingConfig {
	return models.PricingConfig{
		BaseURL:         baseURL,
		RequestTimeout:  2 * time.Second,
		RefreshInterval: time.Hour,
	}
}

func TestGetQuote_FallbackBeforeFirstRefresh(t *testing.T) {
	service := NewService(testConfig("http://unused"), testAssets())

	quote, err := service.GetQuote("BTC")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote.Live {
		t.Error("Expected fallback quote before first refresh")
	}
	if !quote.Price.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("Expected fallback price 45000, got %s", quote.Price.String())
	}

	if _, err := service.GetQuote("DOGE"); err == nil {
		t.Error("Expected error for unsupported asset, got nil")
	}
}

func TestRefresh_UpdatesQuotesFromFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"bitcoin","name":"Bitcoin","current_price":67123.45,"price_change_percentage_24h":1.2,"market_cap":1300000000000,"total_volume":25000000000},
			{"id":"ethereum","name":"Ethereum","current_price":3456.78,"price_change_percentage_24h":-0.5,"market_cap":420000000000,"total_volume":12000000000}
		]`))
	}))
	defer srv.Close()

	service := NewService(testConfig(srv.URL), testAssets())
	service.refresh(context.Background())

	quote, err := service.GetQuote("BTC")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if !quote.Live {
		t.Error("Expected live quote after refresh")
	}
	if !quote.Price.Equal(decimal.NewFromFloat(67123.45)) {
		t.Errorf("Expected price 67123.45, got %s", quote.Price.String())
	}

	quotes := service.GetQuotes()
	if len(quotes) != 2 {
		t.Fatalf("Expected 2 quotes, got %d", len(quotes))
	}
	// Catalog order is preserved
	if quotes[0].Symbol != "BTC" || quotes[1].Symbol != "ETH" {
		t.Errorf("Unexpected quote order: %s, %s", quotes[0].Symbol, quotes[1].Symbol)
	}
}

func TestRefresh_KeepsCacheOnFeedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	service := NewService(testConfig(srv.URL), testAssets())
	service.refresh(context.Background())

	quote, err := service.GetQuote("ETH")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote.Live {
		t.Error("Expected fallback quote after failed refresh")
	}
	if !quote.Price.Equal(decimal.NewFromInt(3200)) {
		t.Errorf("Expected fallback price 3200, got %s", quote.Price.String())
	}
}

func TestRefresh_SkipsZeroPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"bitcoin","name":"Bitcoin","current_price":0,"price_change_percentage_24h":null,"market_cap":null,"total_volume":null},
			{"id":"ethereum","name":"Ethereum","current_price":3456.78,"price_change_percentage_24h":null,"market_cap":null,"total_volume":null}
		]`))
	}))
	defer srv.Close()

	service := NewService(testConfig(srv.URL), testAssets())
	service.refresh(context.Background())

	btc, err := service.GetQuote("BTC")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if btc.Live || !btc.Price.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("Expected BTC to keep fallback quote, got live=%v price=%s", btc.Live, btc.Price.String())
	}

	eth, err := service.GetQuote("ETH")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if !eth.Live {
		t.Error("Expected ETH quote to be live")
	}
}
