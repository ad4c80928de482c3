/**
 * Copyright 2025-present crypto-broker-go authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"crypto-broker-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Service caches market quotes for the supported assets. The cache is seeded
// from the static fallback prices in the asset catalog, so a quote is always
// available even when the upstream feed has never been reached.
type Service struct {
	cfg     models.PricingConfig
	assets  []models.AssetSpec
	client  http.Client
	breaker *gobreaker.CircuitBreaker[[]models.AssetQuote]

	mu     sync.RWMutex
	quotes map[string]models.AssetQuote

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewService(cfg models.PricingConfig, assets []models.AssetSpec) *Service {
	client, err := createCustomHttpClient(cfg.RequestTimeout)
	if err != nil {
		// http2.ConfigureTransport only fails on an already-configured
		// transport; fall back to the default client.
		zap.L().Warn("Failed to configure http client, using default", zap.Error(err))
		client = http.Client{Timeout: cfg.RequestTimeout}
	}

	breaker := gobreaker.NewCircuitBreaker[[]models.AssetQuote](gobreaker.Settings{
		Name:        "price-feed",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("Price feed breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	quotes := make(map[string]models.AssetQuote, len(assets))
	for _, asset := range assets {
		quotes[asset.Symbol] = models.AssetQuote{
			Symbol: asset.Symbol,
			Name:   asset.Name,
			Price:  asset.FallbackPrice,
			Live:   false,
		}
	}

	return &Service{
		cfg:      cfg,
		assets:   assets,
		client:   client,
		breaker:  breaker,
		quotes:   quotes,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// Start performs an initial refresh and begins the background poll loop.
// A failed initial refresh is not fatal; the fallback prices remain in place.
func (s *Service) Start(ctx context.Context) {
	zap.L().Info("Starting price refresher",
		zap.Duration("refresh_interval", s.cfg.RefreshInterval),
		zap.Int("assets", len(s.assets)))

	s.refresh(ctx)

	go s.pollLoop(ctx)
}

// Stop gracefully stops the price refresher
func (s *Service) Stop() {
	zap.L().Info("Stopping price refresher")
	close(s.stopChan)
	<-s.doneChan
	zap.L().Info("Price refresher stopped")
}

// pollLoop runs the main refresh loop
func (s *Service) pollLoop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) refresh(ctx context.Context) {
	quotes, err := s.breaker.Execute(func() ([]models.AssetQuote, error) {
		return s.fetchMarkets(ctx)
	})
	if err != nil {
		zap.L().Warn("Price refresh failed, serving cached quotes", zap.Error(err))
		return
	}

	s.mu.Lock()
	for _, quote := range quotes {
		s.quotes[quote.Symbol] = quote
	}
	s.mu.Unlock()

	zap.L().Debug("Prices refreshed", zap.Int("count", len(quotes)))
}

// GetQuote returns the current quote for an asset symbol.
func (s *Service) GetQuote(symbol string) (models.AssetQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, ok := s.quotes[symbol]
	if !ok {
		return models.AssetQuote{}, fmt.Errorf("unsupported asset: %s", symbol)
	}
	return quote, nil
}

// GetQuotes returns quotes for all supported assets in catalog order.
func (s *Service) GetQuotes() []models.AssetQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]models.AssetQuote, 0, len(s.assets))
	for _, asset := range s.assets {
		if quote, ok := s.quotes[asset.Symbol]; ok {
			quotes = append(quotes, quote)
		}
	}
	return quotes
}

// marketRow mirrors the upstream markets response. Numeric fields use
// json.Number to keep full precision; nullable fields are pointers.
type marketRow struct {
	Id             string       `json:"id"`
	Name           string       `json:"name"`
	CurrentPrice   *json.Number `json:"current_price"`
	PriceChange24h *json.Number `json:"price_change_percentage_24h"`
	MarketCap      *json.Number `json:"market_cap"`
	TotalVolume    *json.Number `json:"total_volume"`
}

func (s *Service) fetchMarkets(ctx context.Context) ([]models.AssetQuote, error) {
	ids := make([]string, len(s.assets))
	bySourceId := make(map[string]models.AssetSpec, len(s.assets))
	for i, asset := range s.assets {
		ids[i] = asset.CoingeckoId
		bySourceId[asset.CoingeckoId] = asset
	}

	endpoint := fmt.Sprintf("%s/coins/markets?vs_currency=usd&ids=%s",
		s.cfg.BaseURL, url.QueryEscape(strings.Join(ids, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build markets request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("markets request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("markets request returned status %d", resp.StatusCode)
	}

	var rows []marketRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("unable to decode markets response: %w", err)
	}

	now := time.Now()
	var quotes []models.AssetQuote
	for _, row := range rows {
		asset, ok := bySourceId[row.Id]
		if !ok {
			continue
		}

		price, err := parseNumber(row.CurrentPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", row.Id, err)
		}
		if price.IsZero() {
			// A zero price would corrupt order math; keep the cached quote.
			zap.L().Warn("Skipping zero price from feed", zap.String("asset", asset.Symbol))
			continue
		}

		change, err := parseNumber(row.PriceChange24h)
		if err != nil {
			return nil, fmt.Errorf("invalid 24h change for %s: %w", row.Id, err)
		}
		marketCap, err := parseNumber(row.MarketCap)
		if err != nil {
			return nil, fmt.Errorf("invalid market cap for %s: %w", row.Id, err)
		}
		volume, err := parseNumber(row.TotalVolume)
		if err != nil {
			return nil, fmt.Errorf("invalid volume for %s: %w", row.Id, err)
		}

		quotes = append(quotes, models.AssetQuote{
			Symbol:    asset.Symbol,
			Name:      asset.Name,
			Price:     price,
			Change24h: change,
			MarketCap: marketCap,
			Volume24h: volume,
			Live:      true,
			FetchedAt: now,
		})
	}

	if len(quotes) == 0 {
		return nil, fmt.Errorf("markets response contained no known assets")
	}

	return quotes, nil
}

func parseNumber(num *json.Number) (decimal.Decimal, error) {
	if num == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(num.String())
}
