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

package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crypto-broker-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// PaymentIntent is the gateway-side record of a card charge in flight.
type PaymentIntent struct {
	Id           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// GatewayClient talks to the card payment gateway over its REST API.
type GatewayClient struct {
	baseURL   string
	secretKey string
	client    http.Client
}

func NewGatewayClient(cfg models.GatewayConfig) *GatewayClient {
	client, err := createCustomHttpClient(cfg.RequestTimeout)
	if err != nil {
		zap.L().Warn("Failed to configure http client, using default", zap.Error(err))
		client = http.Client{Timeout: cfg.RequestTimeout}
	}

	return &GatewayClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		client:    client,
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

// CreatePaymentIntent opens a card charge for the given USD amount. The
// gateway expects the amount in cents as a form-encoded field.
func (c *GatewayClient) CreatePaymentIntent(ctx context.Context, orderId string, usdAmount decimal.Decimal) (*PaymentIntent, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("gateway secret key not configured")
	}

	cents := usdAmount.Mul(decimal.NewFromInt(100)).Round(0)

	form := url.Values{}
	form.Set("amount", cents.String())
	form.Set("currency", "usd")
	form.Set("metadata[order_id]", orderId)

	endpoint := c.baseURL + "/v1/payment_intents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("unable to build payment intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	zap.L().Info("Creating payment intent",
		zap.String("order_id", orderId),
		zap.String("amount_cents", cents.String()))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment intent request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read payment intent response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		zap.L().Error("Payment intent request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("order_id", orderId))
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var intent PaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("unable to decode payment intent response: %w", err)
	}
	if intent.Id == "" {
		return nil, fmt.Errorf("payment gateway returned no intent id")
	}

	zap.L().Info("Payment intent created",
		zap.String("order_id", orderId),
		zap.String("payment_intent_id", intent.Id))

	return &intent, nil
}
