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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"crypto-broker-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("SERVER_READ_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("SERVER_WRITE_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	priceTimeout, err := getEnvDuration("PRICE_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	priceRefresh, err := getEnvDuration("PRICE_REFRESH_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	gatewayTimeout, err := getEnvDuration("GATEWAY_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	webhookTolerance, err := getEnvDuration("GATEWAY_WEBHOOK_TOLERANCE", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	buyRate, err := getEnvDecimal("FEE_BUY_RATE", decimal.NewFromFloat(0.05))
	if err != nil {
		return nil, err
	}

	convertRate, err := getEnvDecimal("FEE_CONVERT_RATE", decimal.NewFromFloat(0.01))
	if err != nil {
		return nil, err
	}

	minimumBuy, err := getEnvDecimal("MINIMUM_BUY_USD", decimal.NewFromInt(500))
	if err != nil {
		return nil, err
	}

	convertFeeBase := getEnvString("FEE_CONVERT_BASE", "balance")
	if convertFeeBase != "balance" && convertFeeBase != "amount" {
		return nil, fmt.Errorf("invalid FEE_CONVERT_BASE %q: must be \"balance\" or \"amount\"", convertFeeBase)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "broker.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			SeedDemoUsers:   getEnvBool("SEED_DEMO_USERS", false),
		},
		Server: models.ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvString("SERVER_PORT", "8080"),
			APIToken:        os.Getenv("API_TOKEN"),
			AdminToken:      os.Getenv("ADMIN_TOKEN"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 5),
			RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Pricing: models.PricingConfig{
			BaseURL:         getEnvString("PRICE_API_URL", "https://api.coingecko.com/api/v3"),
			RequestTimeout:  priceTimeout,
			RefreshInterval: priceRefresh,
			AssetsFile:      getEnvString("ASSETS_FILE", "assets.yaml"),
		},
		Gateway: models.GatewayConfig{
			BaseURL:          getEnvString("GATEWAY_API_URL", "https://api.stripe.com"),
			SecretKey:        os.Getenv("GATEWAY_SECRET_KEY"),
			WebhookSecret:    os.Getenv("GATEWAY_WEBHOOK_SECRET"),
			WebhookTolerance: webhookTolerance,
			RequestTimeout:   gatewayTimeout,
		},
		Fees: models.FeeConfig{
			BuyRate:        buyRate,
			ConvertRate:    convertRate,
			ConvertFeeBase: convertFeeBase,
			MinimumBuyUSD:  minimumBuy,
		},
		Notify: models.NotifyConfig{
			NatsURL:    os.Getenv("NATS_URL"),
			Subject:    getEnvString("NOTIFY_SUBJECT", "broker.notifications"),
			AdminEmail: getEnvString("ADMIN_EMAIL", "operations@example.com"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
