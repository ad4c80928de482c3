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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserBalance represents a user's balance for a specific asset
type UserBalance struct {
	Asset   string          `json:"asset"`
	Balance decimal.Decimal `json:"balance"`
}

// OrderResult is returned after placing or settling an order.
type OrderResult struct {
	Success      bool            `json:"success"`
	OrderId      string          `json:"transactionId,omitempty"`
	Status       string          `json:"status,omitempty"`
	CryptoAmount decimal.Decimal `json:"cryptoAmount,omitempty"`
	FeeAmount    decimal.Decimal `json:"platformFee,omitempty"`
	Replayed     bool            `json:"replayed,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ConversionResult is returned by the conversion endpoint.
type ConversionResult struct {
	Success         bool            `json:"success"`
	OrderId         string          `json:"transactionId,omitempty"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount,omitempty"`
	ConversionFee   decimal.Decimal `json:"conversionFee,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// LedgerEntryRecord represents a ledger entry in the user's history view.
type LedgerEntryRecord struct {
	Id          string          `json:"id"`
	Type        string          `json:"type"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	ProcessedAt time.Time       `json:"processed_at"`
}
