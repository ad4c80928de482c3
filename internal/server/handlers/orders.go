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

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/orders"
)

type placeOrderRequest struct {
	UserId          string          `json:"user_id" binding:"required"`
	Type            string          `json:"type" binding:"required"`
	Asset           string          `json:"asset" binding:"required"`
	UsdAmount       decimal.Decimal `json:"usd_amount"`
	CryptoAmount    decimal.Decimal `json:"crypto_amount"`
	PaymentMethod   string          `json:"payment_method"`
	WalletAddress   string          `json:"wallet_address"`
	ProofOfTransfer string          `json:"proof_of_transfer_url"`
	PayoutDetails   string          `json:"payout_details"`
}

// PlaceOrder places a buy or sell order. Clients pass an Idempotency-Key
// header to make retries safe; a replayed key returns the original order.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	order, replayed, err := h.orders.PlaceOrder(c.Request.Context(), orders.PlaceOrderParams{
		UserId:          req.UserId,
		IdempotencyKey:  c.GetHeader("Idempotency-Key"),
		Type:            req.Type,
		Asset:           req.Asset,
		UsdAmount:       req.UsdAmount,
		CryptoAmount:    req.CryptoAmount,
		PaymentMethod:   req.PaymentMethod,
		WalletAddress:   req.WalletAddress,
		ProofOfTransfer: req.ProofOfTransfer,
		PayoutDetails:   req.PayoutDetails,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, models.OrderResult{
		Success:      true,
		OrderId:      order.Id,
		Status:       order.Status,
		CryptoAmount: order.CryptoAmount,
		FeeAmount:    order.FeeAmount,
		Replayed:     replayed,
	})
}

// AttachCardPayment opens a card charge for a buy order and returns the
// gateway client secret for the checkout page.
func (h *Handlers) AttachCardPayment(c *gin.Context) {
	intent, err := h.orders.AttachCardPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"payment_intent_id": intent.Id,
		"client_secret":     intent.ClientSecret,
	})
}

type convertRequest struct {
	UserId    string          `json:"user_id" binding:"required"`
	Asset     string          `json:"asset" binding:"required"`
	UsdAmount decimal.Decimal `json:"usd_amount"`
}

func (h *Handlers) Convert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	order, replayed, err := h.orders.Convert(c.Request.Context(), orders.ConvertParams{
		UserId:         req.UserId,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
		Asset:          req.Asset,
		UsdAmount:      req.UsdAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, models.ConversionResult{
		Success:         true,
		OrderId:         order.Id,
		ConvertedAmount: order.CryptoAmount,
		ConversionFee:   order.FeeAmount,
	})
}

type claimDepositRequest struct {
	UserId    string          `json:"user_id" binding:"required"`
	Asset     string          `json:"asset" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// ClaimDeposit records a customer's claim that funds were sent to a platform
// address. The balance is credited only after operator approval.
func (h *Handlers) ClaimDeposit(c *gin.Context) {
	var req claimDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	deposit, err := h.orders.ClaimDeposit(c.Request.Context(), req.UserId, req.Asset, req.Amount, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "deposit": deposit})
}
