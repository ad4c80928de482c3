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
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crypto-broker-go/internal/payments"
	"crypto-broker-go/internal/store"
)

// GatewayWebhook receives payment events from the gateway. This is the only
// path that settles card-funded buy orders. Authentication is the signed
// payload; the route carries no bearer token.
func (h *Handlers) GatewayWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unable to read body"})
		return
	}

	err = payments.VerifySignature(payload, c.GetHeader("Gateway-Signature"),
		h.cfg.Gateway.WebhookSecret, h.cfg.Gateway.WebhookTolerance)
	if err != nil {
		zap.L().Warn("Rejected gateway webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid signature"})
		return
	}

	event, err := payments.ParseEvent(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	switch event.Type {
	case payments.EventPaymentSucceeded, payments.EventPaymentFailed:
		succeeded := event.Type == payments.EventPaymentSucceeded
		if err := h.orders.SettlePaymentIntent(c.Request.Context(), event.Intent.Id, succeeded); err != nil {
			if errors.Is(err, store.ErrOrderNotFound) {
				// Not an intent we opened; acknowledge so the gateway stops retrying.
				zap.L().Warn("Webhook for unknown payment intent",
					zap.String("payment_intent_id", event.Intent.Id))
				c.JSON(http.StatusOK, gin.H{"success": true, "ignored": true})
				return
			}
			respondError(c, err)
			return
		}
	default:
		zap.L().Info("Ignoring gateway event", zap.String("type", event.Type))
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
