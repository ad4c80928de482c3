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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/notify"
	"crypto-broker-go/internal/orders"
	"crypto-broker-go/internal/server/middleware"
	"crypto-broker-go/internal/store"
)

// QuoteSource supplies the current asset quotes for the public price feed.
type QuoteSource interface {
	GetQuotes() []models.AssetQuote
}

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	store    store.BrokerStore
	orders   *orders.Service
	quotes   QuoteSource
	notifier notify.Notifier
	cfg      *models.Config
}

func New(brokerStore store.BrokerStore, orderService *orders.Service, quotes QuoteSource, notifier notify.Notifier, cfg *models.Config) *Handlers {
	return &Handlers{
		store:    brokerStore,
		orders:   orderService,
		quotes:   quotes,
		notifier: notifier,
		cfg:      cfg,
	}
}

// notify delivers an operator notification. Delivery problems are logged and
// never fail the request.
func (h *Handlers) notify(c *gin.Context, event notify.Event) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(c.Request.Context(), event); err != nil {
		zap.L().Warn("Failed to deliver notification",
			zap.String("kind", event.Kind),
			zap.Error(err))
	}
}

// SetupHandlers registers all routes. The public API group requires the API
// token and is rate limited per client IP; the admin group requires the admin
// token; the gateway webhook authenticates by signature alone.
func (h *Handlers) SetupHandlers(router *gin.Engine) {
	router.GET("/health", h.Health)

	limiter := middleware.NewRateLimitStore(h.cfg.Server.RateLimitRPS, h.cfg.Server.RateLimitBurst)

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	api.Use(middleware.BearerAuth(h.cfg.Server.APIToken))
	{
		api.GET("/prices", h.GetPrices)
		api.GET("/wallet-addresses", h.GetWalletAddresses)
		api.POST("/signup", h.Signup)

		users := api.Group("/users/:id")
		{
			users.GET("/profile", h.GetProfile)
			users.GET("/balances", h.GetBalances)
			users.GET("/transactions", h.GetTransactions)
			users.GET("/tickets", h.GetTickets)
		}

		api.POST("/orders", h.PlaceOrder)
		api.POST("/orders/:id/card-payment", h.AttachCardPayment)
		api.POST("/conversions", h.Convert)
		api.POST("/deposits", h.ClaimDeposit)

		api.POST("/support-tickets", h.CreateSupportTicket)
		api.POST("/complaints", h.CreateComplaint)
		api.POST("/contact-messages", h.CreateContactMessage)
	}

	router.POST("/webhooks/payment-gateway", h.GatewayWebhook)

	admin := router.Group("/admin/v1")
	admin.Use(middleware.BearerAuth(h.cfg.Server.AdminToken))
	{
		admin.GET("/users", h.AdminListUsers)
		admin.GET("/users/export", h.AdminExportUsers)
		admin.GET("/orders", h.AdminListOrders)
		admin.GET("/deposits", h.AdminListDeposits)
		admin.GET("/stats", h.AdminStats)

		admin.POST("/users/:id/kyc", h.AdminReviewKYC)
		admin.POST("/deposits/:id/status", h.AdminReviewDeposit)
		admin.POST("/orders/:id/status", h.AdminUpdateOrderStatus)
		admin.POST("/orders/:id/settle-sell", h.AdminSettleSellOrder)
		admin.POST("/tickets/:id/status", h.AdminUpdateTicketStatus)
	}
}

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, store.ErrProfileNotFound),
		errors.Is(err, store.ErrOrderNotFound),
		errors.Is(err, store.ErrDepositNotFound),
		errors.Is(err, store.ErrTicketNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, orders.ErrBelowMinimum),
		errors.Is(err, orders.ErrInvalidOrder):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		zap.L().Error("Request failed", zap.Error(err))
	}

	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
