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
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crypto-broker-go/internal/notify"
	"crypto-broker-go/internal/store"
)

func (h *Handlers) AdminListUsers(c *gin.Context) {
	profiles, err := h.store.GetProfiles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": profiles})
}

// AdminExportUsers streams the customer roster as CSV.
func (h *Handlers) AdminExportUsers(c *gin.Context) {
	profiles, err := h.store.GetProfiles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="users.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "full_name", "email", "phone", "country", "kyc_status", "tier", "created_at"})
	for _, p := range profiles {
		_ = w.Write([]string{
			p.Id, p.FullName, p.Email, p.Phone, p.Country,
			p.KYCStatus, p.Tier, p.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	w.Flush()
}

func (h *Handlers) AdminListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ordersList, err := h.store.GetOrders(c.Request.Context(), store.OrderFilter{
		UserId: c.Query("user_id"),
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": ordersList})
}

func (h *Handlers) AdminListDeposits(c *gin.Context) {
	deposits, err := h.store.GetDepositRequests(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deposits": deposits})
}

func (h *Handlers) AdminStats(c *gin.Context) {
	stats, err := h.store.GetAdminStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

type kycReviewRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminReviewKYC sets a user's KYC status. Approval moves the account to the
// advanced tier; denial or a reset to pending moves it back to basic.
func (h *Handlers) AdminReviewKYC(c *gin.Context) {
	var req kycReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	userId := c.Param("id")
	if err := h.store.UpdateKYCStatus(c.Request.Context(), userId, req.Status); err != nil {
		respondError(c, err)
		return
	}

	h.notify(c, notify.Event{
		Kind:    notify.KindKYCReviewed,
		Subject: fmt.Sprintf("KYC %s for user %s", req.Status, userId),
		Detail:  map[string]string{"user_id": userId, "status": req.Status},
	})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type depositReviewRequest struct {
	Approve bool `json:"approve"`
}

func (h *Handlers) AdminReviewDeposit(c *gin.Context) {
	var req depositReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.orders.ReviewDeposit(c.Request.Context(), c.Param("id"), req.Approve); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminUpdateOrderStatus moves an order along its lifecycle. Transitions are
// forward-only; completed and failed orders cannot be reopened.
func (h *Handlers) AdminUpdateOrderStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.store.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type settleSellRequest struct {
	PayoutReference string `json:"payout_reference"`
}

func (h *Handlers) AdminSettleSellOrder(c *gin.Context) {
	var req settleSellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.orders.SettleSellOrder(c.Request.Context(), c.Param("id"), req.PayoutReference); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) AdminUpdateTicketStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.store.UpdateTicketStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
