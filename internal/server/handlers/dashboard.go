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
	"strconv"

	"github.com/gin-gonic/gin"

	"crypto-broker-go/internal/models"
)

func (h *Handlers) GetProfile(c *gin.Context) {
	profile, err := h.store.GetProfileById(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

func (h *Handlers) GetBalances(c *gin.Context) {
	balances, err := h.store.GetAllUserBalances(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	view := make([]models.UserBalance, 0, len(balances))
	for _, b := range balances {
		view = append(view, models.UserBalance{Asset: b.Asset, Balance: b.Balance})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "balances": view})
}

// GetTransactions returns the user's ledger history, newest first. The asset
// query parameter narrows the result to one asset.
func (h *Handlers) GetTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.store.GetLedgerHistory(c.Request.Context(), c.Param("id"), c.Query("asset"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	view := make([]models.LedgerEntryRecord, 0, len(entries))
	for _, e := range entries {
		view = append(view, models.LedgerEntryRecord{
			Id:          e.Id,
			Type:        e.EntryType,
			Asset:       e.Asset,
			Amount:      e.Amount,
			Status:      e.Status,
			ProcessedAt: e.ProcessedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": view})
}

func (h *Handlers) GetTickets(c *gin.Context) {
	tickets, err := h.store.GetSupportTickets(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tickets": tickets})
}
