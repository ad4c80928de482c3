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
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crypto-broker-go/internal/notify"
	"crypto-broker-go/internal/store"
)

// GetPrices returns the current quote for every listed asset. Quotes served
// from the fallback catalog carry live=false.
func (h *Handlers) GetPrices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"prices":  h.quotes.GetQuotes(),
	})
}

// GetWalletAddresses returns the platform deposit addresses.
func (h *Handlers) GetWalletAddresses(c *gin.Context) {
	addresses, err := h.store.GetWalletAddresses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"addresses": addresses,
	})
}

type signupRequest struct {
	UserId   string `json:"user_id"`
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Country  string `json:"country"`
}

// Signup registers a new customer profile. New profiles start with KYC
// pending and the basic tier.
func (h *Handlers) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if req.UserId == "" {
		req.UserId = uuid.New().String()
	}

	profile, err := h.store.CreateProfile(c.Request.Context(), store.CreateProfileParams{
		UserId:   req.UserId,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Country:  req.Country,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.notify(c, notify.Event{
		Kind:    notify.KindUserSignup,
		Subject: fmt.Sprintf("New signup: %s", profile.Email),
		Detail: map[string]string{
			"user_id":   profile.Id,
			"full_name": profile.FullName,
			"country":   profile.Country,
		},
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"profile": profile,
	})
}
