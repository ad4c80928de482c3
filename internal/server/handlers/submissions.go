package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/notify"
)

type supportTicketRequest struct {
	UserId  string `json:"user_id"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (h *Handlers) CreateSupportTicket(c *gin.Context) {
	var req supportTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	ticket := &models.SupportTicket{
		UserId:  req.UserId,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := h.store.CreateSupportTicket(c.Request.Context(), ticket); err != nil {
		respondError(c, err)
		return
	}

	h.notify(c, notify.Event{
		Kind:    notify.KindTicketOpened,
		Subject: fmt.Sprintf("Support ticket: %s", ticket.Subject),
		Detail: map[string]string{
			"ticket_id": ticket.Id,
			"user_id":   ticket.UserId,
			"email":     ticket.Email,
		},
	})

	c.JSON(http.StatusCreated, gin.H{"success": true, "ticket": ticket})
}

type complaintRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Category string `json:"category"`
	Message  string `json:"message" binding:"required"`
}

func (h *Handlers) CreateComplaint(c *gin.Context) {
	var req complaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	complaint := &models.Complaint{
		Name:     req.Name,
		Email:    req.Email,
		Category: req.Category,
		Message:  req.Message,
	}
	insertErr := h.store.CreateComplaint(c.Request.Context(), complaint)

	// The operations desk hears about every complaint, even when the insert
	// fails; the notification is the escalation path of last resort.
	h.notify(c, notify.Event{
		Kind:    notify.KindComplaintFiled,
		Subject: fmt.Sprintf("Complaint from %s", complaint.Email),
		Detail: map[string]string{
			"name":     complaint.Name,
			"category": complaint.Category,
		},
	})

	if insertErr != nil {
		respondError(c, insertErr)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "complaint": complaint})
}

type contactMessageRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

func (h *Handlers) CreateContactMessage(c *gin.Context) {
	var req contactMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	message := &models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := h.store.CreateContactMessage(c.Request.Context(), message); err != nil {
		respondError(c, err)
		return
	}

	h.notify(c, notify.Event{
		Kind:    notify.KindContactReceived,
		Subject: fmt.Sprintf("Contact message from %s", message.Email),
		Detail: map[string]string{
			"name":    message.Name,
			"subject": message.Subject,
		},
	})

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": message})
}
