package database

import (
	"context"
	"database/sql"
	"fmt"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) CreateSupportTicket(ctx context.Context, ticket *models.SupportTicket) error {
	if ticket.Id == "" {
		ticket.Id = uuid.New().String()
	}
	if ticket.Status == "" {
		ticket.Status = "new"
	}

	_, err := s.db.ExecContext(ctx, queryInsertSupportTicket,
		ticket.Id, ticket.UserId, ticket.Email, ticket.Subject, ticket.Message, ticket.Status)
	if err != nil {
		zap.L().Error("Failed to insert support ticket", zap.String("email", ticket.Email), zap.Error(err))
		return fmt.Errorf("unable to insert support ticket: %w", err)
	}

	zap.L().Info("Support ticket created",
		zap.String("ticket_id", ticket.Id),
		zap.String("subject", ticket.Subject))
	return nil
}

func (s *Service) GetSupportTickets(ctx context.Context, userId string) ([]models.SupportTicket, error) {
	rows, err := s.db.QueryContext(ctx, queryGetSupportTickets, userId)
	if err != nil {
		zap.L().Error("Failed to query support tickets", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query support tickets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var tickets []models.SupportTicket
	for rows.Next() {
		var ticket models.SupportTicket
		err := rows.Scan(&ticket.Id, &ticket.UserId, &ticket.Email, &ticket.Subject,
			&ticket.Message, &ticket.Status, &ticket.CreatedAt, &ticket.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan support ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during ticket row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating ticket rows: %w", err)
	}

	return tickets, nil
}

func (s *Service) UpdateTicketStatus(ctx context.Context, ticketId, status string) error {
	if status != "new" && status != "in_progress" && status != "resolved" {
		return fmt.Errorf("invalid ticket status: %s", status)
	}

	result, err := s.db.ExecContext(ctx, queryUpdateTicketStatus, status, ticketId)
	if err != nil {
		return fmt.Errorf("unable to update ticket status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrTicketNotFound, ticketId)
	}

	zap.L().Info("Ticket status updated",
		zap.String("ticket_id", ticketId),
		zap.String("status", status))
	return nil
}

func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	if complaint.Id == "" {
		complaint.Id = uuid.New().String()
	}
	if complaint.Status == "" {
		complaint.Status = "new"
	}

	_, err := s.db.ExecContext(ctx, queryInsertComplaint,
		complaint.Id, complaint.Name, complaint.Email, complaint.Category, complaint.Message, complaint.Status)
	if err != nil {
		zap.L().Error("Failed to insert complaint", zap.String("email", complaint.Email), zap.Error(err))
		return fmt.Errorf("unable to insert complaint: %w", err)
	}

	zap.L().Info("Complaint created",
		zap.String("complaint_id", complaint.Id),
		zap.String("category", complaint.Category))
	return nil
}

func (s *Service) CreateContactMessage(ctx context.Context, message *models.ContactMessage) error {
	if message.Id == "" {
		message.Id = uuid.New().String()
	}
	if message.Status == "" {
		message.Status = "new"
	}

	_, err := s.db.ExecContext(ctx, queryInsertContactMessage,
		message.Id, message.Name, message.Email, message.Subject, message.Message, message.Status)
	if err != nil {
		zap.L().Error("Failed to insert contact message", zap.String("email", message.Email), zap.Error(err))
		return fmt.Errorf("unable to insert contact message: %w", err)
	}

	zap.L().Info("Contact message created", zap.String("message_id", message.Id))
	return nil
}
