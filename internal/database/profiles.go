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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crypto-broker-go/internal/models"
	"crypto-broker-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) GetProfiles(ctx context.Context) ([]models.UserProfile, error) {
	zap.L().Debug("Querying user profiles")

	rows, err := s.db.QueryContext(ctx, queryGetProfiles)
	if err != nil {
		zap.L().Error("Failed to query profiles", zap.Error(err))
		return nil, fmt.Errorf("unable to query profiles: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var profiles []models.UserProfile
	for rows.Next() {
		var profile models.UserProfile
		err := rows.Scan(&profile.Id, &profile.FullName, &profile.Email, &profile.Phone,
			&profile.Country, &profile.KYCStatus, &profile.Tier, &profile.CreatedAt, &profile.UpdatedAt)
		if err != nil {
			zap.L().Error("Failed to scan profile row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan profile row: %w", err)
		}

		profiles = append(profiles, profile)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during profile row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating profile rows: %w", err)
	}

	zap.L().Info("Retrieved profiles", zap.Int("count", len(profiles)))
	return profiles, nil
}

func (s *Service) GetProfileById(ctx context.Context, userId string) (*models.UserProfile, error) {
	zap.L().Debug("Querying profile by ID", zap.String("user_id", userId))

	var profile models.UserProfile
	err := s.db.QueryRowContext(ctx, queryGetProfileById, userId).Scan(
		&profile.Id, &profile.FullName, &profile.Email, &profile.Phone,
		&profile.Country, &profile.KYCStatus, &profile.Tier, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrProfileNotFound, userId)
		}
		zap.L().Error("Failed to query profile by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query profile by ID: %w", err)
	}

	return &profile, nil
}

func (s *Service) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	zap.L().Debug("Querying profile by email", zap.String("email", email))

	var profile models.UserProfile
	err := s.db.QueryRowContext(ctx, queryGetProfileByEmail, email).Scan(
		&profile.Id, &profile.FullName, &profile.Email, &profile.Phone,
		&profile.Country, &profile.KYCStatus, &profile.Tier, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrProfileNotFound, email)
		}
		zap.L().Error("Failed to query profile by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to query profile by email: %w", err)
	}

	return &profile, nil
}

func (s *Service) CreateProfile(ctx context.Context, params store.CreateProfileParams) (*models.UserProfile, error) {
	zap.L().Info("Creating profile",
		zap.String("id", params.UserId),
		zap.String("name", params.FullName),
		zap.String("email", params.Email))

	result, err := s.db.ExecContext(ctx, queryInsertProfile,
		params.UserId, params.FullName, params.Email, params.Phone, params.Country,
		models.KYCPending, models.TierBasic)
	if err != nil {
		zap.L().Error("Failed to insert profile", zap.String("email", params.Email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		zap.L().Error("Failed to get rows affected", zap.Error(err))
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, fmt.Errorf("profile with email %s already exists", params.Email)
	}

	zap.L().Info("Profile created successfully", zap.String("id", params.UserId), zap.String("email", params.Email))

	// Return the created profile
	return s.GetProfileByEmail(ctx, params.Email)
}

// UpdateKYCStatus sets the verification status of a profile. Approval also
// promotes the account to the advanced tier; denial demotes it to basic.
func (s *Service) UpdateKYCStatus(ctx context.Context, userId, status string) error {
	if status != models.KYCPending && status != models.KYCApproved && status != models.KYCDenied {
		return fmt.Errorf("invalid kyc status: %s", status)
	}

	tier := models.TierBasic
	if status == models.KYCApproved {
		tier = models.TierAdvanced
	}

	result, err := s.db.ExecContext(ctx, queryUpdateKYCStatus, status, tier, userId)
	if err != nil {
		zap.L().Error("Failed to update KYC status", zap.String("user_id", userId), zap.Error(err))
		return fmt.Errorf("unable to update kyc status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrProfileNotFound, userId)
	}

	zap.L().Info("KYC status updated",
		zap.String("user_id", userId),
		zap.String("status", status),
		zap.String("tier", tier))
	return nil
}
