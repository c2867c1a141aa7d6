// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/tosho/internal/platform/apperr"
	"github.com/taibuivan/tosho/internal/platform/constants"
	"github.com/taibuivan/tosho/internal/platform/sec"
	"github.com/taibuivan/tosho/pkg/uuid"
)

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	GenerateAccessToken(userID, username, role string, timeToLive time.Duration) (string, error)
}

// Service implements account use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing,
// registration, or login logic must be reviewed carefully.
type Service struct {
	userRepository UserRepository
	tokenProvider  TokenProvider
}

func NewService(userRepo UserRepository, tokenProv TokenProvider) *Service {
	return &Service{
		userRepository: userRepo,
		tokenProvider:  tokenProv,
	}
}

// RegisterInput holds the data required to enroll a new reader.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     sec.UserRole
}

// Register validates, hashes, and persists a new reader account.
// The role defaults to standard; admin accounts come from the CLI.
//
// # Business Rules
//   - Emails must be unique.
//   - Usernames must be unique.
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {
	// Uniqueness checks return client-safe Conflict errors.
	if _, err := service.userRepository.FindByEmail(context, input.Email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}
	if _, err := service.userRepository.FindByUsername(context, input.Username); err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Prevent storing plain-text passwords.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	role := input.Role
	if role == "" {
		role = sec.RoleStandard
	}

	user := &User{
		ID:           uuid.New(), // Time-sortable ID to prevent PG index fragmentation.
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         role,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}
	return user, nil
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Login    string // Can be Username or Email
	Password string
}

// LoginSession represents a successfully authenticated login.
type LoginSession struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// Login validates credentials and issues the access token.
//
// # Flow
//  1. Lookup user by login (email or username).
//  2. Verify password hash using Bcrypt.
//  3. Generate a JWT valid for a reading session.
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	user, err := service.userRepository.FindByEmail(context, input.Login)
	if err != nil {
		user, err = service.userRepository.FindByUsername(context, input.Login)
	}

	// Generic unauthorized error to prevent username enumeration.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// A token covers a long evening of reading without re-login.
	accessToken, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Username, string(user.Role), constants.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return &LoginSession{AccessToken: accessToken, User: user}, nil
}

// Me returns the account behind a verified token subject.
func (service *Service) Me(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}
