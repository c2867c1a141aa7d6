// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package auth implements account identity for the library: login,
// token issuance, and the account creation used by the CLI.
package auth

import (
	"time"

	"github.com/taibuivan/tosho/internal/platform/sec"
)

// User represents a registered reader account.
//
// # Rules
//   - Username is unique and URL-safe.
//   - Email is unique.
//   - PasswordHash is generated via Bcrypt exclusively via the Service.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`
	CreatedAt    time.Time    `json:"created_at"`
}
