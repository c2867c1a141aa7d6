// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "context"

// UserRepository abstracts persistence for reader accounts.
type UserRepository interface {
	Create(context context.Context, user *User) error
	FindByID(context context.Context, id string) (*User, error)
	FindByUsername(context context.Context, username string) (*User, error)
	FindByEmail(context context.Context, email string) (*User, error)
}
