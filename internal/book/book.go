// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import (
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/tosho/internal/platform/sec"
)

// Book is one catalog row. The filename is the stable identity: it is
// both the primary key and the name of the EPUB archive in the book
// directory.
type Book struct {
	Filename    string       `json:"filename"`
	Title       string       `json:"title"`
	Author      string       `json:"author"`
	Genre       string       `json:"genre"`
	AccessLevel sec.UserRole `json:"-"`
	CoverPath   string       `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UploadedBy  *uuid.UUID   `json:"-"`
}

// Filter holds the catalog search predicates. The free-text fields
// are matched word by word: every word must appear in its field,
// case-insensitively. Tags mix free-form names with the reading
// status vocabulary.
type Filter struct {
	Title  string
	Author string
	Genre  string
	Tags   []string
}

// Viewer identifies the caller for access-tier and per-user filters.
// UserID is nil for anonymous browsing.
type Viewer struct {
	UserID *uuid.UUID
	Role   sec.UserRole
}

// Authenticated reports whether the viewer carries a user identity.
func (viewer Viewer) Authenticated() bool {
	return viewer.UserID != nil
}

// Tier returns the access tier the viewer reads at. Anonymous
// viewers carry no role and read the standard tier.
func (viewer Viewer) Tier() sec.UserRole {
	if viewer.Role == "" {
		return sec.RoleStandard
	}
	return viewer.Role
}
