// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tags

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// ListTagNames returns the persisted tag names one user applied
	// to one book, oldest first.
	ListTagNames(context context.Context, filename string, userID uuid.UUID) ([]string, error)

	// FindBookmark returns the bookmark for (user, book), or nil
	// without error when none has been materialized yet.
	FindBookmark(context context.Context, userID uuid.UUID, filename string) (*Bookmark, error)

	// UpsertBookmark creates or updates the single bookmark row for
	// (user, book) and refreshes its last-read timestamp.
	UpsertBookmark(context context.Context, bookmark *Bookmark) error

	// ReplaceBookTags atomically swaps the full tag set one user has
	// on one book, creating missing tag rows on the way, and, when
	// status is non-nil, updates the bookmark state in the same
	// transaction.
	ReplaceBookTags(context context.Context, filename string, userID uuid.UUID, names []string, status *Status) error
}
