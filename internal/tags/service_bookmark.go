// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tags

import (
	"context"

	"github.com/google/uuid"

	"github.com/taibuivan/tosho/internal/platform/apperr"
)

// GetBookmark returns the stored bookmark, or the default view when
// none exists. The default is never persisted.
func (service *Service) GetBookmark(context context.Context, filename string, userID uuid.UUID) (*Bookmark, error) {
	bookmark, err := service.repo.FindBookmark(context, userID, filename)
	if err != nil {
		return nil, err
	}
	if bookmark == nil {
		return &Bookmark{UserID: userID, BookFilename: filename, Status: DefaultStatus}, nil
	}
	return bookmark, nil
}

// StartReading materializes the bookmark when a book is opened in the
// reader: a first open creates the row, and an Unread book moves to
// In Progress. Returns the bookmark the stream should resume from.
func (service *Service) StartReading(context context.Context, filename string, userID uuid.UUID) (*Bookmark, error) {
	bookmark, err := service.repo.FindBookmark(context, userID, filename)
	if err != nil {
		return nil, err
	}
	if bookmark == nil {
		bookmark = &Bookmark{UserID: userID, BookFilename: filename}
	}
	if bookmark.Status == DefaultStatus || bookmark.Status == "" {
		bookmark.Status = StatusInProgress
	}

	if err := service.repo.UpsertBookmark(context, bookmark); err != nil {
		return nil, err
	}
	return bookmark, nil
}

// SaveBookmark persists the reading position. The chapter index is
// the chapter's absolute spine index; position is the fractional
// intra-chapter scroll offset in [0, 1].
func (service *Service) SaveBookmark(context context.Context, filename string, userID uuid.UUID, chapterIndex int, position float64) (*Bookmark, error) {
	if chapterIndex < 0 {
		return nil, apperr.ValidationError("chapter index must not be negative")
	}
	if position < 0 || position > 1 {
		return nil, apperr.ValidationError("position must be within [0, 1]")
	}

	bookmark, err := service.repo.FindBookmark(context, userID, filename)
	if err != nil {
		return nil, err
	}
	if bookmark == nil {
		bookmark = &Bookmark{UserID: userID, BookFilename: filename, Status: StatusInProgress}
	}

	bookmark.ChapterIndex = chapterIndex
	bookmark.Position = position
	if err := service.repo.UpsertBookmark(context, bookmark); err != nil {
		return nil, err
	}
	return bookmark, nil
}
