// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tags

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taibuivan/tosho/internal/platform/apperr"
	"github.com/taibuivan/tosho/pkg/pointer"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// AllTags resolves the full tag view for one (book, user) pair:
// the virtual status entry, when non-default, followed by the
// persisted tag names.
func (service *Service) AllTags(context context.Context, filename string, userID uuid.UUID) ([]Tag, error) {
	bookmark, err := service.repo.FindBookmark(context, userID, filename)
	if err != nil {
		return nil, err
	}
	names, err := service.repo.ListTagNames(context, filename, userID)
	if err != nil {
		return nil, err
	}
	return Merge(bookmark, names), nil
}

// UpdateFromVirtualTag writes a virtual tag back onto its bookmark
// field. A nil value resets the field to its default; resetting when
// no bookmark exists is a no-op, so default state never materializes
// a row. Returns whether stored state changed.
func (service *Service) UpdateFromVirtualTag(context context.Context, filename string, userID uuid.UUID, field string, value *string) (bool, error) {
	fallback, ok := fieldDefaults[field]
	if !ok {
		return false, apperr.ValidationError(fmt.Sprintf("unknown virtual tag field %q", field))
	}

	target := fallback
	if value != nil {
		target = *value
	}
	status := Status(target)
	if !status.Valid() {
		return false, apperr.ValidationError(fmt.Sprintf("unknown reading status %q", target))
	}

	bookmark, err := service.repo.FindBookmark(context, userID, filename)
	if err != nil {
		return false, err
	}
	if bookmark == nil {
		if target == fallback {
			return false, nil
		}
		bookmark = &Bookmark{UserID: userID, BookFilename: filename}
	} else if bookmark.Status == status {
		return false, nil
	}

	bookmark.Status = status
	if err := service.repo.UpsertBookmark(context, bookmark); err != nil {
		return false, err
	}

	service.logger.Debug("virtual tag applied",
		"book", filename, "user", userID, "field", field, "value", target)
	return true, nil
}

// SetStatus is the common case of UpdateFromVirtualTag for the
// reading status.
func (service *Service) SetStatus(context context.Context, filename string, userID uuid.UUID, status Status) error {
	_, err := service.UpdateFromVirtualTag(context, filename, userID, FieldStatus, pointer.To(string(status)))
	return err
}

// ReplaceTags swaps the complete tag set a user has on a book.
// Tokens from the status vocabulary never become persisted tags:
// they fold into the bookmark state instead, inside the same
// transaction as the tag swap. "Unread" resets the status, but only
// when a bookmark row already exists.
func (service *Service) ReplaceTags(context context.Context, filename string, userID uuid.UUID, names []string) error {
	partition := PartitionNames(names)

	var status *Status
	if count := len(partition.Statuses); count > 0 {
		status = &partition.Statuses[count-1]
	} else if partition.Unread {
		bookmark, err := service.repo.FindBookmark(context, userID, filename)
		if err != nil {
			return err
		}
		if bookmark != nil {
			status = pointer.To(DefaultStatus)
		}
	}

	return service.repo.ReplaceBookTags(context, filename, userID, partition.Names, status)
}
