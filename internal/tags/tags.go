// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package tags implements the per-user labeling model: persisted
// user-scoped tags plus virtual tags derived from reading progress,
// merged into one flat view for metadata display and catalog filters.
package tags

import (
	"time"

	"github.com/google/uuid"
)

// Status is the reading-progress state carried on a bookmark.
type Status string

const (
	StatusUnread     Status = "Unread"
	StatusInProgress Status = "In Progress"
	StatusFinished   Status = "Finished"
)

// DefaultStatus is the state a missing bookmark row stands for.
const DefaultStatus = StatusUnread

// Valid reports whether s is one of the recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnread, StatusInProgress, StatusFinished:
		return true
	}
	return false
}

// FieldStatus is the only bookmark field projected as a virtual tag.
const FieldStatus = "status"

// fieldDefaults maps each virtual field to the value an absent
// bookmark row represents.
var fieldDefaults = map[string]string{
	FieldStatus: string(DefaultStatus),
}

// Kind discriminates persisted tags from derived ones.
type Kind int

const (
	KindReal Kind = iota
	KindVirtual
)

// Tag is one entry in a book's tag view. Real tags are persisted
// rows; virtual tags are projected from bookmark state and carry the
// field they were derived from.
type Tag struct {
	Kind  Kind   `json:"-"`
	Name  string `json:"name"`
	Field string `json:"-"`
}

func Real(name string) Tag {
	return Tag{Kind: KindReal, Name: name}
}

func Virtual(field, value string) Tag {
	return Tag{Kind: KindVirtual, Name: value, Field: field}
}

// Bookmark records one user's position in one book. At most one
// exists per (user, book); absence means DefaultStatus at position
// zero.
type Bookmark struct {
	UserID       uuid.UUID `json:"-"`
	BookFilename string    `json:"-"`
	ChapterIndex int       `json:"chapter_index"`
	Position     float64   `json:"position"`
	Status       Status    `json:"status"`
	LastRead     time.Time `json:"last_read"`
}

// Merge flattens bookmark state and persisted tag names into the
// display list: virtual entries first, then real tags in store order.
// A virtual entry only appears when its value differs from the
// field's default, so "Unread" is never part of the view.
func Merge(bookmark *Bookmark, names []string) []Tag {
	merged := make([]Tag, 0, len(names)+1)
	if bookmark != nil && string(bookmark.Status) != fieldDefaults[FieldStatus] {
		merged = append(merged, Virtual(FieldStatus, string(bookmark.Status)))
	}
	for _, name := range names {
		merged = append(merged, Real(name))
	}
	return merged
}

// Partition is a set of requested tag tokens split into the reserved
// status vocabulary and free-form tag names. Each non-empty group
// becomes its own catalog predicate.
type Partition struct {
	// Unread selects books with no bookmark row or a default one.
	Unread bool
	// Statuses are the requested non-default reading states.
	Statuses []Status
	// Names are the free-form tag names.
	Names []string
}

// Empty reports whether no group was requested.
func (partition Partition) Empty() bool {
	return !partition.Unread && len(partition.Statuses) == 0 && len(partition.Names) == 0
}

// PartitionNames splits raw tag tokens into their filter groups.
// Tokens matching the status vocabulary are never treated as tag
// names, so a user cannot shadow "Finished" with a real tag.
func PartitionNames(tokens []string) Partition {
	var partition Partition
	for _, token := range tokens {
		switch Status(token) {
		case StatusUnread:
			partition.Unread = true
		case StatusInProgress, StatusFinished:
			partition.Statuses = append(partition.Statuses, Status(token))
		default:
			partition.Names = append(partition.Names, token)
		}
	}
	return partition
}
