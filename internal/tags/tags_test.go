// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tags_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tosho/internal/tags"
)

// fakeRepository keeps bookmark and tag state in memory and records
// the arguments of the last tag replacement.
type fakeRepository struct {
	bookmarks map[string]*tags.Bookmark
	names     map[string][]string

	replacedNames  []string
	replacedStatus *tags.Status
	replaceCalls   int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		bookmarks: make(map[string]*tags.Bookmark),
		names:     make(map[string][]string),
	}
}

func key(filename string, userID uuid.UUID) string {
	return userID.String() + "/" + filename
}

func (fake *fakeRepository) ListTagNames(_ context.Context, filename string, userID uuid.UUID) ([]string, error) {
	return fake.names[key(filename, userID)], nil
}

func (fake *fakeRepository) FindBookmark(_ context.Context, userID uuid.UUID, filename string) (*tags.Bookmark, error) {
	bookmark, ok := fake.bookmarks[key(filename, userID)]
	if !ok {
		return nil, nil
	}
	copied := *bookmark
	return &copied, nil
}

func (fake *fakeRepository) UpsertBookmark(_ context.Context, bookmark *tags.Bookmark) error {
	copied := *bookmark
	fake.bookmarks[key(bookmark.BookFilename, bookmark.UserID)] = &copied
	return nil
}

func (fake *fakeRepository) ReplaceBookTags(_ context.Context, filename string, userID uuid.UUID, names []string, status *tags.Status) error {
	fake.replaceCalls++
	fake.replacedNames = names
	fake.replacedStatus = status
	fake.names[key(filename, userID)] = names
	if status != nil {
		bookmark, ok := fake.bookmarks[key(filename, userID)]
		if !ok {
			bookmark = &tags.Bookmark{UserID: userID, BookFilename: filename}
			fake.bookmarks[key(filename, userID)] = bookmark
		}
		bookmark.Status = *status
	}
	return nil
}

func newService(fake *fakeRepository) *tags.Service {
	return tags.NewService(fake, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

/*
TestMerge verifies the virtual-plus-real flattening rules.
*/
func TestMerge(t *testing.T) {
	// 1. No bookmark: names only, never a default status entry
	merged := tags.Merge(nil, []string{"fantasy", "favorites"})
	require.Len(t, merged, 2)
	assert.Equal(t, tags.Real("fantasy"), merged[0])

	// 2. Default status stays invisible
	merged = tags.Merge(&tags.Bookmark{Status: tags.StatusUnread}, []string{"fantasy"})
	require.Len(t, merged, 1)
	assert.Equal(t, tags.KindReal, merged[0].Kind)

	// 3. Non-default status leads the list exactly once
	merged = tags.Merge(&tags.Bookmark{Status: tags.StatusFinished}, []string{"fantasy"})
	require.Len(t, merged, 2)
	assert.Equal(t, tags.Virtual(tags.FieldStatus, "Finished"), merged[0])
	assert.Equal(t, "Finished", merged[0].Name)
}

/*
TestPartitionNames verifies the reserved-vocabulary split.
*/
func TestPartitionNames(t *testing.T) {
	partition := tags.PartitionNames([]string{"Unread", "sci-fi", "Finished", "In Progress", "space opera"})

	assert.True(t, partition.Unread)
	assert.Equal(t, []tags.Status{tags.StatusFinished, tags.StatusInProgress}, partition.Statuses)
	assert.Equal(t, []string{"sci-fi", "space opera"}, partition.Names)
	assert.False(t, partition.Empty())
	assert.True(t, tags.PartitionNames(nil).Empty())
}

/*
TestUpdateFromVirtualTag verifies the no-op, create and reset paths.
*/
func TestUpdateFromVirtualTag(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	fake := newFakeRepository()
	service := newService(fake)

	// 1. Reset with no bookmark: no row is materialized
	changed, err := service.UpdateFromVirtualTag(ctx, "book.epub", userID, tags.FieldStatus, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, fake.bookmarks)

	// 2. Setting a non-default value creates the row
	value := string(tags.StatusFinished)
	changed, err = service.UpdateFromVirtualTag(ctx, "book.epub", userID, tags.FieldStatus, &value)
	require.NoError(t, err)
	assert.True(t, changed)

	view, err := service.AllTags(ctx, "book.epub", userID)
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, "Finished", view[0].Name)

	// 3. Writing the same value again reports no change
	changed, err = service.UpdateFromVirtualTag(ctx, "book.epub", userID, tags.FieldStatus, &value)
	require.NoError(t, err)
	assert.False(t, changed)

	// 4. Reset removes the virtual entry from the view
	changed, err = service.UpdateFromVirtualTag(ctx, "book.epub", userID, tags.FieldStatus, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	view, err = service.AllTags(ctx, "book.epub", userID)
	require.NoError(t, err)
	assert.Empty(t, view)

	// 5. Unknown fields and values are rejected
	_, err = service.UpdateFromVirtualTag(ctx, "book.epub", userID, "rating", &value)
	assert.Error(t, err)
	bogus := "Skimmed"
	_, err = service.UpdateFromVirtualTag(ctx, "book.epub", userID, tags.FieldStatus, &bogus)
	assert.Error(t, err)
}

/*
TestReplaceTags verifies that status vocabulary folds into the
bookmark instead of becoming persisted tags.
*/
func TestReplaceTags(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	fake := newFakeRepository()
	service := newService(fake)

	// 1. Mixed input: names persisted, status applied
	err := service.ReplaceTags(ctx, "book.epub", userID, []string{"sci-fi", "Finished", "classics"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sci-fi", "classics"}, fake.replacedNames)
	require.NotNil(t, fake.replacedStatus)
	assert.Equal(t, tags.StatusFinished, *fake.replacedStatus)

	view, err := service.AllTags(ctx, "book.epub", userID)
	require.NoError(t, err)
	require.Len(t, view, 3)
	assert.Equal(t, tags.KindVirtual, view[0].Kind)

	// 2. "Unread" resets an existing bookmark
	err = service.ReplaceTags(ctx, "book.epub", userID, []string{"Unread", "sci-fi"})
	require.NoError(t, err)
	require.NotNil(t, fake.replacedStatus)
	assert.Equal(t, tags.StatusUnread, *fake.replacedStatus)

	// 3. "Unread" with no bookmark row passes no status at all
	otherUser := uuid.New()
	err = service.ReplaceTags(ctx, "book.epub", otherUser, []string{"Unread"})
	require.NoError(t, err)
	assert.Nil(t, fake.replacedStatus)
}
