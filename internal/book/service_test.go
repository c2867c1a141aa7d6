// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tosho/internal/platform/apperr"
	"github.com/taibuivan/tosho/internal/platform/sec"
)

type fakeRepository struct {
	books   map[string]*Book
	updates int
}

func newFakeRepository(books ...*Book) *fakeRepository {
	repository := &fakeRepository{books: make(map[string]*Book, len(books))}
	for _, book := range books {
		repository.books[book.Filename] = book
	}
	return repository
}

func (repository *fakeRepository) ListBooks(_ context.Context, _ Filter, _ Viewer, _, _ int) ([]Book, int, error) {
	return nil, 0, nil
}

func (repository *fakeRepository) GetBook(_ context.Context, filename string) (*Book, error) {
	book, ok := repository.books[filename]
	if !ok {
		return nil, apperr.NotFound("Book")
	}
	copied := *book
	return &copied, nil
}

func (repository *fakeRepository) CreateBook(_ context.Context, book *Book) error {
	repository.books[book.Filename] = book
	return nil
}

func (repository *fakeRepository) UpdateBook(_ context.Context, book *Book) error {
	repository.updates++
	repository.books[book.Filename] = book
	return nil
}

func (repository *fakeRepository) DeleteBook(_ context.Context, filename string) error {
	delete(repository.books, filename)
	return nil
}

func (repository *fakeRepository) ListFilenames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(repository.books))
	for name := range repository.books {
		names = append(names, name)
	}
	return names, nil
}

func newTierService(t *testing.T, repository Repository) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repository, nil, nil, nil, t.TempDir(), logger)
}

/*
TestGet_AccessTier verifies the tier gate around single-book reads:
anonymous callers read standard-tier books, while elevated-tier books
read as not found rather than revealing their existence.
*/
func TestGet_AccessTier(t *testing.T) {
	repository := newFakeRepository(
		&Book{Filename: "public.epub", Title: "Public", AccessLevel: sec.RoleStandard},
		&Book{Filename: "restricted.epub", Title: "Restricted", AccessLevel: sec.RoleAdmin},
	)
	service := newTierService(t, repository)

	// 1. Anonymous viewers carry no role but still read the standard tier
	book, err := service.Get(context.Background(), "public.epub", Viewer{})
	require.NoError(t, err)
	assert.Equal(t, "Public", book.Title)

	// 2. Elevated-tier books are invisible, not forbidden
	_, err = service.Get(context.Background(), "restricted.epub", Viewer{})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)

	// 3. An admin viewer reads every tier
	adminID := uuid.New()
	book, err = service.Get(context.Background(), "restricted.epub", Viewer{UserID: &adminID, Role: sec.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Restricted", book.Title)
}

/*
TestUpdateMetadata_AccessTier verifies that metadata writes pass
through the same tier gate as reads: a book the caller cannot see
cannot be mutated, and nothing reaches the repository.
*/
func TestUpdateMetadata_AccessTier(t *testing.T) {
	repository := newFakeRepository(
		&Book{Filename: "restricted.epub", Title: "Restricted", AccessLevel: sec.RoleAdmin},
	)
	service := newTierService(t, repository)

	userID := uuid.New()
	viewer := Viewer{UserID: &userID, Role: sec.RoleStandard}

	_, err := service.UpdateMetadata(context.Background(), "restricted.epub", viewer, MetadataUpdate{Title: "Hijacked"})

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
	assert.Zero(t, repository.updates)
	assert.Equal(t, "Restricted", repository.books["restricted.epub"].Title)
}

/*
TestUpdateCover_AccessTier verifies the tier gate on cover
replacement.
*/
func TestUpdateCover_AccessTier(t *testing.T) {
	repository := newFakeRepository(
		&Book{Filename: "restricted.epub", AccessLevel: sec.RoleAdmin},
	)
	service := newTierService(t, repository)

	userID := uuid.New()
	viewer := Viewer{UserID: &userID, Role: sec.RoleStandard}

	err := service.UpdateCover(context.Background(), "restricted.epub", viewer, []byte("not-a-cover"))

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
}
