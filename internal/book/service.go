// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/taibuivan/tosho/internal/epub"
	"github.com/taibuivan/tosho/internal/platform/apperr"
	"github.com/taibuivan/tosho/internal/platform/sec"
	"github.com/taibuivan/tosho/internal/tags"
	"github.com/taibuivan/tosho/pkg/slice"
	"github.com/taibuivan/tosho/pkg/slug"
)

// ContentCache invalidates cached rendered content when the backing
// archive changes.
type ContentCache interface {
	Invalidate(context context.Context, filename string) error
}

// Metadata is the read/write shape for a book's descriptive fields
// plus the caller's tag view.
type Metadata struct {
	Filename  string   `json:"filename"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Genre     string   `json:"genre"`
	CreatedAt string   `json:"created_at"`
	Tags      []string `json:"tags"`
	Cover     string   `json:"cover"`
}

type Service struct {
	repo      Repository
	tags      *tags.Service
	extractor *epub.Extractor
	cache     ContentCache
	bookDir   string
	logger    *slog.Logger
}

func NewService(repo Repository, tagService *tags.Service, extractor *epub.Extractor, cache ContentCache, bookDir string, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		tags:      tagService,
		extractor: extractor,
		cache:     cache,
		bookDir:   bookDir,
		logger:    logger,
	}
}

// ArchivePath resolves a catalog filename to its on-disk archive,
// rejecting anything that is not a bare filename.
func (service *Service) ArchivePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", apperr.ValidationError(fmt.Sprintf("invalid book filename %q", filename))
	}
	return filepath.Join(service.bookDir, filename), nil
}

// CoverItem is one catalog listing entry: identity fields plus the
// inlined cover image, so a catalog page renders without a second
// round of cover requests.
type CoverItem struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Genre    string `json:"genre"`
	Cover    string `json:"cover,omitempty"`
}

// Covers lists the catalog page matching the filter, scoped to the
// viewer's access tier and user state. A book whose archive yields no
// cover still lists, without one.
func (service *Service) Covers(context context.Context, filter Filter, viewer Viewer, limit, offset int) ([]CoverItem, int, error) {
	books, total, err := service.repo.ListBooks(context, filter, viewer, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	items := make([]CoverItem, 0, len(books))
	for _, book := range books {
		item := CoverItem{
			Filename: book.Filename,
			Title:    book.Title,
			Author:   book.Author,
			Genre:    book.Genre,
		}
		if path, err := service.ArchivePath(book.Filename); err == nil {
			if data, image, err := epub.Cover(path); err == nil {
				item.Cover = fmt.Sprintf("data:%s;base64,%s",
					image.MediaType, base64.StdEncoding.EncodeToString(data))
			} else {
				service.logger.Warn("catalog cover unavailable", "book", book.Filename, "error", err)
			}
		}
		items = append(items, item)
	}
	return items, total, nil
}

// Get returns one catalog row, enforcing the viewer's access tier.
// Elevated-tier books read as not found for standard viewers rather
// than revealing their existence.
func (service *Service) Get(context context.Context, filename string, viewer Viewer) (*Book, error) {
	book, err := service.repo.GetBook(context, filename)
	if err != nil {
		return nil, err
	}
	if !viewer.Tier().AtLeast(book.AccessLevel) {
		return nil, apperr.NotFound("Book")
	}
	return book, nil
}

// Metadata assembles the metadata view: book fields plus the viewer's
// merged tag list. Anonymous viewers get an empty tag list.
func (service *Service) Metadata(context context.Context, filename string, viewer Viewer) (*Metadata, error) {
	book, err := service.Get(context, filename, viewer)
	if err != nil {
		return nil, err
	}

	names := []string{}
	if viewer.Authenticated() {
		view, err := service.tags.AllTags(context, filename, *viewer.UserID)
		if err != nil {
			return nil, err
		}
		names = slice.Map(view, func(tag tags.Tag) string { return tag.Name })
	}

	return &Metadata{
		Filename:  book.Filename,
		Title:     book.Title,
		Author:    book.Author,
		Genre:     book.Genre,
		CreatedAt: book.CreatedAt.Format("2006-01-02"),
		Tags:      names,
		Cover:     fmt.Sprintf("/api/v1/books/%s/cover", book.Filename),
	}, nil
}

// MetadataUpdate is the inbound write shape for UpdateMetadata.
type MetadataUpdate struct {
	Title  string   `json:"title"`
	Author string   `json:"author"`
	Genre  string   `json:"genre"`
	Tags   []string `json:"tags"`
}

// UpdateMetadata writes the descriptive fields and swaps the caller's
// tag set. The tag swap carries reading-status vocabulary into the
// bookmark rather than the tag table. The viewer's access tier
// applies the same way it does on reads, so a book the caller cannot
// see cannot be mutated either.
func (service *Service) UpdateMetadata(context context.Context, filename string, viewer Viewer, update MetadataUpdate) (*Metadata, error) {
	if !viewer.Authenticated() {
		return nil, apperr.Unauthorized("invalid user identity")
	}
	userID := *viewer.UserID

	book, err := service.Get(context, filename, viewer)
	if err != nil {
		return nil, err
	}

	book.Title = strings.TrimSpace(update.Title)
	book.Author = strings.TrimSpace(update.Author)
	book.Genre = strings.TrimSpace(update.Genre)
	if err := service.repo.UpdateBook(context, book); err != nil {
		return nil, err
	}

	if err := service.tags.ReplaceTags(context, filename, userID, update.Tags); err != nil {
		return nil, err
	}

	service.logger.Info("book metadata updated", "book", filename, "user", userID)
	return service.Metadata(context, filename, viewer)
}

// Cover reads the cover image bytes out of the archive.
func (service *Service) Cover(context context.Context, filename string, viewer Viewer) ([]byte, string, error) {
	if _, err := service.Get(context, filename, viewer); err != nil {
		return nil, "", err
	}
	path, err := service.ArchivePath(filename)
	if err != nil {
		return nil, "", err
	}

	data, image, err := epub.Cover(path)
	if err != nil {
		return nil, "", coverError(filename, err)
	}
	return data, image.MediaType, nil
}

// UpdateCover swaps the cover entry inside the archive and drops any
// cached rendered content for the book. The viewer's access tier is
// checked first, like every other per-book operation.
func (service *Service) UpdateCover(context context.Context, filename string, viewer Viewer, data []byte) error {
	if _, err := service.Get(context, filename, viewer); err != nil {
		return err
	}
	path, err := service.ArchivePath(filename)
	if err != nil {
		return err
	}

	if err := epub.ReplaceCover(path, data); err != nil {
		return coverError(filename, err)
	}

	if err := service.cache.Invalidate(context, filename); err != nil {
		service.logger.Warn("cover cache invalidation failed", "book", filename, "error", err)
	}
	service.logger.Info("book cover replaced", "book", filename)
	return nil
}

// Upload stores a new archive under a canonical slug filename and
// creates its catalog row from the embedded metadata.
func (service *Service) Upload(context context.Context, originalName string, data []byte, uploadedBy uuid.UUID) (*Book, error) {
	staging, err := os.CreateTemp(service.bookDir, ".upload-*.epub")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer os.Remove(staging.Name())

	if _, err := staging.Write(data); err != nil {
		staging.Close()
		return nil, apperr.Internal(err)
	}
	if err := staging.Close(); err != nil {
		return nil, apperr.Internal(err)
	}

	archive, err := epub.Open(staging.Name())
	if err != nil {
		return nil, uploadError(err)
	}
	structure := archive.Structure()
	coverPath := archive.CoverPath()
	archive.Close()

	filename := canonicalFilename(structure.Title, originalName)
	if _, err := service.repo.GetBook(context, filename); err == nil {
		return nil, apperr.Conflict(fmt.Sprintf("book %s already exists", filename))
	}

	target := filepath.Join(service.bookDir, filename)
	if err := os.Rename(staging.Name(), target); err != nil {
		return nil, apperr.Internal(err)
	}

	book := &Book{
		Filename:    filename,
		Title:       titleOrFallback(structure.Title),
		Author:      authorOrFallback(structure.Author),
		AccessLevel: sec.RoleStandard,
		CoverPath:   coverPath,
		UploadedBy:  &uploadedBy,
	}
	if err := service.repo.CreateBook(context, book); err != nil {
		os.Remove(target)
		return nil, err
	}

	service.logger.Info("book uploaded", "book", filename, "user", uploadedBy)
	return book, nil
}

// ImportDirectory scans the book directory and creates catalog rows,
// at the given access tier, for archives that have none. Unreadable
// archives are logged and skipped. Returns how many rows were created.
func (service *Service) ImportDirectory(context context.Context, access sec.UserRole) (int, error) {
	known, err := service.repo.ListFilenames(context)
	if err != nil {
		return 0, err
	}
	existing := make(map[string]struct{}, len(known))
	for _, filename := range known {
		existing[filename] = struct{}{}
	}

	entries, err := os.ReadDir(service.bookDir)
	if err != nil {
		return 0, apperr.Internal(err)
	}

	imported := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".epub") {
			continue
		}
		if _, ok := existing[name]; ok {
			continue
		}

		archive, err := epub.Open(filepath.Join(service.bookDir, name))
		if err != nil {
			service.logger.Warn("skipping unreadable archive", "file", name, "error", err)
			continue
		}
		structure := archive.Structure()
		coverPath := archive.CoverPath()
		archive.Close()

		book := &Book{
			Filename:    name,
			Title:       titleOrFallback(structure.Title),
			Author:      authorOrFallback(structure.Author),
			AccessLevel: access,
			CoverPath:   coverPath,
		}
		if err := service.repo.CreateBook(context, book); err != nil {
			return imported, err
		}
		imported++
		service.logger.Info("book imported", "book", name)
	}
	return imported, nil
}

// FlushMissing drops catalog rows whose backing archive vanished from
// the book directory. Returns how many rows were removed.
func (service *Service) FlushMissing(context context.Context) (int, error) {
	known, err := service.repo.ListFilenames(context)
	if err != nil {
		return 0, err
	}

	flushed := 0
	for _, filename := range known {
		path, err := service.ArchivePath(filename)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := service.repo.DeleteBook(context, filename); err != nil {
			return flushed, err
		}
		flushed++
		service.logger.Info("orphaned catalog row flushed", "book", filename)
	}
	return flushed, nil
}

// canonicalFilename derives the stored archive name from the book
// title, falling back to the uploaded name when the title slugs away
// to nothing.
func canonicalFilename(title, originalName string) string {
	base := slug.From(title)
	if base == "" {
		base = slug.From(strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName)))
	}
	if base == "" {
		base = "book"
	}
	return base + ".epub"
}

// Archives without OPF metadata still get a presentable catalog row.

func titleOrFallback(title string) string {
	if title == "" {
		return "Untitled"
	}
	return title
}

func authorOrFallback(author string) string {
	if author == "" {
		return "Unknown Author"
	}
	return author
}

func coverError(filename string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.NotFound("Book archive")
	}
	if errors.Is(err, epub.ErrMalformed) {
		return apperr.Unprocessable(fmt.Sprintf("archive %s has no usable cover", filename))
	}
	return apperr.Internal(err)
}

func uploadError(err error) error {
	if errors.Is(err, epub.ErrMalformed) {
		return apperr.Unprocessable("uploaded file is not a valid EPUB archive")
	}
	return apperr.Internal(err)
}
