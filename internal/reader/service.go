// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/tosho/internal/book"
	"github.com/taibuivan/tosho/internal/epub"
	"github.com/taibuivan/tosho/internal/tags"
)

// # Stream Events

// MetadataEvent opens every stream: book identity plus the echoed
// start position the chapter rotation is anchored on.
type MetadataEvent struct {
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	ImageCount      int      `json:"image_count"`
	TableOfContents []string `json:"table_of_contents"`
	StartChapter    int      `json:"start_chapter"`
	ChapterPos      float64  `json:"chapter_pos"`
}

// ChapterEvent carries one rendered chapter. Index is the chapter's
// absolute spine index, not its emission order, so the client can
// reconcile position after the circular rotation.
type ChapterEvent struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Href    string `json:"href"`
	Content string `json:"content"`
}

// ErrorEvent terminates a stream that failed after the response
// already started flushing.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// EmitFunc delivers one stream event to the client. A non-nil error
// aborts the stream (the client went away).
type EmitFunc func(event any) error

type Service struct {
	books  *book.Service
	tags   *tags.Service
	cache  ContentCache
	logger *slog.Logger
}

func NewService(books *book.Service, tagService *tags.Service, cache ContentCache, logger *slog.Logger) *Service {
	return &Service{
		books:  books,
		tags:   tagService,
		cache:  cache,
		logger: logger,
	}
}

// Open checks access and resolves the position the stream should
// start from, materializing the caller's bookmark (Unread moves to
// In Progress on first open). It runs before the response starts, so
// its failures are still clean HTTP errors.
func (service *Service) Open(context context.Context, filename string, viewer book.Viewer) (*tags.Bookmark, error) {
	if _, err := service.books.Get(context, filename, viewer); err != nil {
		return nil, err
	}
	if !viewer.Authenticated() {
		return &tags.Bookmark{BookFilename: filename, Status: tags.DefaultStatus}, nil
	}
	return service.tags.StartReading(context, filename, *viewer.UserID)
}

// Stream emits the book as an ordered event sequence: one metadata
// event, then one chapter event per spine entry, rotated so emission
// starts at the bookmark chapter and wraps circularly. Every failure
// past the first byte becomes a single terminal error event; output
// already flushed stays delivered.
func (service *Service) Stream(context context.Context, filename string, bookmark *tags.Bookmark, emit EmitFunc) {
	cached, err := service.cache.Get(context, filename)
	if err != nil {
		// Cache trouble degrades to a fresh extraction.
		service.logger.Warn("content cache read failed", "book", filename, "error", err)
		cached = nil
	}
	if cached != nil {
		service.streamRendered(cached, bookmark, emit)
		return
	}

	service.streamArchive(context, filename, bookmark, emit)
}

// streamRendered replays fully rendered content out of the cache.
func (service *Service) streamRendered(content *epub.Content, bookmark *tags.Bookmark, emit EmitFunc) {
	count := len(content.Chapters)
	start := startChapter(bookmark, count)

	toc := make([]string, count)
	for i, chapter := range content.Chapters {
		toc[i] = chapterTitle(chapter.Title, chapter.Index)
	}

	if err := emit(MetadataEvent{
		Type:            "metadata",
		Title:           content.Title,
		Author:          content.Author,
		ImageCount:      content.ImageCount,
		TableOfContents: toc,
		StartChapter:    start,
		ChapterPos:      bookmark.Position,
	}); err != nil {
		return
	}

	for i := 0; i < count; i++ {
		chapter := content.Chapters[(i+start)%count]
		if err := emit(ChapterEvent{
			Type:    "chapter",
			Index:   chapter.Index,
			Title:   chapterTitle(chapter.Title, chapter.Index),
			Href:    chapter.Href,
			Content: chapter.Content,
		}); err != nil {
			return
		}
	}
}

// streamArchive renders chapter by chapter straight from the
// archive, so the first chapter reaches the client before the rest
// of the book is processed. A fully rendered book is cached for the
// next open.
func (service *Service) streamArchive(context context.Context, filename string, bookmark *tags.Bookmark, emit EmitFunc) {
	path, err := service.books.ArchivePath(filename)
	if err != nil {
		service.terminate(emit, filename, err)
		return
	}

	archive, err := epub.Open(path)
	if err != nil {
		service.terminate(emit, filename, err)
		return
	}
	defer archive.Close()

	structure := archive.Structure()
	count := len(structure.Chapters)
	start := startChapter(bookmark, count)

	if err := emit(MetadataEvent{
		Type:            "metadata",
		Title:           structure.Title,
		Author:          structure.Author,
		ImageCount:      structure.ImageCount(),
		TableOfContents: spineTitles(archive, structure),
		StartChapter:    start,
		ChapterPos:      bookmark.Position,
	}); err != nil {
		return
	}

	rendered := make([]epub.RenderedChapter, count)
	complete := true
	for i := 0; i < count; i++ {
		chapter := structure.Chapters[(i+start)%count]
		unit, err := archive.RenderChapter(chapter, service.logger)
		if err != nil {
			service.terminate(emit, filename, err)
			complete = false
			break
		}
		rendered[chapter.Index] = unit

		if err := emit(ChapterEvent{
			Type:    "chapter",
			Index:   chapter.Index,
			Title:   chapterTitle(unit.Title, chapter.Index),
			Href:    unit.Href,
			Content: unit.Content,
		}); err != nil {
			return
		}
	}

	if complete {
		content := &epub.Content{
			Title:      structure.Title,
			Author:     structure.Author,
			ImageCount: structure.ImageCount(),
			Chapters:   rendered,
		}
		if err := service.cache.Set(context, filename, content); err != nil {
			service.logger.Warn("content cache write failed", "book", filename, "error", err)
		}
	}
}

func (service *Service) terminate(emit EmitFunc, filename string, cause error) {
	service.logger.Error("book stream failed", "book", filename, "error", cause)
	_ = emit(ErrorEvent{Type: "error", Message: cause.Error()})
}

// startChapter clamps the bookmark chapter into the spine range.
func startChapter(bookmark *tags.Bookmark, count int) int {
	if count == 0 || bookmark.ChapterIndex <= 0 {
		return 0
	}
	return bookmark.ChapterIndex % count
}

// chapterTitle falls back to a positional name when inference found
// nothing usable.
func chapterTitle(title string, index int) string {
	if title != "" {
		return title
	}
	return fmt.Sprintf("Chapter %d", index+1)
}

// spineTitles builds the table of contents for the metadata event. A
// title-only pre-pass over the spine keeps it consistent with cached
// replays without rendering any chapter body up front.
func spineTitles(archive *epub.Archive, structure epub.Structure) []string {
	titles := make([]string, len(structure.Chapters))
	for i, chapter := range structure.Chapters {
		titles[i] = chapterTitle(archive.ChapterTitle(chapter), chapter.Index)
	}
	return titles
}
