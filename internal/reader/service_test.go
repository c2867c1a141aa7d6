// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tosho/internal/book"
	"github.com/taibuivan/tosho/internal/epub"
	"github.com/taibuivan/tosho/internal/tags"
)

type fakeCache struct {
	content map[string]*epub.Content
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{content: make(map[string]*epub.Content)}
}

func (cache *fakeCache) Get(_ context.Context, filename string) (*epub.Content, error) {
	return cache.content[filename], nil
}

func (cache *fakeCache) Set(_ context.Context, filename string, content *epub.Content) error {
	cache.sets++
	cache.content[filename] = content
	return nil
}

func (cache *fakeCache) Invalidate(_ context.Context, filename string) error {
	delete(cache.content, filename)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStreamService(t *testing.T, bookDir string, cache ContentCache) *Service {
	t.Helper()
	logger := discardLogger()
	extractor := epub.NewExtractor(logger)
	books := book.NewService(nil, nil, extractor, cache, bookDir, logger)
	return NewService(books, nil, cache, logger)
}

func collectEvents(service *Service, filename string, bookmark *tags.Bookmark) []any {
	var events []any
	service.Stream(context.Background(), filename, bookmark, func(event any) error {
		events = append(events, event)
		return nil
	})
	return events
}

func renderedContent() *epub.Content {
	return &epub.Content{
		Title:      "The Test Book",
		Author:     "Ann Author",
		ImageCount: 1,
		Chapters: []epub.RenderedChapter{
			{Index: 0, Title: "One", Content: "<p>first</p>"},
			{Index: 1, Title: "", Content: "<p>second</p>"},
			{Index: 2, Title: "Three", Content: "<p>third</p>"},
		},
	}
}

/*
TestStream_Rotation verifies the circular chapter rotation: a stream
starting at chapter 1 of a 3-chapter book emits original indices
[1, 2, 0], after one metadata event echoing the start position.
*/
func TestStream_Rotation(t *testing.T) {
	cache := newFakeCache()
	cache.content["book.epub"] = renderedContent()
	service := newStreamService(t, t.TempDir(), cache)

	bookmark := &tags.Bookmark{BookFilename: "book.epub", ChapterIndex: 1, Position: 0.25}
	events := collectEvents(service, "book.epub", bookmark)

	require.Len(t, events, 4)

	// 1. Metadata leads the stream and echoes the start position
	metadata, ok := events[0].(MetadataEvent)
	require.True(t, ok)
	assert.Equal(t, "metadata", metadata.Type)
	assert.Equal(t, "The Test Book", metadata.Title)
	assert.Equal(t, 1, metadata.StartChapter)
	assert.Equal(t, 0.25, metadata.ChapterPos)
	assert.Equal(t, []string{"One", "Chapter 2", "Three"}, metadata.TableOfContents)

	// 2. Chapters wrap circularly, each tagged with its absolute index
	indices := make([]int, 0, 3)
	for _, event := range events[1:] {
		chapter, ok := event.(ChapterEvent)
		require.True(t, ok)
		indices = append(indices, chapter.Index)
	}
	assert.Equal(t, []int{1, 2, 0}, indices)

	// 3. The untitled chapter falls back to its positional name
	second := events[1].(ChapterEvent)
	assert.Equal(t, "Chapter 2", second.Title)
}

/*
TestStream_DefaultStart verifies that a fresh bookmark streams the
spine in natural order.
*/
func TestStream_DefaultStart(t *testing.T) {
	cache := newFakeCache()
	cache.content["book.epub"] = renderedContent()
	service := newStreamService(t, t.TempDir(), cache)

	events := collectEvents(service, "book.epub", &tags.Bookmark{BookFilename: "book.epub"})

	require.Len(t, events, 4)
	assert.Equal(t, 0, events[0].(MetadataEvent).StartChapter)
	assert.Equal(t, 0, events[1].(ChapterEvent).Index)
	assert.Equal(t, 2, events[3].(ChapterEvent).Index)
}

/*
TestStream_TerminalError verifies that an unreadable archive yields a
single error event and nothing else.
*/
func TestStream_TerminalError(t *testing.T) {
	service := newStreamService(t, t.TempDir(), newFakeCache())

	events := collectEvents(service, "absent.epub", &tags.Bookmark{BookFilename: "absent.epub"})

	require.Len(t, events, 1)
	failure, ok := events[0].(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "error", failure.Type)
	assert.NotEmpty(t, failure.Message)
}

/*
TestStream_ArchiveExtraction verifies the cache-miss path: chapters
render straight from the archive and the completed book lands in the
cache for the next open.
*/
func TestStream_ArchiveExtraction(t *testing.T) {
	bookDir := t.TempDir()
	writeStreamFixture(t, filepath.Join(bookDir, "book.epub"))

	cache := newFakeCache()
	service := newStreamService(t, bookDir, cache)

	events := collectEvents(service, "book.epub", &tags.Bookmark{BookFilename: "book.epub"})

	require.Len(t, events, 3)
	metadata := events[0].(MetadataEvent)
	assert.Equal(t, "The Test Book", metadata.Title)
	assert.Equal(t, "Ann Author", metadata.Author)

	// The table of contents carries inferred titles, matching what a
	// cached replay of the same book would emit.
	assert.Equal(t, []string{"Prologue", "Ending"}, metadata.TableOfContents)

	first := events[1].(ChapterEvent)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "Prologue", first.Title)
	assert.Contains(t, first.Content, "dark and stormy")

	// A complete stream populates the cache.
	assert.Equal(t, 1, cache.sets)
	require.NotNil(t, cache.content["book.epub"])
	assert.Len(t, cache.content["book.epub"].Chapters, 2)
}

func writeStreamFixture(t *testing.T, filename string) {
	t.Helper()

	files := map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Test Book</dc:title>
    <dc:creator>Ann Author</dc:creator>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="ch1"/><itemref idref="ch2"/></spine>
</package>`,
		"OEBPS/ch1.xhtml": `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>Prologue</h1><p>It was a dark and stormy night.</p></body></html>`,
		"OEBPS/ch2.xhtml": `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>Ending</h1><p>The end.</p></body></html>`,
	}

	buffer := new(bytes.Buffer)
	writer := zip.NewWriter(buffer)
	for name, content := range files {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(entry, content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	require.NoError(t, os.WriteFile(filename, buffer.Bytes(), 0o644))
}
