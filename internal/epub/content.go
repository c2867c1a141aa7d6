// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package epub

import (
	"bytes"
	"fmt"
	"log/slog"
	"path"

	"golang.org/x/net/html"
)

// RenderedChapter is one spine entry with its body fully rendered:
// images inlined and a display title inferred.
type RenderedChapter struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Href    string `json:"href"`
	Content string `json:"content"`
}

// Content is the complete rendered form of a book, shaped for JSON
// caching and the reader stream.
type Content struct {
	Title      string            `json:"title"`
	Author     string            `json:"author"`
	ImageCount int               `json:"image_count"`
	Chapters   []RenderedChapter `json:"chapters"`
}

// Extractor turns EPUB archives into rendered Content.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract opens the archive at filename and renders every spine
// chapter in reading order.
func (extractor *Extractor) Extract(filename string) (*Content, error) {
	archive, err := Open(filename)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	structure := archive.Structure()
	content := &Content{
		Title:      structure.Title,
		Author:     structure.Author,
		ImageCount: structure.ImageCount(),
		Chapters:   make([]RenderedChapter, 0, len(structure.Chapters)),
	}

	for _, chapter := range structure.Chapters {
		rendered, err := archive.RenderChapter(chapter, extractor.logger)
		if err != nil {
			return nil, err
		}
		content.Chapters = append(content.Chapters, rendered)
	}
	return content, nil
}

// ChapterTitle infers a chapter's display title without rendering
// it: the document is parsed but its images stay untouched, so a
// table of contents can be assembled before any chapter body has
// been emitted. Returns "" when the chapter is unreadable or carries
// no usable title.
func (archive *Archive) ChapterTitle(chapter Chapter) string {
	raw, err := archive.ReadFile(chapter.Path)
	if err != nil {
		return ""
	}
	document, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return InferTitle(document, chapter.Path)
}

// RenderChapter parses and renders a single chapter body with images
// inlined and a title inferred from the markup or filename.
func (archive *Archive) RenderChapter(chapter Chapter, logger *slog.Logger) (RenderedChapter, error) {
	raw, err := archive.ReadFile(chapter.Path)
	if err != nil {
		return RenderedChapter{}, err
	}

	document, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return RenderedChapter{}, fmt.Errorf("parse chapter %s: %w", chapter.Path, err)
	}

	baseDir := path.Dir(chapter.Path)
	if baseDir == "." {
		baseDir = ""
	}
	archive.inlineImages(document, baseDir, logger)

	body, err := renderBody(document)
	if err != nil {
		return RenderedChapter{}, err
	}

	return RenderedChapter{
		ID:      chapter.ID,
		Index:   chapter.Index,
		Title:   InferTitle(document, chapter.Path),
		Href:    chapter.Path,
		Content: body,
	}, nil
}
