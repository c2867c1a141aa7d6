// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package epub_test

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/taibuivan/tosho/internal/epub"
)

const testContainer = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Test Book</dc:title>
    <dc:creator>Ann Author</dc:creator>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="cover-img" href="images/cover.jpg" media-type="image/jpeg"/>
    <item id="fig1" href="images/figure.png" media-type="image/png"/>
    <item id="ch1" href="chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="chapter2.xhtml" media-type="application/xhtml+xml"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
    <itemref idref="nav" linear="no"/>
  </spine>
</package>`

const testChapterOne = `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Prologue</title></head>
<body><h2>Prologue</h2><p>It was a dark and stormy night.</p>
<img src="images/figure.png" alt="a figure"/></body></html>`

const testChapterTwo = `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head></head>
<body><p>A second chapter with no heading at all.</p></body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTestBook builds an EPUB archive on disk from path to content
// and returns its filename.
func writeTestBook(t *testing.T, files map[string]string) string {
	t.Helper()

	buffer := new(bytes.Buffer)
	writer := zip.NewWriter(buffer)
	for name, content := range files {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(entry, content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	filename := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, os.WriteFile(filename, buffer.Bytes(), 0o644))
	return filename
}

func defaultTestBook(t *testing.T) string {
	t.Helper()
	return writeTestBook(t, map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/chapter1.xhtml":   testChapterOne,
		"OEBPS/chapter2.xhtml":   testChapterTwo,
		"OEBPS/nav.xhtml":        `<html xmlns="http://www.w3.org/1999/xhtml"><body><nav></nav></body></html>`,
		"OEBPS/images/cover.jpg": "jpegbytes",
		"OEBPS/images/figure.png": "pngbytes",
	})
}

/*
TestOpen_Structure verifies that container, package document and spine
are parsed into the expected skeleton.
*/
func TestOpen_Structure(t *testing.T) {
	archive, err := epub.Open(defaultTestBook(t))
	require.NoError(t, err)
	defer archive.Close()

	structure := archive.Structure()

	// 1. Dublin Core metadata
	assert.Equal(t, "The Test Book", structure.Title)
	assert.Equal(t, "Ann Author", structure.Author)

	// 2. Spine order, non-linear entries excluded
	require.Len(t, structure.Chapters, 2)
	assert.Equal(t, "OEBPS/chapter1.xhtml", structure.Chapters[0].Path)
	assert.Equal(t, 0, structure.Chapters[0].Index)
	assert.Equal(t, "OEBPS/chapter2.xhtml", structure.Chapters[1].Path)
	assert.Equal(t, 1, structure.Chapters[1].Index)

	// 3. Cover resolved through the meta name="cover" declaration
	assert.Equal(t, "OEBPS/images/cover.jpg", archive.CoverPath())

	// 4. Image inventory is addressable by the images/ shorthand too
	_, image, err := archive.ReadImage("images/figure.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", image.MediaType)
}

/*
TestOpen_Malformed verifies that a ZIP without a package document is
rejected with ErrMalformed rather than a filesystem error.
*/
func TestOpen_Malformed(t *testing.T) {
	filename := writeTestBook(t, map[string]string{
		"mimetype":   "application/epub+zip",
		"notes.txt":  "not a book",
	})

	_, err := epub.Open(filename)
	require.Error(t, err)
	assert.ErrorIs(t, err, epub.ErrMalformed)

	// A missing file keeps its filesystem identity.
	_, err = epub.Open(filepath.Join(t.TempDir(), "absent.epub"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, epub.ErrMalformed))
}

/*
TestNormalizePath verifies traversal stripping and idempotence.
*/
func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"OEBPS/chapter1.xhtml":    "OEBPS/chapter1.xhtml",
		"../images/cover.jpg":     "images/cover.jpg",
		"./text/../text/ch1.html": "text/text/ch1.html",
		"/OEBPS/ch1.xhtml":        "OEBPS/ch1.xhtml",
		"a\\b\\c.xhtml":           "a/b/c.xhtml",
		"images/my%20cover.jpg":   "images/my cover.jpg",
		"images/a%2520b.png":      "images/a b.png",
		"":                        "",
	}
	for input, want := range cases {
		got := epub.NormalizePath(input)
		assert.Equal(t, want, got, "input %q", input)

		// Applying the function twice changes nothing.
		assert.Equal(t, got, epub.NormalizePath(got), "input %q", input)
	}
}

/*
TestNormalizeImagePath verifies the images-directory collapse.
*/
func TestNormalizeImagePath(t *testing.T) {
	cases := map[string]string{
		"OEBPS/images/cover.jpg":     "images/cover.jpg",
		"images/cover.jpg":           "images/cover.jpg",
		"a/b/Images/deep/pic.png":    "images/deep/pic.png",
		"OEBPS/figures/diagram.svg":  "OEBPS/figures/diagram.svg",
	}
	for input, want := range cases {
		got := epub.NormalizeImagePath(input)
		assert.Equal(t, want, got, "input %q", input)
		assert.Equal(t, got, epub.NormalizeImagePath(got), "input %q", input)
	}
}

func parseDocument(t *testing.T, markup string) *html.Node {
	t.Helper()
	document, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)
	return document
}

/*
TestInferTitle verifies each rung of the title inference ladder.
*/
func TestInferTitle(t *testing.T) {
	// 1. Headings win over everything else
	document := parseDocument(t, `<html><body><h2>Prologue</h2><p>text</p></body></html>`)
	assert.Equal(t, "Prologue", epub.InferTitle(document, "ch01.xhtml"))

	// 2. epub:type annotations
	document = parseDocument(t, `<html><body><div epub:type="title">The Gathering Storm</div></body></html>`)
	assert.Equal(t, "The Gathering Storm", epub.InferTitle(document, "ch01.xhtml"))

	// 3. Conventional class names
	document = parseDocument(t, `<html><body><div class="chapter-title">Homecoming</div><p>body</p></body></html>`)
	assert.Equal(t, "Homecoming", epub.InferTitle(document, "ch01.xhtml"))

	// 4. Filename with words, prefix stripped and title-cased
	document = parseDocument(t, `<html><body></body></html>`)
	assert.Equal(t, "The Long Road", epub.InferTitle(document, "OEBPS/chapter-03-the-long-road.xhtml"))

	// 5. Short opening paragraph as last resort
	document = parseDocument(t, `<html><body><p>An Unexpected Party</p></body></html>`)
	assert.Equal(t, "An Unexpected Party", epub.InferTitle(document, "ch03.xhtml"))

	// 6. A numeric filename and a long paragraph yield nothing
	long := strings.Repeat("very long opening sentence ", 8)
	document = parseDocument(t, `<html><body><p>`+long+`</p></body></html>`)
	assert.Equal(t, "", epub.InferTitle(document, "chapter03.xhtml"))
}

/*
TestExtract verifies full rendering: inlined images, lazy loading and
inferred chapter titles.
*/
func TestExtract(t *testing.T) {
	extractor := epub.NewExtractor(testLogger())

	content, err := extractor.Extract(defaultTestBook(t))
	require.NoError(t, err)

	// 1. Book level metadata
	assert.Equal(t, "The Test Book", content.Title)
	assert.Equal(t, "Ann Author", content.Author)
	assert.Equal(t, 2, content.ImageCount)
	require.Len(t, content.Chapters, 2)

	// 2. Chapter one carries its heading and the inlined figure
	first := content.Chapters[0]
	assert.Equal(t, "Prologue", first.Title)
	assert.Equal(t, 0, first.Index)
	encoded := base64.StdEncoding.EncodeToString([]byte("pngbytes"))
	assert.Contains(t, first.Content, "data:image/png;base64,"+encoded)
	assert.Contains(t, first.Content, `loading="lazy"`)
	assert.NotContains(t, first.Content, "<body")

	// 3. Chapter two has no heading, so the short paragraph is the title
	assert.Equal(t, "A second chapter with no heading at all.", content.Chapters[1].Title)
}

/*
TestExtract_MissingImage verifies that an unresolvable reference is
left untouched instead of failing the chapter.
*/
func TestExtract_MissingImage(t *testing.T) {
	filename := writeTestBook(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/chapter1.xhtml":   `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>One</h1><img src="images/ghost.png"/></body></html>`,
		"OEBPS/chapter2.xhtml":   testChapterTwo,
		"OEBPS/nav.xhtml":        `<html xmlns="http://www.w3.org/1999/xhtml"><body></body></html>`,
		"OEBPS/images/cover.jpg": "jpegbytes",
		"OEBPS/images/figure.png": "pngbytes",
	})

	content, err := epub.NewExtractor(testLogger()).Extract(filename)
	require.NoError(t, err)
	assert.Contains(t, content.Chapters[0].Content, `src="images/ghost.png"`)
}

/*
TestReplaceCover verifies the rebuild-and-rename swap: the cover entry
changes while every other entry survives byte for byte.
*/
func TestReplaceCover(t *testing.T) {
	filename := defaultTestBook(t)

	require.NoError(t, epub.ReplaceCover(filename, []byte("newjpegbytes")))

	archive, err := epub.Open(filename)
	require.NoError(t, err)
	defer archive.Close()

	// 1. Cover carries the replacement bytes
	data, _, err := archive.ReadImage("images/cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("newjpegbytes"), data)

	// 2. Untouched entries are identical
	chapter, err := archive.ReadFile("OEBPS/chapter1.xhtml")
	require.NoError(t, err)
	assert.Equal(t, testChapterOne, string(chapter))
}
