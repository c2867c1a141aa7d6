// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package epub reads EPUB archives: structural metadata, chapter
// markup rendering, and cover handling for the library catalog.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// ErrMalformed reports an archive that opened as a ZIP but does not
// carry a usable EPUB structure (missing container, OPF or spine).
// It is distinct from filesystem errors so callers can map the two
// to different responses.
var ErrMalformed = errors.New("epub: malformed archive")

const containerPath = "META-INF/container.xml"

// Chapter is a single spine entry in reading order.
type Chapter struct {
	ID    string
	Path  string
	Index int
}

// Image is a manifest resource with an image media type. Path is
// normalized, so lookups survive the relative-path spellings
// different authoring tools produce.
type Image struct {
	Path      string
	MediaType string
}

// Structure is the parsed skeleton of an EPUB: metadata plus the
// reading order and image inventory, without any chapter body decoded.
type Structure struct {
	Title     string
	Author    string
	CoverPath string
	Chapters  []Chapter
	Images    map[string]Image
}

// ImageCount returns the number of distinct images in the manifest.
func (structure Structure) ImageCount() int {
	seen := make(map[string]struct{}, len(structure.Images))
	for _, image := range structure.Images {
		seen[image.Path] = struct{}{}
	}
	return len(seen)
}

// Archive is an open EPUB file. It is not safe for concurrent use.
type Archive struct {
	reader    *zip.ReadCloser
	files     map[string]*zip.File
	opfDir    string
	structure Structure
}

type containerXML struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Titles   []string `xml:"http://purl.org/dc/elements/1.1/ title"`
		Creators []string `xml:"http://purl.org/dc/elements/1.1/ creator"`
		Metas    []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// Open opens the EPUB at the given filesystem path and parses its
// structure. The caller must Close the archive when done.
func Open(filename string) (*Archive, error) {
	reader, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("open epub %s: %w", filename, err)
	}

	archive := &Archive{
		reader: reader,
		files:  make(map[string]*zip.File, len(reader.File)),
	}
	for _, file := range reader.File {
		archive.files[NormalizePath(file.Name)] = file
	}

	if err := archive.parse(); err != nil {
		reader.Close()
		return nil, err
	}
	return archive, nil
}

// Close releases the underlying ZIP reader.
func (archive *Archive) Close() error {
	return archive.reader.Close()
}

// Structure returns the parsed skeleton of the archive.
func (archive *Archive) Structure() Structure {
	return archive.structure
}

// ReadFile returns the raw bytes of an entry, looked up by normalized
// path.
func (archive *Archive) ReadFile(name string) ([]byte, error) {
	file, ok := archive.files[NormalizePath(name)]
	if !ok {
		return nil, fmt.Errorf("epub entry %s: %w", name, ErrMalformed)
	}
	handle, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open epub entry %s: %w", name, err)
	}
	defer handle.Close()

	data, err := io.ReadAll(handle)
	if err != nil {
		return nil, fmt.Errorf("read epub entry %s: %w", name, err)
	}
	return data, nil
}

// ReadImage resolves an image by normalized path, falling back to the
// images-directory heuristic when the exact path is absent.
func (archive *Archive) ReadImage(name string) ([]byte, Image, error) {
	key := NormalizePath(name)
	image, ok := archive.structure.Images[key]
	if !ok {
		image, ok = archive.structure.Images[NormalizeImagePath(key)]
	}
	if !ok {
		return nil, Image{}, fmt.Errorf("epub image %s: %w", name, ErrMalformed)
	}

	data, err := archive.ReadFile(image.Path)
	if err != nil {
		return nil, Image{}, err
	}
	return data, image, nil
}

func (archive *Archive) parse() error {
	opfPath, err := archive.locateOPF()
	if err != nil {
		return err
	}
	archive.opfDir = path.Dir(opfPath)
	if archive.opfDir == "." {
		archive.opfDir = ""
	}

	data, err := archive.ReadFile(opfPath)
	if err != nil {
		return err
	}

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return fmt.Errorf("parse opf: %w: %v", ErrMalformed, err)
	}

	if len(pkg.Metadata.Titles) > 0 {
		archive.structure.Title = strings.TrimSpace(pkg.Metadata.Titles[0])
	}
	if len(pkg.Metadata.Creators) > 0 {
		archive.structure.Author = strings.TrimSpace(pkg.Metadata.Creators[0])
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	typeByID := make(map[string]string, len(pkg.Manifest.Items))
	archive.structure.Images = make(map[string]Image)
	coverID := ""
	for _, meta := range pkg.Metadata.Metas {
		if strings.EqualFold(meta.Name, "cover") {
			coverID = meta.Content
		}
	}

	for _, item := range pkg.Manifest.Items {
		resolved := archive.resolve(item.Href)
		hrefByID[item.ID] = resolved
		typeByID[item.ID] = item.MediaType
		if strings.HasPrefix(item.MediaType, "image/") {
			image := Image{Path: resolved, MediaType: item.MediaType}
			archive.structure.Images[resolved] = image
			archive.structure.Images[NormalizeImagePath(resolved)] = image
		}
		// EPUB 3 marks the cover in the manifest itself.
		if strings.Contains(item.Properties, "cover-image") && archive.structure.CoverPath == "" {
			archive.structure.CoverPath = resolved
		}
		if coverID != "" && item.ID == coverID {
			archive.structure.CoverPath = resolved
		}
	}

	index := 0
	for _, ref := range pkg.Spine.ItemRefs {
		if strings.EqualFold(ref.Linear, "no") {
			continue
		}
		href, ok := hrefByID[ref.IDRef]
		if !ok || !isDocumentType(typeByID[ref.IDRef]) {
			continue
		}
		archive.structure.Chapters = append(archive.structure.Chapters, Chapter{
			ID:    ref.IDRef,
			Path:  href,
			Index: index,
		})
		index++
	}
	if len(archive.structure.Chapters) == 0 {
		return fmt.Errorf("empty spine: %w", ErrMalformed)
	}
	return nil
}

func (archive *Archive) locateOPF() (string, error) {
	if data, err := archive.ReadFile(containerPath); err == nil {
		var container containerXML
		if err := xml.Unmarshal(data, &container); err != nil {
			return "", fmt.Errorf("parse container.xml: %w: %v", ErrMalformed, err)
		}
		for _, root := range container.RootFiles {
			if fullPath := strings.TrimSpace(root.FullPath); fullPath != "" {
				return fullPath, nil
			}
		}
	}

	// Some archives in the wild ship without a container; scan for the
	// package document directly.
	names := make([]string, 0, len(archive.files))
	for name := range archive.files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.HasSuffix(strings.ToLower(name), ".opf") {
			return name, nil
		}
	}
	return "", fmt.Errorf("no package document: %w", ErrMalformed)
}

// isDocumentType reports whether a manifest media type is a readable
// chapter document. Spine entries of any other type (navigation
// resources, stylesheets) are skipped.
func isDocumentType(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/xhtml+xml", "text/html":
		return true
	}
	return false
}

// resolve joins an OPF-relative href onto the package directory and
// normalizes the result.
func (archive *Archive) resolve(href string) string {
	href = strings.TrimSpace(href)
	if fragment := strings.IndexByte(href, '#'); fragment >= 0 {
		href = href[:fragment]
	}
	if archive.opfDir != "" {
		href = path.Join(archive.opfDir, href)
	}
	return NormalizePath(href)
}
