// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package epub

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CoverPath returns the normalized archive path of the cover image,
// or "" when the book does not declare one. Books without an explicit
// cover declaration fall back to the first image whose name mentions
// "cover".
func (archive *Archive) CoverPath() string {
	if archive.structure.CoverPath != "" {
		return archive.structure.CoverPath
	}
	fallback := ""
	for _, image := range archive.structure.Images {
		if !strings.Contains(strings.ToLower(image.Path), "cover") {
			continue
		}
		if fallback == "" || image.Path < fallback {
			fallback = image.Path
		}
	}
	return fallback
}

// Cover reads the cover image bytes for the EPUB at filename.
func Cover(filename string) ([]byte, Image, error) {
	archive, err := Open(filename)
	if err != nil {
		return nil, Image{}, err
	}
	defer archive.Close()

	coverPath := archive.CoverPath()
	if coverPath == "" {
		return nil, Image{}, fmt.Errorf("no cover image: %w", ErrMalformed)
	}
	return archive.ReadImage(coverPath)
}

// ReplaceCover rewrites the archive at filename with the cover entry
// replaced by data. The archive is rebuilt into a temporary file in
// the same directory and swapped in with a rename, so readers never
// observe a half-written book. Every other entry is copied through
// byte for byte.
func ReplaceCover(filename string, data []byte) error {
	archive, err := Open(filename)
	if err != nil {
		return err
	}
	defer archive.Close()

	coverPath := archive.CoverPath()
	if coverPath == "" {
		return fmt.Errorf("no cover image: %w", ErrMalformed)
	}

	temp, err := os.CreateTemp(filepath.Dir(filename), ".cover-*.epub")
	if err != nil {
		return fmt.Errorf("create replacement archive: %w", err)
	}
	tempName := temp.Name()
	defer os.Remove(tempName)
	defer temp.Close()

	writer := zip.NewWriter(temp)
	replaced := false
	for _, entry := range archive.reader.File {
		if NormalizePath(entry.Name) == coverPath {
			target, err := writer.CreateHeader(&zip.FileHeader{
				Name:     entry.Name,
				Method:   zip.Deflate,
				Modified: entry.Modified,
			})
			if err != nil {
				return fmt.Errorf("replace cover entry: %w", err)
			}
			if _, err := target.Write(data); err != nil {
				return fmt.Errorf("replace cover entry: %w", err)
			}
			replaced = true
			continue
		}
		if err := writer.Copy(entry); err != nil {
			return fmt.Errorf("copy archive entry %s: %w", entry.Name, err)
		}
	}
	if !replaced {
		return fmt.Errorf("cover entry %s missing from archive: %w", coverPath, ErrMalformed)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize replacement archive: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("finalize replacement archive: %w", err)
	}
	if err := os.Rename(tempName, filename); err != nil {
		return fmt.Errorf("swap replacement archive: %w", err)
	}
	return nil
}
