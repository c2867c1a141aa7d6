// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package epub

import (
	"net/url"
	"path"
	"strings"
)

// NormalizePath canonicalizes an intra-archive path: percent-escapes
// are decoded to a fixed point, and parent and current-directory
// segments are stripped rather than resolved, so a reference can
// never escape the archive root. The function is idempotent.
func NormalizePath(name string) string {
	for {
		decoded, err := url.PathUnescape(name)
		if err != nil || decoded == name {
			break
		}
		name = decoded
	}
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.ReplaceAll(name, "../", "")
	name = strings.ReplaceAll(name, "./", "")
	name = strings.TrimPrefix(name, "/")
	cleaned := path.Clean(name)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// NormalizeImagePath applies NormalizePath and then collapses any
// path that passes through an images directory down to its final
// images/ segment. Authoring tools disagree on where that directory
// sits relative to chapter files, so treating the suffix as canonical
// resolves the common mismatches. Idempotent, like NormalizePath.
func NormalizeImagePath(name string) string {
	name = NormalizePath(name)
	lower := strings.ToLower(name)
	marker := strings.LastIndex(lower, "images/")
	if marker < 0 {
		return name
	}
	return "images/" + name[marker+len("images/"):]
}
