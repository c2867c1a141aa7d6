// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package epub

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxParagraphTitleLen caps how long a leading paragraph may be while
// still being plausible as a chapter title.
const maxParagraphTitleLen = 100

// titleClasses are the class and id values authoring tools commonly
// put on the element that carries the chapter heading.
var titleClasses = []string{
	"chapter-title",
	"chapterTitle",
	"chapter_title",
	"title",
	"heading",
	"chapter-heading",
	"section-title",
}

var filenamePrefix = regexp.MustCompile(`(?i)^(chapter|ch|section|part)[\s0-9.]*`)

var titleCaser = cases.Title(language.English)

// InferTitle derives a display title for a chapter document. It tries
// progressively weaker signals: explicit headings, epub:type
// annotations, conventional class and id names, the chapter's own
// filename, and finally a short opening paragraph. Returns "" when
// none of them yield anything.
func InferTitle(document *html.Node, filename string) string {
	if title := firstText(document, isHeading); title != "" {
		return title
	}
	if title := firstText(document, hasTitleType); title != "" {
		return title
	}
	if title := firstText(document, hasTitleClass); title != "" {
		return title
	}
	if title := titleFromFilename(filename); title != "" {
		return title
	}
	if title := firstText(document, isParagraph); title != "" && len(title) < maxParagraphTitleLen {
		return title
	}
	return ""
}

func isHeading(node *html.Node) bool {
	switch node.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Title:
		return true
	}
	return false
}

func hasTitleType(node *html.Node) bool {
	for _, attr := range node.Attr {
		if attr.Key != "epub:type" && !(attr.Namespace == "epub" && attr.Key == "type") {
			continue
		}
		for _, value := range strings.Fields(attr.Val) {
			switch value {
			case "chapter", "title", "subtitle":
				return true
			}
		}
	}
	return false
}

func hasTitleClass(node *html.Node) bool {
	for _, attr := range node.Attr {
		if attr.Key != "class" && attr.Key != "id" {
			continue
		}
		for _, value := range strings.Fields(attr.Val) {
			for _, known := range titleClasses {
				if value == known {
					return true
				}
			}
		}
	}
	return false
}

func isParagraph(node *html.Node) bool {
	return node.DataAtom == atom.P
}

func titleFromFilename(filename string) string {
	base := path.Base(filename)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = strings.TrimSpace(filenamePrefix.ReplaceAllString(base, ""))
	if base == "" || !strings.ContainsFunc(base, isLetter) {
		return ""
	}
	return titleCaser.String(base)
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// firstText walks the document in order and returns the trimmed text
// of the first element the predicate accepts that has any.
func firstText(node *html.Node, accept func(*html.Node) bool) string {
	if node.Type == html.ElementNode && accept(node) {
		if text := collapseSpace(textContent(node)); text != "" {
			return text
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if text := firstText(child, accept); text != "" {
			return text
		}
	}
	return ""
}

func textContent(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}
	var builder strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		builder.WriteString(textContent(child))
	}
	return builder.String()
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
