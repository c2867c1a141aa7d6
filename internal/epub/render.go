package epub

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// inlineImages rewrites every image reference under node into a data
// URI resolved from the archive, so the rendered chapter is fully
// self-contained. Raster <img> elements additionally get lazy loading.
// References that cannot be resolved are logged and left untouched.
func (archive *Archive) inlineImages(node *html.Node, baseDir string, logger *slog.Logger) {
	if node.Type == html.ElementNode {
		switch node.DataAtom {
		case atom.Img:
			archive.rewriteAttr(node, "src", baseDir, logger)
			setAttr(node, "loading", "lazy")
		case atom.Image:
			// SVG <image> carries its reference in (xlink:)href.
			archive.rewriteAttr(node, "href", baseDir, logger)
			archive.rewriteAttr(node, "xlink:href", baseDir, logger)
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		archive.inlineImages(child, baseDir, logger)
	}
}

func (archive *Archive) rewriteAttr(node *html.Node, key string, baseDir string, logger *slog.Logger) {
	for i, attr := range node.Attr {
		if attrName(attr) != key || attr.Val == "" {
			continue
		}
		if strings.HasPrefix(attr.Val, "data:") {
			continue
		}
		reference := attr.Val
		if baseDir != "" && !strings.HasPrefix(reference, "/") {
			reference = path.Join(baseDir, reference)
		}
		data, image, err := archive.ReadImage(reference)
		if err != nil {
			logger.Warn("unresolved image reference", "src", attr.Val)
			continue
		}
		node.Attr[i].Val = fmt.Sprintf("data:%s;base64,%s", image.MediaType, base64.StdEncoding.EncodeToString(data))
	}
}

func attrName(attr html.Attribute) string {
	if attr.Namespace != "" {
		return attr.Namespace + ":" + attr.Key
	}
	return attr.Key
}

func setAttr(node *html.Node, key, value string) {
	for i, attr := range node.Attr {
		if attr.Key == key && attr.Namespace == "" {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}

// renderBody serializes the children of the document's <body> element,
// dropping the surrounding html/head scaffolding the parser adds.
func renderBody(document *html.Node) (string, error) {
	body := findElement(document, atom.Body)
	if body == nil {
		return "", fmt.Errorf("chapter has no body: %w", ErrMalformed)
	}

	var builder strings.Builder
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&builder, child); err != nil {
			return "", fmt.Errorf("render chapter body: %w", err)
		}
	}
	return builder.String(), nil
}

func findElement(node *html.Node, target atom.Atom) *html.Node {
	if node.Type == html.ElementNode && node.DataAtom == target {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, target); found != nil {
			return found
		}
	}
	return nil
}
