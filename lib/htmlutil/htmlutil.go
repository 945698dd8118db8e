package htmlutil

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText returns the text of a selection with NBSP turned into
// regular spaces, inner whitespace collapsed and the ends trimmed.
// DevExpress grids are full of NBSP padding cells.
func CleanText(sel *goquery.Selection) string {
	return CleanString(sel.Text())
}

func CleanString(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.Trim(s, " \t\n")
}

// FirstHref returns the href of the first anchor inside the selection,
// cleaned the same way as text.
func FirstHref(sel *goquery.Selection) string {
	href, ok := sel.Find("a").First().Attr("href")
	if !ok {
		return ""
	}
	return CleanString(href)
}
