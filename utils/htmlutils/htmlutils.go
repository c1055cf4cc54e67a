// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Text appends the whitespace-normalized text content of n to sb, words of
// adjacent text nodes separated by a single space.
func Text(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		for _, word := range strings.Fields(n.Data) {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(word)
		}

		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		Text(child, sb)
	}
}

// TextOf returns the text content of n.
func TextOf(n *html.Node) string {
	sb := strings.Builder{}
	Text(n, &sb)

	return sb.String()
}

// HasHTMLContentType reports whether media is text/html.
func HasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader checks the response status and returns its body transcoded to
// UTF-8 using the charset of the Content-Type header or the content itself.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	rr, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}

// Walk calls fn for every element node in document order. Returning false
// from fn skips the children of that element.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n.Type == html.ElementNode && !fn(n) {
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		Walk(child, fn)
	}
}

// First returns the first element named tag, or nil.
func First(n *html.Node, tag string) *html.Node {
	var found *html.Node

	Walk(n, func(e *html.Node) bool {
		if found != nil {
			return false
		}

		if strings.EqualFold(e.Data, tag) {
			found = e

			return false
		}

		return true
	})

	return found
}

// Attr looks an attribute of n up.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}

	return "", false
}

// Title returns the document title, or "".
func Title(n *html.Node) string {
	if t := First(n, "title"); t != nil {
		return TextOf(t)
	}

	return ""
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// UnwrapJSON returns the JSON payload of a document that may have been saved
// through a browser, which wraps it in an HTML page (usually inside a <pre>).
// Documents that already look like JSON are returned trimmed; anything else
// is returned unchanged.
func UnwrapJSON(doc string) string {
	trimmed := strings.TrimSpace(strings.TrimPrefix(doc, "\ufeff"))
	if looksLikeJSON(trimmed) {
		return trimmed
	}

	if !strings.HasPrefix(trimmed, "<") {
		return doc
	}

	n, err := html.Parse(strings.NewReader(trimmed))
	if err != nil {
		return doc
	}

	for _, tag := range []string{"pre", "body"} {
		e := First(n, tag)
		if e == nil {
			continue
		}

		var sb strings.Builder
		rawText(e, &sb)

		if s := strings.TrimSpace(sb.String()); looksLikeJSON(s) {
			return s
		}
	}

	return doc
}

// rawText concatenates text nodes without normalizing whitespace, which
// would corrupt string values inside a JSON payload.
func rawText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)

		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		rawText(child, sb)
	}
}
