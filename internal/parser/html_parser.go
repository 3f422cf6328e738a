// Package parser turns fetched wiki markup into the set of article links it references.
// Extraction is a pure function of the page body and the URL it was served from.
package parser

import (
	"bytes"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Defaults for an encyclopedia-style wiki
const (
	DefaultArticlePrefix      = "/wiki/"
	DefaultNamespaceSeparator = ":"
)

// ArticleExtractor extracts same-site article links from HTML
type ArticleExtractor struct {
	articlePrefix      string
	namespaceSeparator string
}

// NewArticleExtractor creates an extractor restricted to the given article path prefix.
// Paths containing namespaceSeparator (special, talk, category pages) are excluded;
// an empty separator disables that filter.
func NewArticleExtractor(articlePrefix, namespaceSeparator string) *ArticleExtractor {
	if articlePrefix == "" {
		articlePrefix = DefaultArticlePrefix
	}
	return &ArticleExtractor{
		articlePrefix:      articlePrefix,
		namespaceSeparator: namespaceSeparator,
	}
}

// Extract returns the sorted, deduplicated article URLs referenced by anchor
// elements in body. Relative references are resolved against baseURL, which
// should be the final URL of the fetch. Unusable input yields an empty result.
func (e *ArticleExtractor) Extract(body []byte, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return []string{}
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return []string{}
	}

	found := make(map[string]struct{})
	e.traverse(doc, base, found)

	links := make([]string, 0, len(found))
	for link := range found {
		links = append(links, link)
	}
	sort.Strings(links)
	return links
}

// traverse recursively walks the HTML tree
func (e *ArticleExtractor) traverse(n *html.Node, base *url.URL, found map[string]struct{}) {
	if n.Type == html.ElementNode && n.Data == "a" {
		if link, ok := e.parseAnchor(n, base); ok {
			found[link] = struct{}{}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.traverse(c, base, found)
	}
}

// parseAnchor resolves an anchor's href and applies article scoping
func (e *ArticleExtractor) parseAnchor(n *html.Node, base *url.URL) (string, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}

	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)

	if !e.IsArticle(resolved, base) {
		return "", false
	}

	normalized, err := normalizeURL(resolved)
	if err != nil {
		return "", false
	}
	return normalized, true
}

// IsArticle reports whether u is an article page on the same site as base
func (e *ArticleExtractor) IsArticle(u, base *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if !strings.EqualFold(u.Host, base.Host) {
		return false
	}

	// u.Path is already percent-decoded, so an encoded separator is caught too
	if !strings.HasPrefix(u.Path, e.articlePrefix) || len(u.Path) == len(e.articlePrefix) {
		return false
	}

	if e.namespaceSeparator != "" && strings.Contains(u.Path, e.namespaceSeparator) {
		return false
	}

	return true
}
