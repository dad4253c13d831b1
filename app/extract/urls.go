package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	absoluteMediaPrefixes  = []string{"http://", "https://", "data:"}
	absoluteAnchorPrefixes = []string{"http://", "https://", "mailto:", "tel:", "#", "javascript:"}
)

// AbsolutizeURLs rewrites relative img, anchor and source references against the
// origin (scheme and host) of base.
func AbsolutizeURLs(root *goquery.Selection, base *url.URL) {
	if base == nil || base.Host == "" {
		return
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host}

	root.Find("img").Each(func(_ int, s *goquery.Selection) {
		rewriteAttr(s, "src", origin, absoluteMediaPrefixes)
		rewriteAttr(s, "data-src", origin, absoluteMediaPrefixes)
	})
	root.Find("a").Each(func(_ int, s *goquery.Selection) {
		rewriteAttr(s, "href", origin, absoluteAnchorPrefixes)
	})
	root.Find("source").Each(func(_ int, s *goquery.Selection) {
		rewriteAttr(s, "src", origin, absoluteMediaPrefixes)
	})
}

func rewriteAttr(s *goquery.Selection, attr string, origin *url.URL, skip []string) {
	value, ok := s.Attr(attr)
	if !ok || value == "" || hasAnyPrefix(value, skip) {
		return
	}
	ref, err := url.Parse(value)
	if err != nil {
		return
	}
	s.SetAttr(attr, origin.ResolveReference(ref).String())
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
