package urlnorm

import (
	"regexp"
	"strings"
)

var arxivIDPattern = regexp.MustCompile(`arxiv\.org/(?:abs|pdf|html)/(\d+\.\d+)`)

func IsAcademic(rawURL string) bool {
	return strings.Contains(rawURL, "arxiv.org")
}

// ArxivID returns the numeric paper identifier, or "" when the URL carries none.
func ArxivID(rawURL string) string {
	m := arxivIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// ToHTML rewrites an arXiv abstract or PDF link to its HTML rendering.
// Other URLs, and arXiv URLs without a parsable identifier, are returned as is.
func ToHTML(rawURL string) string {
	if !IsAcademic(rawURL) {
		return rawURL
	}
	id := ArxivID(rawURL)
	if id == "" {
		return rawURL
	}
	return "https://arxiv.org/html/" + id + "v1"
}
