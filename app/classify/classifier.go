// Package classify assigns a content type label from a title, source name and tags.
package classify

import (
	"strings"

	"golang.org/x/text/cases"
)

type Type string

const (
	Paper    Type = "paper"
	Research Type = "research"
	News     Type = "news"
	Tutorial Type = "tutorial"
	Essay    Type = "essay"
	Post     Type = "post"
	Article  Type = "article"
)

var (
	academicSources  = []string{"arxiv", "papers with code", "acm", "ieee", "scholar"}
	newsSources      = []string{"techcrunch", "ars technica", "the verge", "wired", "hacker news"}
	tutorialKeywords = []string{"tutorial", "how-to", "guide", "how to", "step by step"}
	essaySources     = []string{"medium", "substack"}
	postSources      = []string{"dev.to", "hashnode", "reddit"}
)

// Classify returns the first matching label. Academic and research rules run
// before the broader source allowlists.
func Classify(title, sourceName string, tags []string) Type {
	fold := cases.Fold()
	title = fold.String(title)
	source := fold.String(sourceName)

	switch {
	case containsAny(source, academicSources):
		return Paper
	case strings.Contains(source, "research") || strings.Contains(title, "research"):
		return Research
	case containsAny(source, newsSources):
		return News
	case containsAny(title, tutorialKeywords) || anyTagContains(fold, tags, tutorialKeywords):
		return Tutorial
	case containsAny(source, essaySources):
		return Essay
	case containsAny(source, postSources):
		return Post
	default:
		return Article
	}
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func anyTagContains(fold cases.Caser, tags []string, needles []string) bool {
	for _, tag := range tags {
		if containsAny(fold.String(tag), needles) {
			return true
		}
	}
	return false
}
