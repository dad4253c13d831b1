package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses RSS, Atom or JSON feed data into entries.
func (p *Parser) Run(data []byte) ([]Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.normalizeItem(item))
	}
	return entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Summary: item.Description,
		Content: item.Content,
		Author:  p.extractAuthor(item),
		Tags:    item.Categories,
	}

	// Published falls back to updated; callers fill in the fetch time when both are missing.
	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		entry.PublishedAt = item.UpdatedParsed
	}

	entry.MediaURL = cmp.Or(
		mediaURL(item.Extensions, "thumbnail"),
		mediaURL(item.Extensions, "content"),
	)
	if entry.MediaURL == "" && item.Image != nil {
		entry.MediaURL = item.Image.URL
	}

	return entry
}

func mediaURL(extensions ext.Extensions, name string) string {
	media, ok := extensions["media"]
	if !ok {
		return ""
	}
	for _, e := range media[name] {
		if url := e.Attrs["url"]; url != "" {
			return url
		}
	}
	return ""
}

func (p *Parser) extractAuthor(item *gofeed.Item) string {
	for _, author := range item.Authors {
		if author == nil {
			continue
		}
		if name := p.formatAuthor(author.Name, author.Email); name != "" {
			return name
		}
	}
	if item.Author != nil {
		return p.formatAuthor(item.Author.Name, item.Author.Email)
	}
	return ""
}

func (p *Parser) formatAuthor(name, email string) string {
	return cmp.Or(strings.TrimSpace(name), strings.TrimSpace(email))
}
