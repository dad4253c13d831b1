package extract

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/lysyi3m/reader-comb/app/urlnorm"
)

// Extraction is the reader-mode rendering of one article. Each field is
// produced independently and is left empty when its path fails.
type Extraction struct {
	HTML          string
	Text          string
	FeaturedImage string
}

type Reader struct {
	fetcher *PageFetcher
	cleaner *Cleaner
	timeout time.Duration

	content func([]byte, *url.URL) (readability.Article, error)
	text    func([]byte, *url.URL) (string, error)
}

func NewReader(fetcher *PageFetcher, cleaner *Cleaner, timeout time.Duration) *Reader {
	return &Reader{
		fetcher: fetcher,
		cleaner: cleaner,
		timeout: timeout,
		content: mainContent,
		text:    mainText,
	}
}

// Extract fetches rawURL and returns cleaned article HTML, plain text and the
// og:image URL. Fetch and extraction failures are logged and degrade to empty
// fields; only a cancelled context is returned as an error.
func (r *Reader) Extract(ctx context.Context, rawURL string) (Extraction, error) {
	fetchURL := urlnorm.ToHTML(rawURL)
	if fetchURL != rawURL {
		slog.Info("ArXiv detected, using HTML version", "url", rawURL, "fetch_url", fetchURL)
	}

	var out Extraction
	page, err := r.fetcher.Fetch(ctx, fetchURL, r.timeout)
	if err != nil {
		slog.Warn("Failed to fetch page", "url", fetchURL, "error", err)
	} else {
		out.HTML, out.FeaturedImage = r.readerHTML(page)
	}

	out.Text = r.plainText(ctx, rawURL, fetchURL, page)

	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	return out, nil
}

func (r *Reader) readerHTML(page *Page) (string, string) {
	original, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		slog.Warn("Failed to parse page", "url", page.URL.String(), "error", err)
		return "", ""
	}
	featuredURL := original.Find(`meta[property="og:image"]`).First().AttrOr("content", "")

	article, err := r.content(page.Body, page.URL)
	if err != nil {
		slog.Warn("Failed to extract reader content", "url", page.URL.String(), "error", err)
		return "", featuredURL
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		slog.Warn("Failed to parse extracted content", "url", page.URL.String(), "error", err)
		return "", featuredURL
	}

	r.cleaner.Clean(doc.Selection)

	if featuredURL != "" && !strings.Contains(article.Content, featuredURL) {
		insertFeaturedFigure(doc.Selection, featuredURL, article.Title)
	}

	AbsolutizeURLs(doc.Selection, page.URL)

	cleaned, err := doc.Find("body").Html()
	if err != nil {
		slog.Warn("Failed to render cleaned content", "url", page.URL.String(), "error", err)
		return "", featuredURL
	}
	return strings.TrimSpace(cleaned), featuredURL
}

// plainText extracts text from the original URL. When no rewrite happened the
// already fetched page is reused, and a failed fetch is not repeated.
func (r *Reader) plainText(ctx context.Context, rawURL, fetchURL string, fetched *Page) string {
	page := fetched
	if rawURL != fetchURL {
		var err error
		page, err = r.fetcher.Fetch(ctx, rawURL, r.timeout)
		if err != nil {
			slog.Warn("Failed to fetch page for plain text", "url", rawURL, "error", err)
			return ""
		}
	}
	if page == nil {
		return ""
	}

	text, err := r.text(page.Body, page.URL)
	if err != nil {
		slog.Warn("Failed to extract plain text", "url", rawURL, "error", err)
		return ""
	}
	return text
}

func insertFeaturedFigure(root *goquery.Selection, imageURL, title string) {
	first := root.Find("body").Children().First()
	if first.Length() == 0 {
		return
	}
	figure := fmt.Sprintf(`<figure class="featured-image"><img src="%s" alt="%s" /></figure>`,
		html.EscapeString(imageURL), html.EscapeString(title))
	first.BeforeHtml(figure)
}
