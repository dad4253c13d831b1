package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
)

// mainContent runs readability over a raw page and returns the article.
func mainContent(data []byte, pageURL *url.URL) (readability.Article, error) {
	if len(data) == 0 {
		return readability.Article{}, fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return readability.Article{}, fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return readability.Article{}, ErrEmptyContent
	}

	slog.Debug("Content extracted successfully", "title", article.Title, "content_length", len(article.Content))
	return article, nil
}

// mainText runs trafilatura over a raw page. It shares nothing with
// mainContent, so a page readability rejects can still yield text.
func mainText(data []byte, pageURL *url.URL) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	result, err := trafilatura.Extract(bytes.NewReader(data), trafilatura.Options{
		OriginalURL:     pageURL,
		ExcludeComments: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	text := strings.TrimSpace(result.ContentText)
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}
