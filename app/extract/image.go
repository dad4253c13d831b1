package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/lysyi3m/reader-comb/app/urlnorm"
)

type Tier string

const (
	TierOpenGraph       Tier = "og:image"
	TierTwitterProperty Tier = "twitter:image"
	TierTwitterName     Tier = "twitter:image:name"
	TierFigure          Tier = "figure"
	TierArticle         Tier = "article"
	TierAnyImage        Tier = "img"
)

type Reason string

const (
	ReasonFound       Reason = "found"
	ReasonNotFound    Reason = "not_found"
	ReasonFetchFailed Reason = "fetch_failed"
	ReasonParseFailed Reason = "parse_failed"
)

// ImageResult carries either an image URL and the tier that produced it,
// or the reason none was returned.
type ImageResult struct {
	URL    string
	Tier   Tier
	Reason Reason
	Err    error
}

func (r ImageResult) Found() bool {
	return r.Reason == ReasonFound
}

const minImageDimension = 10

var (
	figureClassPattern    = regexp.MustCompile(`featured|hero|article|wp-block-image`)
	containerClassPattern = regexp.MustCompile(`article|post|content`)

	figureMatcher    = cascadia.MustCompile("figure[class]")
	containerMatcher = cascadia.MustCompile("article[class], main[class], div[class]")
	imgMatcher       = cascadia.MustCompile("img")
)

type ImageExtractor struct {
	fetcher *PageFetcher
	timeout time.Duration
}

func NewImageExtractor(fetcher *PageFetcher, timeout time.Duration) *ImageExtractor {
	return &ImageExtractor{fetcher: fetcher, timeout: timeout}
}

func (e *ImageExtractor) FromHTML(rawHTML string) ImageResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		slog.Warn("Failed to extract image from HTML", "error", err)
		return ImageResult{Reason: ReasonParseFailed, Err: err}
	}
	return FromDocument(doc.Selection)
}

// FromURL fetches a page and runs the HTML tiers over it. Failures are logged at
// debug level since thumbnails are optional.
func (e *ImageExtractor) FromURL(ctx context.Context, rawURL string) ImageResult {
	fetchURL := urlnorm.ToHTML(rawURL)

	page, err := e.fetcher.Fetch(ctx, fetchURL, e.timeout)
	if err != nil {
		slog.Debug("Could not extract image", "url", rawURL, "error", err)
		return ImageResult{Reason: ReasonFetchFailed, Err: fmt.Errorf("failed to fetch %s: %w", fetchURL, err)}
	}

	return e.FromHTML(string(page.Body))
}

// FromDocument tries each tier in order and stops at the first hit.
func FromDocument(root *goquery.Selection) ImageResult {
	metaTiers := []struct {
		tier     Tier
		selector string
	}{
		{TierOpenGraph, `meta[property="og:image"]`},
		{TierTwitterProperty, `meta[property="twitter:image"]`},
		{TierTwitterName, `meta[name="twitter:image"]`},
	}
	for _, mt := range metaTiers {
		if content := root.Find(mt.selector).First().AttrOr("content", ""); content != "" {
			return ImageResult{URL: content, Tier: mt.tier, Reason: ReasonFound}
		}
	}

	figure := firstWithClass(root.FindMatcher(figureMatcher), figureClassPattern)
	if src := firstImageSource(figure); strings.HasPrefix(src, "http") {
		return ImageResult{URL: src, Tier: TierFigure, Reason: ReasonFound}
	}

	container := firstWithClass(root.FindMatcher(containerMatcher), containerClassPattern)
	if src := firstImageSource(container); strings.HasPrefix(src, "http") {
		return ImageResult{URL: src, Tier: TierArticle, Reason: ReasonFound}
	}

	var found string
	root.FindMatcher(imgMatcher).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := imageSource(img)
		if !strings.HasPrefix(src, "http") || isTrackingPixel(img) {
			return true
		}
		found = src
		return false
	})
	if found != "" {
		return ImageResult{URL: found, Tier: TierAnyImage, Reason: ReasonFound}
	}

	return ImageResult{Reason: ReasonNotFound}
}

func firstWithClass(sel *goquery.Selection, pattern *regexp.Regexp) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return pattern.MatchString(s.AttrOr("class", ""))
	}).First()
}

func firstImageSource(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	img := sel.FindMatcher(imgMatcher).First()
	if img.Length() == 0 {
		return ""
	}
	return imageSource(img)
}

func imageSource(img *goquery.Selection) string {
	if src := img.AttrOr("src", ""); src != "" {
		return src
	}
	return img.AttrOr("data-src", "")
}

// isTrackingPixel reports images whose declared width or height is at most 10.
// Unparsable dimensions keep the image.
func isTrackingPixel(img *goquery.Selection) bool {
	width, errW := strconv.Atoi(img.AttrOr("width", "999"))
	height, errH := strconv.Atoi(img.AttrOr("height", "999"))
	if errW != nil || errH != nil {
		return false
	}
	return width <= minImageDimension || height <= minImageDimension
}
