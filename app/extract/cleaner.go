package extract

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// CleanerConfig holds the thresholds used by the link-heavy block passes.
type CleanerConfig struct {
	// Blocks (div, section, aside) with link density above this are candidates.
	LinkDensity float64
	// Candidates need strictly more anchors than this.
	MinLinks int
	// Candidates are removed only when average anchor text is shorter than this.
	MaxAvgLinkLength float64

	// A list item is link-only when its anchor text share exceeds this.
	ListItemLinkShare float64
	// A list is removed when at least this share of its items are link-only.
	ListLinkOnlyShare float64

	// Tag rows: p/div/span with at least TagRowMinLinks direct anchors whose text
	// share exceeds TagRowLinkShare and whose average length is under TagRowMaxAvgLength.
	TagRowMinLinks     int
	TagRowLinkShare    float64
	TagRowMaxAvgLength float64
}

func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfig{
		LinkDensity:        0.7,
		MinLinks:           3,
		MaxAvgLinkLength:   50,
		ListItemLinkShare:  0.8,
		ListLinkOnlyShare:  0.8,
		TagRowMinLinks:     3,
		TagRowLinkShare:    0.7,
		TagRowMaxAvgLength: 30,
	}
}

// Pass inspects a tree and returns the nodes to drop. Passes never mutate the tree.
type Pass struct {
	Name   string
	Select func(root *goquery.Selection, cfg CleanerConfig) []*html.Node
}

// DefaultPasses lists the cleaning passes in the order they must run.
func DefaultPasses() []Pass {
	return []Pass{
		{"structural_tags", SelectStructuralTags},
		{"boilerplate_attributes", SelectBoilerplateAttributes},
		{"skip_links", SelectSkipLinks},
		{"companion_column", SelectCompanionTrailing},
		{"link_dense_blocks", SelectLinkDenseBlocks},
		{"link_lists", SelectLinkLists},
		{"standalone_links", SelectStandaloneLinks},
		{"tag_rows", SelectTagRows},
		{"empty_elements", SelectEmptyElements},
	}
}

type Cleaner struct {
	cfg    CleanerConfig
	passes []Pass
}

func NewCleaner(cfg CleanerConfig) *Cleaner {
	return &Cleaner{cfg: cfg, passes: DefaultPasses()}
}

// Clean runs every pass in order, removing each pass's selection before the next runs.
func (c *Cleaner) Clean(root *goquery.Selection) {
	for _, pass := range c.passes {
		nodes := pass.Select(root, c.cfg)
		removeNodes(nodes)
		if len(nodes) > 0 {
			slog.Debug("Cleaning pass removed nodes", "pass", pass.Name, "count", len(nodes))
		}
	}
}

func removeNodes(nodes []*html.Node) {
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

var (
	structuralMatcher = cascadia.MustCompile("nav, header, footer, aside, menu")
	attributedMatcher = cascadia.MustCompile("[class], [id]")
	anchorMatcher     = cascadia.MustCompile("a")
	companionMatcher  = cascadia.MustCompile(`[data-testid*="companionColumn"]`)
	blockMatcher      = cascadia.MustCompile("div, section, aside")
	listMatcher       = cascadia.MustCompile("ul, ol")
	tagRowMatcher     = cascadia.MustCompile("p, div, span")
	emptyableMatcher  = cascadia.MustCompile("p, div, span, section, li")
	mediaMatcher      = cascadia.MustCompile("img, figure, video, iframe")
)

var boilerplateKeywords = []string{
	"nav", "menu", "sidebar", "header", "footer", "banner",
	"advertisement", "ad-", "social-", "share-",
	"newsletter", "subscribe", "signup", "promo",
}

func SelectStructuralTags(root *goquery.Selection, _ CleanerConfig) []*html.Node {
	return root.FindMatcher(structuralMatcher).Nodes
}

// SelectBoilerplateAttributes picks elements whose class list or id contains a
// navigation or promotion keyword.
func SelectBoilerplateAttributes(root *goquery.Selection, _ CleanerConfig) []*html.Node {
	return root.FindMatcher(attributedMatcher).FilterFunction(func(_ int, s *goquery.Selection) bool {
		classes := strings.ToLower(strings.Join(strings.Fields(s.AttrOr("class", "")), " "))
		id := strings.ToLower(s.AttrOr("id", ""))
		return hasKeyword(classes) || hasKeyword(id)
	}).Nodes
}

func hasKeyword(value string) bool {
	if value == "" {
		return false
	}
	for _, keyword := range boilerplateKeywords {
		if strings.Contains(value, keyword) {
			return true
		}
	}
	return false
}

func SelectSkipLinks(root *goquery.Selection, _ CleanerConfig) []*html.Node {
	return root.FindMatcher(anchorMatcher).FilterFunction(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(strippedText(s))
		return strings.HasPrefix(text, "skip to") || strings.HasPrefix(text, "skip ")
	}).Nodes
}

// SelectCompanionTrailing truncates content after the last companion-column marker:
// its following non-marker siblings and every following sibling of its parent.
func SelectCompanionTrailing(root *goquery.Selection, _ CleanerConfig) []*html.Node {
	markers := root.FindMatcher(companionMatcher)
	if markers.Length() == 0 {
		return nil
	}
	last := markers.Last()

	var nodes []*html.Node
	last.NextAll().Each(func(_ int, s *goquery.Selection) {
		if !s.IsMatcher(companionMatcher) {
			nodes = append(nodes, s.Nodes...)
		}
	})

	parent := last.Parent()
	if parent.Length() > 0 && !parent.Is("body, html") {
		nodes = append(nodes, parent.NextAll().Nodes...)
	}
	return nodes
}

// SelectLinkDenseBlocks picks blocks that are mostly short links.
func SelectLinkDenseBlocks(root *goquery.Selection, cfg CleanerConfig) []*html.Node {
	return root.FindMatcher(blockMatcher).FilterFunction(func(_ int, s *goquery.Selection) bool {
		total := textLen(s)
		if total == 0 {
			return false
		}
		links := s.FindMatcher(anchorMatcher)
		if links.Length() <= cfg.MinLinks {
			return false
		}
		linkTotal := sumTextLen(links)
		if float64(linkTotal)/float64(total) <= cfg.LinkDensity {
			return false
		}
		return float64(linkTotal)/float64(links.Length()) < cfg.MaxAvgLinkLength
	}).Nodes
}

// SelectLinkLists picks empty lists and lists whose items are mostly link-only.
func SelectLinkLists(root *goquery.Selection, cfg CleanerConfig) []*html.Node {
	return root.FindMatcher(listMatcher).FilterFunction(func(_ int, s *goquery.Selection) bool {
		items := s.ChildrenFiltered("li")
		if items.Length() == 0 {
			return true
		}

		linkOnly := 0
		items.Each(func(_ int, li *goquery.Selection) {
			links := li.FindMatcher(anchorMatcher)
			if links.Length() == 0 {
				return
			}
			itemLen := textLen(li)
			if itemLen > 0 && float64(sumTextLen(links))/float64(itemLen) > cfg.ListItemLinkShare {
				linkOnly++
			}
		})

		return float64(linkOnly) >= float64(items.Length())*cfg.ListLinkOnlyShare
	}).Nodes
}

// SelectStandaloneLinks picks anchors outside running text that do not wrap an image.
func SelectStandaloneLinks(root *goquery.Selection, _ CleanerConfig) []*html.Node {
	return root.FindMatcher(anchorMatcher).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if s.ParentsFiltered("p, blockquote, td, li").Length() > 0 {
			return false
		}
		return s.Find("img").Length() == 0
	}).Nodes
}

// SelectTagRows picks inline tag and category rows.
func SelectTagRows(root *goquery.Selection, cfg CleanerConfig) []*html.Node {
	return root.FindMatcher(tagRowMatcher).FilterFunction(func(_ int, s *goquery.Selection) bool {
		links := s.ChildrenFiltered("a")
		if links.Length() < cfg.TagRowMinLinks {
			return false
		}
		total := textLen(s)
		if total == 0 {
			return false
		}
		linkTotal := sumTextLen(links)
		if float64(linkTotal)/float64(total) <= cfg.TagRowLinkShare {
			return false
		}
		return float64(linkTotal)/float64(links.Length()) < cfg.TagRowMaxAvgLength
	}).Nodes
}

func SelectEmptyElements(root *goquery.Selection, _ CleanerConfig) []*html.Node {
	return root.FindMatcher(emptyableMatcher).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return textLen(s) == 0 && s.FindMatcher(mediaMatcher).Length() == 0
	}).Nodes
}

// strippedText concatenates every text node with surrounding whitespace trimmed.
func strippedText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		collectText(n, &b)
	}
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(strings.TrimSpace(n.Data))
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func textLen(s *goquery.Selection) int {
	return utf8.RuneCountInString(strippedText(s))
}

func sumTextLen(s *goquery.Selection) int {
	total := 0
	s.Each(func(_ int, one *goquery.Selection) {
		total += textLen(one)
	})
	return total
}
